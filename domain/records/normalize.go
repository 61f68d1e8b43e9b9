package records

import (
	"fmt"
	"strconv"
	"time"
)

// This file is the normalization boundary between the API's loosely-typed
// payloads and the strict record types above. The API grew out of several
// product surfaces and still serves historical field names (full_name vs
// name, priority vs is_priority, epoch vs RFC3339 timestamps); every
// variant is resolved exactly once here so nothing downstream re-checks
// field names.

// Payload is a decoded wire object before normalization.
type Payload = map[string]any

// NormalizeIdentity maps a user payload into an Identity.
func NormalizeIdentity(p Payload) Identity {
	return Identity{
		ID:             idField(p, "id", "user_id"),
		Email:          stringField(p, "email"),
		DisplayName:    stringField(p, "full_name", "name", "display_name"),
		OrganizationID: idField(p, "organization_id", "org_id"),
	}
}

// NormalizeCompany maps a tracked-company payload into a TrackedCompany.
func NormalizeCompany(p Payload) TrackedCompany {
	freq := UpdateFrequency(stringField(p, "update_frequency", "frequency"))
	if !freq.Valid() {
		freq = FrequencyWeekly
	}
	return TrackedCompany{
		ID:              idField(p, "id", "company_id"),
		DisplayName:     stringField(p, "company_name", "name", "display_name"),
		Domain:          stringField(p, "domain", "website"),
		Industry:        stringField(p, "industry"),
		IsPriority:      boolField(p, "is_priority", "priority"),
		UpdateFrequency: freq,
		Tags:            stringSliceField(p, "tags"),
		LastUpdatedAt:   timeField(p, "last_updated_at", "updated_at"),
	}
}

// NormalizeUpdate maps a company-update payload into a CompanyUpdate.
func NormalizeUpdate(p Payload) CompanyUpdate {
	importance := Importance(stringField(p, "importance", "severity"))
	if !importance.Valid() {
		importance = ImportanceLow
	}
	return CompanyUpdate{
		ID:         idField(p, "id"),
		CompanyID:  idField(p, "company_id"),
		Headline:   stringField(p, "headline", "title"),
		Importance: importance,
		IsRead:     boolField(p, "is_read", "read"),
		DetectedAt: timeField(p, "detected_at", "created_at"),
	}
}

// NormalizeOrganization maps an organization payload.
func NormalizeOrganization(p Payload) Organization {
	return Organization{
		ID:          idField(p, "id"),
		Name:        stringField(p, "name", "company_name"),
		Domain:      stringField(p, "domain"),
		MemberCount: intField(p, "member_count", "members"),
	}
}

// NormalizeMember maps a team-member payload.
func NormalizeMember(p Payload) TeamMember {
	return TeamMember{
		ID:          idField(p, "id", "user_id"),
		Email:       stringField(p, "email"),
		DisplayName: stringField(p, "full_name", "name", "display_name"),
		Role:        stringField(p, "role"),
	}
}

// NormalizePlan maps a subscription-plan payload.
func NormalizePlan(p Payload) Plan {
	return Plan{
		Name:          stringField(p, "name", "plan_name", "tier"),
		Seats:         intField(p, "seats", "seat_limit"),
		SeatsUsed:     intField(p, "seats_used"),
		TrackingLimit: intField(p, "tracking_limit", "company_limit"),
		RenewsAt:      timeField(p, "renews_at", "renewal_date"),
	}
}

// stringField returns the first non-empty string among keys.
func stringField(p Payload, keys ...string) string {
	for _, key := range keys {
		if s, ok := p[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// idField accepts both string and numeric identifiers; numeric IDs are
// rendered as their decimal string.
func idField(p Payload, keys ...string) string {
	for _, key := range keys {
		switch v := p[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

// boolField returns the first boolean among keys; absent means false.
func boolField(p Payload, keys ...string) bool {
	for _, key := range keys {
		if b, ok := p[key].(bool); ok {
			return b
		}
	}
	return false
}

// intField returns the first numeric value among keys.
func intField(p Payload, keys ...string) int {
	for _, key := range keys {
		if n, ok := p[key].(float64); ok {
			return int(n)
		}
	}
	return 0
}

// timeField accepts RFC3339 strings and unix-epoch numbers. Anything else
// yields the zero time.
func timeField(p Payload, keys ...string) time.Time {
	for _, key := range keys {
		switch v := p[key].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		case float64:
			return time.Unix(int64(v), 0).UTC()
		}
	}
	return time.Time{}
}

// stringSliceField returns the strings stored under the first matching
// key, skipping non-string members.
func stringSliceField(p Payload, keys ...string) []string {
	for _, key := range keys {
		raw, ok := p[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Describe renders a short human-readable label for a company, used by the
// CLI list output.
func Describe(c TrackedCompany) string {
	if c.Domain != "" {
		return fmt.Sprintf("%s (%s)", c.DisplayName, c.Domain)
	}
	return c.DisplayName
}
