package records

import "time"

// UpdateFrequency controls how often the service re-scans a tracked
// company.
type UpdateFrequency string

const (
	FrequencyDaily   UpdateFrequency = "daily"
	FrequencyWeekly  UpdateFrequency = "weekly"
	FrequencyMonthly UpdateFrequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f UpdateFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Importance ranks a company update for feed presentation.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Valid reports whether i is a known importance level.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return true
	}
	return false
}

// Identity is the signed-in user as the server describes them.
type Identity struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// TrackedCompany is a company on the user's tracking list. Records are
// owned by the company store; other stores refer to companies by ID only.
type TrackedCompany struct {
	ID              string          `json:"id"`
	DisplayName     string          `json:"display_name"`
	Domain          string          `json:"domain,omitempty"`
	Industry        string          `json:"industry,omitempty"`
	IsPriority      bool            `json:"is_priority"`
	UpdateFrequency UpdateFrequency `json:"update_frequency"`
	Tags            []string        `json:"tags,omitempty"`
	LastUpdatedAt   time.Time       `json:"last_updated_at"`
}

// CompanyUpdate is a detected signal about a tracked company. CompanyID is
// a lookup key into the company store, never a shared pointer.
type CompanyUpdate struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"company_id"`
	Headline   string     `json:"headline"`
	Importance Importance `json:"importance"`
	IsRead     bool       `json:"is_read"`
	DetectedAt time.Time  `json:"detected_at"`
}

// Organization mirrors the server's view of the user's organization.
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain,omitempty"`
	MemberCount int    `json:"member_count"`
}

// TeamMember is a colleague inside the organization.
type TeamMember struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Plan mirrors the organization's subscription state. Billing itself
// happens elsewhere; this is display data only.
type Plan struct {
	Name          string    `json:"name"`
	Seats         int       `json:"seats"`
	SeatsUsed     int       `json:"seats_used"`
	TrackingLimit int       `json:"tracking_limit"`
	RenewsAt      time.Time `json:"renews_at"`
}
