package stores

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"prospectwatch-client/domain/records"
	"prospectwatch-client/infrastructure/api"
)

// OrgStore mirrors the organization, its team and its subscription plan.
// It is read-mostly and deliberately forgiving: a section whose fetch
// fails is filled with demo values instead of surfacing an error, so the
// settings screens stay populated on a flaky network.
type OrgStore struct {
	client  *api.Client
	session *SessionStore
	logger  *zap.Logger

	mu      sync.Mutex
	org     records.Organization
	members []records.TeamMember
	plan    records.Plan
	demo    map[string]bool
	loaded  bool
}

// NewOrgStore creates the organization store; it empties itself when the
// session goes anonymous.
func NewOrgStore(client *api.Client, session *SessionStore, logger *zap.Logger) *OrgStore {
	s := &OrgStore{
		client:  client,
		session: session,
		logger:  logger,
		demo:    map[string]bool{},
	}
	session.Subscribe(func(snap SessionSnapshot) {
		if !snap.Authenticated {
			s.Reset()
		}
	})
	return s
}

// Organization returns the cached organization record.
func (s *OrgStore) Organization() records.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.org
}

// Members returns a copy of the cached team member list.
func (s *OrgStore) Members() []records.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.TeamMember, len(s.members))
	copy(out, s.members)
	return out
}

// Plan returns the cached subscription plan.
func (s *OrgStore) Plan() records.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// IsDemo reports whether the named section ("organization", "members",
// "plan") is showing fallback data rather than server truth.
func (s *OrgStore) IsDemo(section string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demo[section]
}

// Loaded reports whether Fetch has completed at least once.
func (s *OrgStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Fetch loads organization, members and plan. Individual failures degrade
// to demo data; Fetch itself only fails when the session died mid-flight.
func (s *OrgStore) Fetch(ctx context.Context) bool {
	org, orgDemo := s.fetchOrganization(ctx)
	members, membersDemo := s.fetchMembers(ctx)
	plan, planDemo := s.fetchPlan(ctx)

	if !s.session.Authenticated() {
		return false
	}

	s.mu.Lock()
	s.org = org
	s.members = members
	s.plan = plan
	s.demo = map[string]bool{
		"organization": orgDemo,
		"members":      membersDemo,
		"plan":         planDemo,
	}
	s.loaded = true
	s.mu.Unlock()
	return true
}

func (s *OrgStore) fetchOrganization(ctx context.Context) (records.Organization, bool) {
	var payload records.Payload
	if err := s.client.Do(ctx, http.MethodGet, "/organization", nil, &payload); err != nil {
		s.logger.Debug("organization fetch degraded to demo data", zap.Error(err))
		return demoOrganization(), true
	}
	return records.NormalizeOrganization(payload), false
}

func (s *OrgStore) fetchMembers(ctx context.Context) ([]records.TeamMember, bool) {
	var page api.Page[records.Payload]
	if err := s.client.Do(ctx, http.MethodGet, "/organization/members", nil, &page); err != nil {
		s.logger.Debug("members fetch degraded to demo data", zap.Error(err))
		return demoMembers(), true
	}
	members := make([]records.TeamMember, 0, len(page.Items))
	for _, item := range page.Items {
		members = append(members, records.NormalizeMember(item))
	}
	return members, false
}

func (s *OrgStore) fetchPlan(ctx context.Context) (records.Plan, bool) {
	var payload records.Payload
	if err := s.client.Do(ctx, http.MethodGet, "/billing/plan", nil, &payload); err != nil {
		s.logger.Debug("plan fetch degraded to demo data", zap.Error(err))
		return demoPlan(), true
	}
	return records.NormalizePlan(payload), false
}

// Reset drops all cached organization state.
func (s *OrgStore) Reset() {
	s.mu.Lock()
	s.org = records.Organization{}
	s.members = nil
	s.plan = records.Plan{}
	s.demo = map[string]bool{}
	s.loaded = false
	s.mu.Unlock()
}

// Demo fallbacks. Deterministic so screens render the same on every
// degraded load.

func demoOrganization() records.Organization {
	return records.Organization{
		ID:          "demo-org",
		Name:        "Demo Workspace",
		Domain:      "example.com",
		MemberCount: 3,
	}
}

func demoMembers() []records.TeamMember {
	return []records.TeamMember{
		{ID: "demo-1", Email: "owner@example.com", DisplayName: "Demo Owner", Role: "owner"},
		{ID: "demo-2", Email: "analyst@example.com", DisplayName: "Demo Analyst", Role: "member"},
		{ID: "demo-3", Email: "sales@example.com", DisplayName: "Demo Seller", Role: "member"},
	}
}

func demoPlan() records.Plan {
	return records.Plan{
		Name:          "trial",
		Seats:         5,
		SeatsUsed:     3,
		TrackingLimit: 25,
		RenewsAt:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
