package stores

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prospectwatch-client/domain/records"
	"prospectwatch-client/infrastructure/api"
	"prospectwatch-client/infrastructure/persistence/localstore"
	apperrors "prospectwatch-client/pkg/errors"
)

// CompaniesStorageKey is the tracked-company cache key in the local store.
const CompaniesStorageKey = "companies"

const companiesPageSize = 100

// CompanySettings are the user-editable tracking settings of a company.
type CompanySettings struct {
	UpdateFrequency records.UpdateFrequency `json:"update_frequency"`
	Tags            []string                `json:"tags"`
}

// CompanyStore caches the user's tracked-company list. Mutations are
// optimistic: local state changes immediately, then reconciles with the
// server echo or rolls back on failure. Reads replace the whole list;
// there is no merge.
type CompanyStore struct {
	client  *api.Client
	session *SessionStore
	store   *localstore.Store
	logger  *zap.Logger

	mu        sync.Mutex
	companies []records.TrackedCompany
	lastError string
	errorCode string
}

// NewCompanyStore creates the store, warms it from the persisted cache,
// and clears it again whenever the session goes anonymous.
func NewCompanyStore(client *api.Client, session *SessionStore, store *localstore.Store, logger *zap.Logger) *CompanyStore {
	s := &CompanyStore{
		client:  client,
		session: session,
		store:   store,
		logger:  logger,
	}

	if session.Authenticated() {
		var cached []records.TrackedCompany
		if store.Load(CompaniesStorageKey, &cached) {
			s.companies = cached
		}
	}

	session.Subscribe(func(snap SessionSnapshot) {
		if !snap.Authenticated {
			s.Reset()
		}
	})

	return s
}

// Companies returns the list sorted for presentation: priority companies
// first, then most recently updated first. The sort is recomputed on
// every read and never persisted.
func (s *CompanyStore) Companies() []records.TrackedCompany {
	s.mu.Lock()
	out := make([]records.TrackedCompany, len(s.companies))
	copy(out, s.companies)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b records.TrackedCompany) int {
		if a.IsPriority != b.IsPriority {
			if a.IsPriority {
				return -1
			}
			return 1
		}
		return b.LastUpdatedAt.Compare(a.LastUpdatedAt)
	})
	return out
}

// Get returns the company with the given ID.
func (s *CompanyStore) Get(id string) (records.TrackedCompany, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.ID == id {
			return c, true
		}
	}
	return records.TrackedCompany{}, false
}

// Err returns the last recorded error message and machine code; both are
// empty after a successful operation.
func (s *CompanyStore) Err() (message, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError, s.errorCode
}

// Fetch replaces the list with the server's. It reports success; failures
// are recorded on the store.
func (s *CompanyStore) Fetch(ctx context.Context) bool {
	path := fmt.Sprintf("/companies/tracked?page=1&per_page=%d", companiesPageSize)

	var page api.Page[records.Payload]
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		s.setErr(err)
		return false
	}
	if !s.session.Authenticated() {
		// Logged out while the request was in flight; do not resurrect
		// state a logout already cleared.
		return false
	}

	companies := make([]records.TrackedCompany, 0, len(page.Items))
	for _, item := range page.Items {
		companies = append(companies, records.NormalizeCompany(item))
	}

	s.mu.Lock()
	s.companies = companies
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()

	s.store.Save(CompaniesStorageKey, companies)
	return true
}

// Track adds a company to the tracking list. A placeholder record shows up
// immediately and is replaced by the server's echo on success.
func (s *CompanyStore) Track(ctx context.Context, name, domain string) bool {
	placeholder := records.TrackedCompany{
		ID:              "pending-" + uuid.NewString(),
		DisplayName:     name,
		Domain:          domain,
		UpdateFrequency: records.FrequencyWeekly,
		LastUpdatedAt:   time.Now().UTC(),
	}

	var echo records.TrackedCompany
	err := runOptimistic(ctx, mutation{
		Apply: func() {
			s.mu.Lock()
			s.companies = append(s.companies, placeholder)
			s.mu.Unlock()
		},
		Attempt: func(ctx context.Context) error {
			body := map[string]string{"company_name": name, "domain": domain}
			var payload records.Payload
			if err := s.client.Do(ctx, http.MethodPost, "/companies/tracked", body, &payload); err != nil {
				return err
			}
			echo = records.NormalizeCompany(payload)
			return nil
		},
		Commit: func() {
			s.replace(placeholder.ID, echo)
			s.persist()
		},
		Rollback: func() {
			s.remove(placeholder.ID)
		},
	})
	return s.settle(err)
}

// Untrack removes a company. The record disappears immediately and is
// restored in place if the server refuses.
func (s *CompanyStore) Untrack(ctx context.Context, id string) bool {
	s.mu.Lock()
	index := slices.IndexFunc(s.companies, func(c records.TrackedCompany) bool { return c.ID == id })
	if index < 0 {
		s.mu.Unlock()
		return true
	}
	removed := s.companies[index]
	s.mu.Unlock()

	err := runOptimistic(ctx, mutation{
		Apply: func() {
			s.remove(id)
		},
		Attempt: func(ctx context.Context) error {
			return s.client.Do(ctx, http.MethodDelete, "/companies/tracked/"+id, nil, nil)
		},
		Commit: func() {
			s.persist()
		},
		Rollback: func() {
			s.mu.Lock()
			at := min(index, len(s.companies))
			s.companies = slices.Insert(s.companies, at, removed)
			s.mu.Unlock()
		},
	})
	return s.settle(err)
}

// SetPriority toggles the priority flag on a company.
func (s *CompanyStore) SetPriority(ctx context.Context, id string, priority bool) bool {
	return s.patch(ctx, id, map[string]any{"is_priority": priority}, func(c *records.TrackedCompany) {
		c.IsPriority = priority
	})
}

// UpdateSettings changes a company's tracking settings.
func (s *CompanyStore) UpdateSettings(ctx context.Context, id string, settings CompanySettings) bool {
	if !settings.UpdateFrequency.Valid() {
		s.setErr(apperrors.NewUnknownError("unknown update frequency", nil))
		return false
	}
	body := map[string]any{
		"update_frequency": settings.UpdateFrequency,
		"tags":             settings.Tags,
	}
	return s.patch(ctx, id, body, func(c *records.TrackedCompany) {
		c.UpdateFrequency = settings.UpdateFrequency
		c.Tags = slices.Clone(settings.Tags)
	})
}

// patch is the shared optimistic field update: apply locally, PATCH, then
// adopt the server echo wholesale rather than merging.
func (s *CompanyStore) patch(ctx context.Context, id string, body map[string]any, apply func(*records.TrackedCompany)) bool {
	before, ok := s.Get(id)
	if !ok {
		s.setErr(apperrors.NewUnknownError("company is not tracked", nil))
		return false
	}

	var echo records.TrackedCompany
	err := runOptimistic(ctx, mutation{
		Apply: func() {
			s.mu.Lock()
			for i := range s.companies {
				if s.companies[i].ID == id {
					apply(&s.companies[i])
					break
				}
			}
			s.mu.Unlock()
		},
		Attempt: func(ctx context.Context) error {
			var payload records.Payload
			if err := s.client.Do(ctx, http.MethodPatch, "/companies/tracked/"+id, body, &payload); err != nil {
				return err
			}
			echo = records.NormalizeCompany(payload)
			return nil
		},
		Commit: func() {
			s.replace(id, echo)
			s.persist()
		},
		Rollback: func() {
			s.replace(id, before)
		},
	})
	return s.settle(err)
}

// Reset drops the in-memory list and the persisted mirror. Called when the
// session ends so company data never outlives it.
func (s *CompanyStore) Reset() {
	s.mu.Lock()
	s.companies = nil
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()
	s.store.Delete(CompaniesStorageKey)
}

func (s *CompanyStore) settle(err error) bool {
	if err != nil {
		s.setErr(err)
		return false
	}
	s.mu.Lock()
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()
	return true
}

func (s *CompanyStore) setErr(err error) {
	s.mu.Lock()
	s.lastError = apperrors.UserMessage(err)
	s.errorCode = apperrors.CodeOf(err)
	s.mu.Unlock()
	s.logger.Debug("company store operation failed", zap.Error(err))
}

func (s *CompanyStore) replace(id string, with records.TrackedCompany) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.companies {
		if s.companies[i].ID == id {
			s.companies[i] = with
			return
		}
	}
}

func (s *CompanyStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = slices.DeleteFunc(s.companies, func(c records.TrackedCompany) bool {
		return c.ID == id
	})
}

func (s *CompanyStore) persist() {
	if !s.session.Authenticated() {
		return
	}
	s.mu.Lock()
	snapshot := make([]records.TrackedCompany, len(s.companies))
	copy(snapshot, s.companies)
	s.mu.Unlock()
	s.store.Save(CompaniesStorageKey, snapshot)
}
