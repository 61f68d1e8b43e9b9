package stores

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"prospectwatch-client/domain/records"
	"prospectwatch-client/infrastructure/api"
	apperrors "prospectwatch-client/pkg/errors"
)

const feedPageSize = 50

// FeedStore caches the company-update feed. Fetch replaces the current
// page wholesale; MarkRead is the only mutation.
type FeedStore struct {
	client  *api.Client
	session *SessionStore
	logger  *zap.Logger

	mu        sync.Mutex
	updates   []records.CompanyUpdate
	total     int
	page      int
	hasNext   bool
	lastError string
	errorCode string
}

// NewFeedStore creates the feed store; it empties itself when the session
// goes anonymous.
func NewFeedStore(client *api.Client, session *SessionStore, logger *zap.Logger) *FeedStore {
	s := &FeedStore{
		client:  client,
		session: session,
		logger:  logger,
	}
	session.Subscribe(func(snap SessionSnapshot) {
		if !snap.Authenticated {
			s.Reset()
		}
	})
	return s
}

// Updates returns a copy of the cached feed page.
func (s *FeedStore) Updates() []records.CompanyUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.CompanyUpdate, len(s.updates))
	copy(out, s.updates)
	return out
}

// Meta returns pagination facts about the cached page.
func (s *FeedStore) Meta() (page, total int, hasNext bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.total, s.hasNext
}

// UnreadCount counts unread updates in the cached page.
func (s *FeedStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, u := range s.updates {
		if !u.IsRead {
			count++
		}
	}
	return count
}

// Err returns the last recorded error message and machine code.
func (s *FeedStore) Err() (message, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError, s.errorCode
}

// Fetch loads one feed page, replacing whatever was cached before.
func (s *FeedStore) Fetch(ctx context.Context, page int) bool {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/updates?page=%d&per_page=%d", page, feedPageSize)

	var resp api.Page[records.Payload]
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		s.setErr(err)
		return false
	}
	if !s.session.Authenticated() {
		return false
	}

	updates := make([]records.CompanyUpdate, 0, len(resp.Items))
	for _, item := range resp.Items {
		updates = append(updates, records.NormalizeUpdate(item))
	}

	s.mu.Lock()
	s.updates = updates
	s.total = resp.Total
	s.page = resp.Page
	s.hasNext = resp.HasNext
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()
	return true
}

// MarkRead flags the given updates as read, optimistically. On failure
// exactly the updates this call flipped are flipped back; updates that
// were already read stay read.
func (s *FeedStore) MarkRead(ctx context.Context, ids ...string) bool {
	if len(ids) == 0 {
		return true
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var flipped []string
	err := runOptimistic(ctx, mutation{
		Apply: func() {
			s.mu.Lock()
			for i := range s.updates {
				if wanted[s.updates[i].ID] && !s.updates[i].IsRead {
					s.updates[i].IsRead = true
					flipped = append(flipped, s.updates[i].ID)
				}
			}
			s.mu.Unlock()
		},
		Attempt: func(ctx context.Context) error {
			body := map[string][]string{"update_ids": ids}
			return s.client.Do(ctx, http.MethodPost, "/updates/mark-read", body, nil)
		},
		Rollback: func() {
			s.mu.Lock()
			undo := make(map[string]bool, len(flipped))
			for _, id := range flipped {
				undo[id] = true
			}
			for i := range s.updates {
				if undo[s.updates[i].ID] {
					s.updates[i].IsRead = false
				}
			}
			s.mu.Unlock()
		},
	})
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

// Reset drops the cached feed.
func (s *FeedStore) Reset() {
	s.mu.Lock()
	s.updates = nil
	s.total = 0
	s.page = 0
	s.hasNext = false
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()
}

func (s *FeedStore) setErr(err error) {
	s.mu.Lock()
	s.lastError = apperrors.UserMessage(err)
	s.errorCode = apperrors.CodeOf(err)
	s.mu.Unlock()
	s.logger.Debug("feed store operation failed", zap.Error(err))
}
