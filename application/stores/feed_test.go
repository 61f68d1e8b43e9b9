package stores

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospectwatch-client/domain/records"
)

func newFeedHarness(t *testing.T, mux *http.ServeMux) (*harness, *FeedStore) {
	t.Helper()
	if mux == nil {
		mux = authMux("active")
	}
	h := newHarness(t, mux)
	require.True(t, h.session.Login(context.Background(), "a@b.com", "hunter2"))
	store := NewFeedStore(h.client, h.session, zap.NewNop())
	return h, store
}

func seedUpdates(s *FeedStore, updates ...records.CompanyUpdate) {
	s.mu.Lock()
	s.updates = updates
	s.mu.Unlock()
}

func TestFeedStore_FetchReplacesPage(t *testing.T) {
	mux := authMux("active")
	mux.HandleFunc("GET /updates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"id": "u-1", "company_id": "c-1", "title": "Hired a CRO", "severity": "high"},
				{"id": "u-2", "company_id": "c-1", "headline": "Opened Berlin office", "read": true},
			},
			"total": 12, "page": 1, "per_page": 50, "has_next": true, "has_prev": false,
		})
	})
	_, store := newFeedHarness(t, mux)

	seedUpdates(store, records.CompanyUpdate{ID: "old"})
	require.True(t, store.Fetch(context.Background(), 1))

	updates := store.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "Hired a CRO", updates[0].Headline)
	assert.Equal(t, records.ImportanceHigh, updates[0].Importance)

	page, total, hasNext := store.Meta()
	assert.Equal(t, 1, page)
	assert.Equal(t, 12, total)
	assert.True(t, hasNext)
	assert.Equal(t, 1, store.UnreadCount())
}

func TestFeedStore_MarkReadOptimistic(t *testing.T) {
	mux := authMux("active")
	mux.HandleFunc("POST /updates/mark-read", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	_, store := newFeedHarness(t, mux)

	seedUpdates(store,
		records.CompanyUpdate{ID: "u-1"},
		records.CompanyUpdate{ID: "u-2"},
	)

	require.True(t, store.MarkRead(context.Background(), "u-1", "u-2"))
	assert.Equal(t, 0, store.UnreadCount())
}

func TestFeedStore_MarkReadRollbackFlipsOnlyWhatItFlipped(t *testing.T) {
	mux := authMux("active")
	mux.HandleFunc("POST /updates/mark-read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, store := newFeedHarness(t, mux)

	seedUpdates(store,
		records.CompanyUpdate{ID: "u-1", IsRead: true}, // already read before this call
		records.CompanyUpdate{ID: "u-2", IsRead: false},
	)

	assert.False(t, store.MarkRead(context.Background(), "u-1", "u-2"))

	updates := store.Updates()
	assert.True(t, updates[0].IsRead, "previously-read update must stay read")
	assert.False(t, updates[1].IsRead, "optimistic flip must be rolled back")

	_, code := store.Err()
	assert.Equal(t, "HTTP_500", code)
}

func TestFeedStore_MarkReadEmptyIsNoop(t *testing.T) {
	_, store := newFeedHarness(t, nil)
	assert.True(t, store.MarkRead(context.Background()))
}

func TestFeedStore_ClearsOnLogout(t *testing.T) {
	h, store := newFeedHarness(t, nil)
	seedUpdates(store, records.CompanyUpdate{ID: "u-1"})

	h.session.HandleLogout("test")
	assert.Empty(t, store.Updates())
}
