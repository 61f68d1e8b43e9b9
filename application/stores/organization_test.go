package stores

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrgHarness(t *testing.T, mux *http.ServeMux) (*harness, *OrgStore) {
	t.Helper()
	h := newHarness(t, mux)
	require.True(t, h.session.Login(context.Background(), "a@b.com", "hunter2"))
	store := NewOrgStore(h.client, h.session, zap.NewNop())
	return h, store
}

func TestOrgStore_FetchAllSections(t *testing.T) {
	mux := authMux("active")
	mux.HandleFunc("GET /organization", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "org-1", "name": "Acme", "members": 4})
	})
	mux.HandleFunc("GET /organization/members", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"user_id": "u-1", "email": "a@acme.example", "full_name": "Ada", "role": "owner"},
			},
			"total": 1, "page": 1, "per_page": 50,
		})
	})
	mux.HandleFunc("GET /billing/plan", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tier": "growth", "seat_limit": 10, "seats_used": 4})
	})
	_, store := newOrgHarness(t, mux)

	require.True(t, store.Fetch(context.Background()))

	assert.Equal(t, "Acme", store.Organization().Name)
	require.Len(t, store.Members(), 1)
	assert.Equal(t, "Ada", store.Members()[0].DisplayName)
	assert.Equal(t, "growth", store.Plan().Name)
	assert.False(t, store.IsDemo("organization"))
	assert.False(t, store.IsDemo("members"))
	assert.False(t, store.IsDemo("plan"))
	assert.True(t, store.Loaded())
}

func TestOrgStore_FailedSectionDegradesToDemo(t *testing.T) {
	mux := authMux("active")
	mux.HandleFunc("GET /organization", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "org-1", "name": "Acme"})
	})
	// /organization/members and /billing/plan 404.
	_, store := newOrgHarness(t, mux)

	// Degrading is not an error: Fetch still succeeds.
	require.True(t, store.Fetch(context.Background()))

	assert.Equal(t, "Acme", store.Organization().Name)
	assert.False(t, store.IsDemo("organization"))

	assert.True(t, store.IsDemo("members"))
	assert.Len(t, store.Members(), 3)
	assert.True(t, store.IsDemo("plan"))
	assert.Equal(t, "trial", store.Plan().Name)
}

func TestOrgStore_ClearsOnLogout(t *testing.T) {
	mux := authMux("active")
	h, store := newOrgHarness(t, mux)

	require.True(t, store.Fetch(context.Background()))
	require.True(t, store.Loaded())

	h.session.HandleLogout("test")

	assert.False(t, store.Loaded())
	assert.Empty(t, store.Organization().Name)
	assert.Empty(t, store.Members())
}
