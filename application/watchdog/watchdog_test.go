package watchdog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospectwatch-client/application/stores"
	"prospectwatch-client/infrastructure/api"
	"prospectwatch-client/infrastructure/persistence/localstore"
)

type fixture struct {
	local    *localstore.Store
	session  *stores.SessionStore
	watchdog *Watchdog
	checks   *atomic.Int32
}

// newFixture signs a user in against a fake API that issues the given
// bearer token and reports the session active.
func newFixture(t *testing.T, token string) *fixture {
	t.Helper()

	var checks atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"` + token + `"}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","email":"a@b.com"}`))
	})
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		w.Write([]byte(`{"status":"active","user":{"id":"u-1","email":"a@b.com"}}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	local, err := localstore.New(t.TempDir(), "prospectwatch.", zap.NewNop())
	require.NoError(t, err)

	holder := api.NewTokenHolder()
	client := api.NewClient(server.URL, 2*time.Second, holder, zap.NewNop())
	session := stores.NewSessionStore(client, holder, local, zap.NewNop())
	client.SetUnauthorizedHandler(session.HandleLogout, 2*time.Second)

	require.True(t, session.Login(context.Background(), "a@b.com", "hunter2"))

	return &fixture{
		local:    local,
		session:  session,
		watchdog: New(session, local, time.Hour, zap.NewNop()),
		checks:   &checks,
	}
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func runWatchdog(t *testing.T, w *Watchdog) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("watchdog did not stop on cancel")
		}
	})
	return cancel
}

func TestWatchdog_ExternalLogoutPropagates(t *testing.T) {
	f := newFixture(t, signedToken(t, time.Now().Add(time.Hour)))
	runWatchdog(t, f.watchdog)

	require.True(t, f.session.Authenticated())

	// Another process clears the credential key.
	require.NoError(t, os.Remove(filepath.Join(f.local.Dir(), "prospectwatch.auth.json")))

	assert.Eventually(t, func() bool {
		return !f.session.Authenticated()
	}, 5*time.Second, 20*time.Millisecond, "session must go anonymous without a restart")
}

func TestWatchdog_ExternalRewriteAdoptsSession(t *testing.T) {
	f := newFixture(t, signedToken(t, time.Now().Add(time.Hour)))
	runWatchdog(t, f.watchdog)

	blob := `{"state":{"token":"tok-next","user":{"id":"u-2","email":"next@b.com"},"isAuthenticated":true}}`
	path := filepath.Join(f.local.Dir(), "prospectwatch.auth.json")
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o600))

	assert.Eventually(t, func() bool {
		snap := f.session.Snapshot()
		return snap.Authenticated && snap.Credential == "tok-next"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchdog_ExpiredCredentialForcesLogoutWithoutNetwork(t *testing.T) {
	f := newFixture(t, signedToken(t, time.Now().Add(-time.Minute)))
	runWatchdog(t, f.watchdog)

	before := f.checks.Load()
	f.watchdog.Poke()

	assert.Eventually(t, func() bool {
		return !f.session.Authenticated()
	}, 5*time.Second, 20*time.Millisecond)
	// Expiry is decided locally; no session-status call happens.
	assert.Equal(t, before, f.checks.Load())
}

func TestWatchdog_PokeRunsServerCheck(t *testing.T) {
	f := newFixture(t, signedToken(t, time.Now().Add(time.Hour)))
	runWatchdog(t, f.watchdog)

	before := f.checks.Load()
	f.watchdog.Poke()

	assert.Eventually(t, func() bool {
		return f.checks.Load() > before
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, f.session.Authenticated())
}

func TestWatchdog_IdlesWhenAnonymous(t *testing.T) {
	f := newFixture(t, signedToken(t, time.Now().Add(time.Hour)))
	runWatchdog(t, f.watchdog)

	f.session.HandleLogout("test")
	before := f.checks.Load()

	f.watchdog.Poke()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, before, f.checks.Load())
}

func TestWatchdog_OpaqueCredentialIsNotExpiredLocally(t *testing.T) {
	f := newFixture(t, "opaque-token-without-structure")
	runWatchdog(t, f.watchdog)

	before := f.checks.Load()
	f.watchdog.Poke()

	// The opaque token falls through to the server check.
	assert.Eventually(t, func() bool {
		return f.checks.Load() > before
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, f.session.Authenticated())
}
