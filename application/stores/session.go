package stores

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"prospectwatch-client/domain/records"
	"prospectwatch-client/infrastructure/api"
	"prospectwatch-client/infrastructure/persistence/localstore"
	apperrors "prospectwatch-client/pkg/errors"
)

// Phase is the session state machine's current state.
type Phase string

const (
	PhaseAnonymous       Phase = "anonymous"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseSessionChecking Phase = "sessionChecking"
)

// AuthStorageKey is the persisted-session key in the local store. The blob
// shape under it mirrors the one the browser surfaces persist, so a shared
// state directory stays interoperable.
const AuthStorageKey = "auth"

type persistedAuth struct {
	State persistedAuthState `json:"state"`
}

type persistedAuthState struct {
	Token           string            `json:"token"`
	User            *records.Identity `json:"user"`
	IsAuthenticated bool              `json:"isAuthenticated"`
}

// SessionSnapshot is an immutable copy of the session state, safe to hand
// to subscribers and UI code.
type SessionSnapshot struct {
	Phase         Phase
	Credential    string
	Identity      *records.Identity
	Authenticated bool
	Loading       bool
	LastError     string
	ErrorCode     string
}

// SessionStore is the single source of truth for authentication state.
// Methods never return errors to callers; failures are recorded as a
// readable message plus a machine code on the store, and success is
// reported as a boolean. The invariant Authenticated == (Credential != ""
// && Identity != nil) holds after every method.
type SessionStore struct {
	client   *api.Client
	holder   *api.TokenHolder
	store    *localstore.Store
	logger   *zap.Logger
	validate *validator.Validate

	mu          sync.Mutex
	phase       Phase
	credential  string
	identity    *records.Identity
	loading     bool
	lastError   string
	errorCode   string
	subscribers []func(SessionSnapshot)
}

type loginInput struct {
	Identifier string `validate:"required,email"`
	Secret     string `validate:"required"`
}

// NewSessionStore creates the session store and restores any persisted
// session from the local store. Restoration is optimistic: a stored
// credential plus identity is trusted without a network round-trip until
// the next periodic check, which is what makes the client feel instantly
// signed in.
func NewSessionStore(client *api.Client, holder *api.TokenHolder, store *localstore.Store, logger *zap.Logger) *SessionStore {
	s := &SessionStore{
		client:   client,
		holder:   holder,
		store:    store,
		logger:   logger,
		validate: validator.New(),
		phase:    PhaseAnonymous,
	}
	s.restore()
	return s
}

func (s *SessionStore) restore() {
	var blob persistedAuth
	if !s.store.Load(AuthStorageKey, &blob) {
		return
	}
	if blob.State.Token == "" || blob.State.User == nil {
		return
	}

	s.mu.Lock()
	s.phase = PhaseAuthenticated
	s.credential = blob.State.Token
	s.identity = blob.State.User
	s.mu.Unlock()
	s.holder.Set(blob.State.Token)

	s.logger.Debug("session restored from storage",
		zap.String("user", blob.State.User.Email),
	)
}

// Snapshot returns a copy of the current session state.
func (s *SessionStore) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() SessionSnapshot {
	var identity *records.Identity
	if s.identity != nil {
		copied := *s.identity
		identity = &copied
	}
	return SessionSnapshot{
		Phase:         s.phase,
		Credential:    s.credential,
		Identity:      identity,
		Authenticated: s.phase == PhaseAuthenticated || s.phase == PhaseSessionChecking,
		Loading:       s.loading,
		LastError:     s.lastError,
		ErrorCode:     s.errorCode,
	}
}

// Credential returns the held bearer credential, empty when anonymous.
func (s *SessionStore) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Authenticated reports whether a session is currently held.
func (s *SessionStore) Authenticated() bool {
	return s.Snapshot().Authenticated
}

// Subscribe registers fn to be called with a snapshot after every state
// change. Callbacks run outside the store lock.
func (s *SessionStore) Subscribe(fn func(SessionSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *SessionStore) notify() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	subscribers := make([]func(SessionSnapshot), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// Login authenticates with the API. It returns true on success; on
// failure the store stays anonymous and carries the error.
func (s *SessionStore) Login(ctx context.Context, identifier, secret string) bool {
	if err := s.validate.Struct(loginInput{Identifier: identifier, Secret: secret}); err != nil {
		s.fail("enter a valid email address and password", apperrors.CodeUnknown)
		return false
	}

	s.mu.Lock()
	s.phase = PhaseAuthenticating
	s.loading = true
	s.lastError = ""
	s.errorCode = ""
	s.mu.Unlock()
	s.notify()

	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", secret)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := s.client.PostForm(ctx, "/auth/login", form, &tokenResp, api.WithoutAuth()); err != nil {
		s.abandonLogin(err)
		return false
	}
	if tokenResp.AccessToken == "" {
		s.abandonLogin(apperrors.NewUnknownError("malformed response from server", nil))
		return false
	}

	s.holder.Set(tokenResp.AccessToken)

	var payload records.Payload
	if err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, &payload); err != nil {
		s.holder.Clear()
		s.abandonLogin(err)
		return false
	}
	identity := records.NormalizeIdentity(payload)

	s.mu.Lock()
	s.phase = PhaseAuthenticated
	s.credential = tokenResp.AccessToken
	s.identity = &identity
	s.loading = false
	s.mu.Unlock()

	s.persist()
	s.notify()

	s.logger.Info("signed in", zap.String("user", identity.Email))
	return true
}

func (s *SessionStore) abandonLogin(err error) {
	s.mu.Lock()
	s.phase = PhaseAnonymous
	s.credential = ""
	s.identity = nil
	s.loading = false
	s.lastError = apperrors.UserMessage(err)
	s.errorCode = apperrors.CodeOf(err)
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) fail(message, code string) {
	s.mu.Lock()
	s.lastError = message
	s.errorCode = code
	s.mu.Unlock()
	s.notify()
}

// Logout tells the server goodbye on a best-effort basis, then clears
// local state unconditionally. Safe to call repeatedly and concurrently.
func (s *SessionStore) Logout(ctx context.Context) {
	if s.Credential() != "" {
		// Server notify is best-effort; a dead network must not keep a
		// user signed in locally.
		if err := s.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
			s.logger.Debug("server logout notify failed", zap.Error(err))
		}
	}
	s.HandleLogout("user")
}

// HandleLogout is the single path that forces the signed-out state: user
// action, 401 responses, expiry and cross-process logout all funnel here.
// Calling it while already anonymous is a no-op.
func (s *SessionStore) HandleLogout(reason string) {
	s.mu.Lock()
	alreadyOut := s.phase == PhaseAnonymous && s.credential == ""
	if !alreadyOut {
		s.phase = PhaseAnonymous
		s.credential = ""
		s.identity = nil
		s.loading = false
	}
	s.mu.Unlock()

	if alreadyOut {
		return
	}

	s.holder.Clear()
	s.store.Delete(AuthStorageKey)
	s.logger.Info("signed out", zap.String("reason", reason))
	s.notify()
}

// CheckSession revalidates the held session against the server. Any
// answer other than an active session clears local state.
func (s *SessionStore) CheckSession(ctx context.Context) bool {
	s.mu.Lock()
	issued := s.credential
	if issued == "" {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseSessionChecking
	s.mu.Unlock()

	var resp struct {
		Status string          `json:"status"`
		User   records.Payload `json:"user"`
	}
	err := s.client.Do(ctx, http.MethodGet, "/auth/session", nil, &resp)
	if err != nil || resp.Status != "active" {
		if err != nil {
			s.logger.Debug("session check failed", zap.Error(err))
		}
		s.HandleLogout("session-check")
		return false
	}

	s.mu.Lock()
	if s.credential != issued {
		// Logged out (or re-signed-in) while the check was in flight; a
		// late active answer must not resurrect the old session.
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseAuthenticated
	if resp.User != nil {
		identity := records.NormalizeIdentity(resp.User)
		s.identity = &identity
	}
	s.mu.Unlock()

	s.persist()
	s.notify()
	return true
}

// ReloadFromStorage re-reads the persisted blob after an external rewrite
// (another process refreshed or replaced the session). A blob without a
// usable session forces logout.
func (s *SessionStore) ReloadFromStorage() {
	var blob persistedAuth
	if !s.store.Load(AuthStorageKey, &blob) || blob.State.Token == "" || blob.State.User == nil {
		s.HandleLogout("external")
		return
	}

	s.mu.Lock()
	s.phase = PhaseAuthenticated
	s.credential = blob.State.Token
	s.identity = blob.State.User
	s.mu.Unlock()
	s.holder.Set(blob.State.Token)
	s.notify()
}

func (s *SessionStore) persist() {
	s.mu.Lock()
	blob := persistedAuth{State: persistedAuthState{
		Token:           s.credential,
		User:            s.identity,
		IsAuthenticated: s.phase == PhaseAuthenticated,
	}}
	s.mu.Unlock()
	s.store.Save(AuthStorageKey, blob)
}
