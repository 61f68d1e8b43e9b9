package watchdog

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"prospectwatch-client/application/stores"
	"prospectwatch-client/infrastructure/persistence/localstore"
)

// Watchdog keeps session state consistent across time and across
// processes sharing the state directory. Three triggers feed it: a
// periodic timer, change events on the persisted auth key, and explicit
// pokes (a surface coming back to the foreground). All of them converge on
// the session store's single HandleLogout path; the watchdog never tears
// state down by itself.
type Watchdog struct {
	session  *stores.SessionStore
	store    *localstore.Store
	interval time.Duration
	logger   *zap.Logger
	wake     chan struct{}
}

// New creates a watchdog. It does nothing until Run is called.
func New(session *stores.SessionStore, store *localstore.Store, interval time.Duration, logger *zap.Logger) *Watchdog {
	return &Watchdog{
		session:  session,
		store:    store,
		interval: interval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
}

// Poke requests an immediate check, e.g. when a surface regains focus.
// Non-blocking; redundant pokes collapse into one.
func (w *Watchdog) Poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run executes the watchdog loop until ctx is cancelled. The loop idles
// while the session is anonymous; stopping is the caller cancelling ctx,
// guaranteed rather than best-effort.
func (w *Watchdog) Run(ctx context.Context) error {
	events, err := w.store.Watch(ctx)
	if err != nil {
		// Timer-driven checks still work without filesystem events.
		w.logger.Warn("state watch unavailable, cross-process logout disabled", zap.Error(err))
		events = nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case now := <-ticker.C:
			// A tick arriving far past schedule means the process was
			// suspended; expiry may have happened while we slept.
			if gap := now.Sub(lastTick); gap > 2*w.interval {
				w.logger.Debug("resumed after suspension", zap.Duration("gap", gap))
			}
			lastTick = now
			w.check(ctx)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Key != stores.AuthStorageKey {
				continue
			}
			// Re-reading the blob handles both directions: removal forces
			// logout, an external rewrite adopts the new session. Events
			// from our own writes reduce to no-ops.
			w.session.ReloadFromStorage()

		case <-w.wake:
			w.check(ctx)
		}
	}
}

func (w *Watchdog) check(ctx context.Context) {
	if !w.session.Authenticated() {
		return
	}
	if w.credentialExpired() {
		w.session.HandleLogout("expired")
		return
	}
	w.session.CheckSession(ctx)
}

// credentialExpired inspects the held credential's exp claim without
// verifying the signature; the client has no verification key and only
// needs a cheap local answer. Opaque non-JWT credentials are left to the
// server check.
func (w *Watchdog) credentialExpired() bool {
	cred := w.session.Credential()
	if cred == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cred, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
