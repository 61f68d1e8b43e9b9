package api

import "sync"

// TokenHolder is the mutable credential slot shared by the client and the
// session store. The client reads it on every request; the session store
// writes it on login, logout and restoration. Keeping it separate from
// both breaks the construction cycle between them.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

// NewTokenHolder creates an empty holder.
func NewTokenHolder() *TokenHolder {
	return &TokenHolder{}
}

// Credential implements CredentialSource.
func (h *TokenHolder) Credential() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Set stores a credential.
func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// Clear drops the credential.
func (h *TokenHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
}
