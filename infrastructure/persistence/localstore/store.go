package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store is a file-backed key-value store for client state that must
// survive restarts: the persisted session blob, the tracked-company cache
// and user settings. Each key lives in its own JSON file, namespaced under
// a product prefix so multiple product surfaces sharing a machine do not
// collide.
//
// The store is deliberately fail-open: a missing, unreadable or malformed
// value is treated as "no stored value". Restoration is best-effort and
// callers must always tolerate an empty answer.
type Store struct {
	dir    string
	prefix string
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a store rooted at dir. The directory is created if missing.
func New(dir, prefix string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Load reads the value stored under key into v. It returns false when no
// usable value exists; malformed content is discarded, not propagated.
func (s *Store) Load(key string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("discarding malformed stored value",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Save persists v under key. Errors are swallowed and logged; persistence
// is a mirror of in-memory state, never the source of truth.
func (s *Store) Save(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode value for storage",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	// Write to a temp file first so a crash mid-write never leaves a
	// half-written value behind.
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Warn("failed to write stored value",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Warn("failed to commit stored value",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Delete removes the value stored under key. Deleting an absent key is a
// no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete stored value",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, s.prefix+key+".json")
}
