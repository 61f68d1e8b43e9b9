package localstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Op describes what happened to a stored key.
type Op int

const (
	// OpWrite means the key was created or rewritten.
	OpWrite Op = iota
	// OpRemove means the key was deleted.
	OpRemove
)

// Event reports an external change to a stored key. Another process of the
// same product (a second CLI invocation, another surface sharing the state
// directory) writing or removing a key is observed here; this is how a
// logout in one process propagates to all others.
type Event struct {
	Key string
	Op  Op
}

// Watch observes the state directory for changes to this store's keys. The
// returned channel is closed when ctx is cancelled. Changes performed
// through this same Store instance are reported too; callers filter by
// comparing against their own in-memory state.
func (s *Store) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan Event, 16)

	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				key, ok := s.keyFor(ev.Name)
				if !ok {
					continue
				}
				var op Op
				switch {
				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					op = OpRemove
				case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
					op = OpWrite
				default:
					continue
				}
				select {
				case events <- Event{Key: key, Op: op}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("state directory watch error", zap.Error(err))
			}
		}
	}()

	return events, nil
}

// keyFor maps a watched file path back to a store key, rejecting files
// outside this store's namespace (temp files included).
func (s *Store) keyFor(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, s.prefix) || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, s.prefix), ".json"), true
}
