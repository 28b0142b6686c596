// Package filestore implements the object registry and its JSON file
// persistence. The file is the source of truth; the registry mirrors it in
// memory between Reload and Persist.
package filestore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// DefaultFileName is the backing file name inside the data directory.
const DefaultFileName = "file.json"

// ErrNotFound is returned when no entity is registered under a key.
var ErrNotFound = errors.New("no instance found")

// Index is a query cache kept in step with the registry. Failures are
// logged and never affect the backing file.
type Index interface {
	Replace(entities []types.Entity) error
	Put(e types.Entity) error
	Remove(key string) error
	Count(typeName string) (int, error)
}

// Store holds every live entity keyed by "<Type>.<id>" and persists them to
// a single JSON file.
type Store struct {
	mu      sync.Mutex
	path    string
	objects map[string]types.Entity
	order   []string // insertion order of keys; may hold keys since removed
	index   Index
	log     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithIndex attaches a query cache used by Count.
func WithIndex(ix Index) Option {
	return func(s *Store) { s.index = ix }
}

// New returns an empty Store backed by the file at path. Call Reload to
// populate it.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		objects: make(map[string]types.Entity),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// All returns the live registry. It is not copied; callers may delete
// entries directly. Access through All is not synchronized.
func (s *Store) All() map[string]types.Entity {
	return s.objects
}

// Keys returns registered keys in insertion order. A non-empty typeName
// restricts the result to entities of that type.
func (s *Store) Keys(typeName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.orderedKeysLocked()
	if typeName == "" {
		return keys
	}
	return slices.DeleteFunc(keys, func(key string) bool {
		return s.objects[key].TypeName() != typeName
	})
}

// Get returns the entity registered under key.
func (s *Store) Get(key string) (types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return e, nil
}

// Register inserts e under its composite key and binds it to the store so
// that Save persists through it. An existing entry with the same key is
// replaced.
func (s *Store) Register(e types.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerLocked(e)
}

func (s *Store) registerLocked(e types.Entity) {
	key := types.Key(e)
	if _, ok := s.objects[key]; !ok {
		s.order = append(s.order, key)
	}
	s.objects[key] = e
	e.Core().Bind(s)
	s.indexLocked(e)
}

// Delete removes the entity registered under key. The file is not touched;
// call Persist to commit the removal.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.objects, key)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == key })
	s.unindexLocked(key)
	return nil
}

// Count returns the number of registered entities of typeName, or of all
// entities when typeName is empty. The index answers when attached.
func (s *Store) Count(typeName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		// Bring the index in line with edits made through All.
		s.orderedKeysLocked()
		n, err := s.index.Count(typeName)
		if err == nil {
			return n
		}
		s.log.Warn("index count failed", zap.String("type", typeName), zap.Error(err))
	}

	n := 0
	for _, e := range s.objects {
		if typeName == "" || e.TypeName() == typeName {
			n++
		}
	}
	return n
}

// orderedKeysLocked returns live keys in insertion order. Keys removed
// through All are dropped from the order; keys added through All are
// appended in sorted order. The index follows both kinds of change.
func (s *Store) orderedKeysLocked() []string {
	live := make([]string, 0, len(s.objects))
	seen := make(map[string]bool, len(s.objects))
	for _, key := range s.order {
		if seen[key] {
			continue
		}
		if _, ok := s.objects[key]; !ok {
			s.unindexLocked(key)
			continue
		}
		seen[key] = true
		live = append(live, key)
	}
	if len(live) < len(s.objects) {
		var extra []string
		for key := range s.objects {
			if !seen[key] {
				extra = append(extra, key)
			}
		}
		slices.Sort(extra)
		for _, key := range extra {
			s.indexLocked(s.objects[key])
		}
		live = append(live, extra...)
	}
	s.order = live
	return slices.Clone(live)
}

func (s *Store) indexLocked(e types.Entity) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(e); err != nil {
		s.log.Warn("index put failed", zap.String("key", types.Key(e)), zap.Error(err))
	}
}

func (s *Store) unindexLocked(key string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(key); err != nil {
		s.log.Warn("index remove failed", zap.String("key", key), zap.Error(err))
	}
}
