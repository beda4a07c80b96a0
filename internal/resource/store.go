// Package resource caches named native resources with reference counting.
//
// A name is loaded at most once while any handle to it is outstanding. Every
// Load or LoadByName returns a distinct Handle; releasing the last handle of a
// name disposes its payload and forgets the name, so a later Load runs the
// loader again.
package resource

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrReleased = errors.New("handle already released")
	ErrClosed   = errors.New("resource store closed")
)

// Handle refers to one reference on a named resource. The zero Handle is
// invalid.
type Handle struct {
	name string
	id   uint64
}

func (h Handle) Name() string { return h.name }
func (h Handle) Valid() bool  { return h.id != 0 }

func (h Handle) String() string {
	if !h.Valid() {
		return "Handle(invalid)"
	}
	return fmt.Sprintf("Handle(%s#%d)", h.name, h.id)
}

// Loader produces the payload for a name on a cache miss.
type Loader[T any] func() (T, error)

type entry[T any] struct {
	value   T
	handles map[uint64]struct{}
}

// Store maps names to payloads of type T. It is safe for concurrent use;
// loaders run under the store lock and must not call back into the same store.
type Store[T any] struct {
	kind    string
	dispose func(name string, v T)
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
	nextID  uint64
	closed  bool
}

// NewStore creates a store. kind names the payload type in logs; dispose runs
// exactly once per payload, when its last handle is released or on Close.
func NewStore[T any](kind string, dispose func(name string, v T), log *zap.Logger) *Store[T] {
	if dispose == nil {
		dispose = func(string, T) {}
	}
	return &Store[T]{
		kind:    kind,
		dispose: dispose,
		log:     log.With(zap.String("store", kind)),
		entries: make(map[string]*entry[T]),
	}
}

// Load returns a handle to name, invoking load only when name is not resident.
// A resident name is shared regardless of the parameters load would have used.
func (s *Store[T]) Load(name string, load Loader[T]) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Handle{}, ErrClosed
	}
	if e, ok := s.entries[name]; ok {
		return s.acquire(name, e), nil
	}
	v, err := load()
	if err != nil {
		return Handle{}, fmt.Errorf("load %s %q: %w", s.kind, name, err)
	}
	e := &entry[T]{value: v, handles: make(map[uint64]struct{}, 1)}
	s.entries[name] = e
	s.log.Debug("resource loaded", zap.String("name", name))
	return s.acquire(name, e), nil
}

// LoadByName returns a new handle to an already resident name.
func (s *Store[T]) LoadByName(name string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Handle{}, ErrClosed
	}
	e, ok := s.entries[name]
	if !ok {
		return Handle{}, fmt.Errorf("%s %q: %w", s.kind, name, ErrNotFound)
	}
	return s.acquire(name, e), nil
}

func (s *Store[T]) acquire(name string, e *entry[T]) Handle {
	s.nextID++
	e.handles[s.nextID] = struct{}{}
	return Handle{name: name, id: s.nextID}
}

// Borrow returns the payload behind h without taking a reference.
func (s *Store[T]) Borrow(h Handle) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	e, err := s.lookup(h)
	if err != nil {
		return zero, err
	}
	return e.value, nil
}

// Release drops the reference held by h. Releasing the same handle twice
// returns ErrReleased.
func (s *Store[T]) Release(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	delete(e.handles, h.id)
	if len(e.handles) == 0 {
		delete(s.entries, h.name)
		s.dispose(h.name, e.value)
		s.log.Debug("resource disposed", zap.String("name", h.name))
	}
	return nil
}

func (s *Store[T]) lookup(h Handle) (*entry[T], error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%s: %w", h, ErrReleased)
	}
	e, ok := s.entries[h.name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, ErrReleased)
	}
	if _, ok := e.handles[h.id]; !ok {
		return nil, fmt.Errorf("%s: %w", h, ErrReleased)
	}
	return e, nil
}

// Refs returns the number of outstanding handles to name.
func (s *Store[T]) Refs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return len(e.handles)
	}
	return 0
}

// Len returns the number of resident names.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close reports every name still resident as a leak, disposes the remaining
// payloads and rejects further loads. It returns the number of leaked names.
func (s *Store[T]) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.closed = true

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := s.entries[name]
		s.log.Warn("resource leaked",
			zap.String("name", name),
			zap.Int("refs", len(e.handles)))
		s.dispose(name, e.value)
	}
	s.entries = make(map[string]*entry[T])
	return len(names)
}
