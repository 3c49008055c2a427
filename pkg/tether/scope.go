package tether

import (
	"sync"
	"sync/atomic"
)

// Scope is a bounded unit of lifetime that owns binders and other cleanups.
// When a Scope is disposed, every binder and cleanup registered with it is
// released, so nothing acquired inside the scope outlives it.
//
// Scopes form a hierarchy: a child scope is disposed with its parent. This
// mirrors nested units of work (a connection inside a server, a view inside
// a page).
type Scope struct {
	id uint64

	// parent is the parent Scope in the hierarchy, nil for a root Scope.
	parent *Scope

	// children are child Scopes.
	children   []*Scope
	childrenMu sync.Mutex

	// cleanups are teardown functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// disposed indicates whether this Scope has been disposed.
	disposed atomic.Bool
}

// NewScope creates a new Scope with the given parent.
// The new Scope is automatically registered as a child of the parent.
// If parent is nil, creates a root Scope.
//
// A Scope created under an already disposed parent is born disposed: its
// cleanups run immediately as they are registered.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		if parent.disposed.Load() {
			s.disposed.Store(true)
		} else {
			parent.addChild(s)
		}
	}

	return s
}

// ID returns the unique identifier for this Scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent Scope, or nil if this is a root Scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed returns true if this Scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// addChild registers a child Scope.
func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

// removeChild removes a child Scope from this Scope's children.
func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// OnCleanup registers a cleanup function to run when this Scope is disposed.
// If the Scope is already disposed, fn runs immediately; late registrations
// never silently leak.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Dispose disposes this Scope, all its children, and all its cleanups.
// Children are disposed first, in reverse order (last created first), then
// cleanups run in reverse registration order. Dispose is idempotent; second
// and later calls are no-ops.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		// Already disposed
		return
	}

	// Remove from parent's children list
	if s.parent != nil {
		s.parent.removeChild(s)
	}

	// Dispose children in reverse order
	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	// Run cleanups in reverse order
	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
