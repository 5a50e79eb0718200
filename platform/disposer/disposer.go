// Package disposer provides hierarchical resource disposal for test fixtures.
//
// Resources register themselves under a parent Disposable; disposing the
// parent disposes every descendant, children before parents, each exactly
// once. The harness uses a single tree rooted at the application so that
// shutting the application down releases every fixture created during a run.
package disposer

import (
	"errors"
	"sync"
)

// Common errors for disposal operations.
var (
	// ErrParentDisposed is returned when registering under an already
	// disposed parent.
	ErrParentDisposed = errors.New("parent is already disposed")

	// ErrChildDisposed is returned when registering a child that was
	// already disposed.
	ErrChildDisposed = errors.New("child is already disposed")
)

// Disposable is a resource with explicit teardown.
type Disposable interface {
	// Dispose releases the resource. It is called at most once per
	// resource by a Tree.
	Dispose()
}

// leaf is a Disposable with an optional teardown callback.
type leaf struct {
	name string
	fn   func()
}

func (l *leaf) Dispose() {
	if l.fn != nil {
		l.fn()
	}
}

func (l *leaf) String() string { return l.name }

// New creates a named Disposable with no teardown action of its own.
// It exists to anchor children in a Tree.
func New(name string) Disposable {
	return &leaf{name: name}
}

// NewFunc creates a named Disposable that runs fn when disposed.
func NewFunc(name string, fn func()) Disposable {
	return &leaf{name: name, fn: fn}
}

// Tree tracks parent/child relationships between Disposables and
// guarantees children-first, exactly-once disposal.
//
// Tree is safe for concurrent use.
type Tree struct {
	mu       sync.Mutex
	children map[Disposable][]Disposable
	parent   map[Disposable]Disposable
	disposed map[Disposable]bool
}

// NewTree creates an empty disposal tree.
func NewTree() *Tree {
	return &Tree{
		children: make(map[Disposable][]Disposable),
		parent:   make(map[Disposable]Disposable),
		disposed: make(map[Disposable]bool),
	}
}

// Register attaches child to parent. When parent is disposed, child is
// disposed first. Registering under a disposed parent or re-registering a
// disposed child is an error.
func (t *Tree) Register(parent, child Disposable) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed[parent] {
		return ErrParentDisposed
	}
	if t.disposed[child] {
		return ErrChildDisposed
	}

	// Re-parenting: detach from the previous parent first.
	if prev, ok := t.parent[child]; ok {
		t.detachLocked(prev, child)
	}

	t.parent[child] = parent
	t.children[parent] = append(t.children[parent], child)
	return nil
}

// detachLocked removes child from parent's child list.
func (t *Tree) detachLocked(parent, child Disposable) {
	kids := t.children[parent]
	for i, c := range kids {
		if c == child {
			t.children[parent] = append(kids[:i:i], kids[i+1:]...)
			return
		}
	}
}

// Dispose disposes d and its entire subtree, deepest children first,
// each node exactly once. Disposing an already disposed node is a no-op.
func (t *Tree) Dispose(d Disposable) {
	t.mu.Lock()
	if t.disposed[d] {
		t.mu.Unlock()
		return
	}
	order := t.collectLocked(d, nil)
	for _, n := range order {
		t.disposed[n] = true
	}
	if p, ok := t.parent[d]; ok {
		t.detachLocked(p, d)
		delete(t.parent, d)
	}
	t.mu.Unlock()

	// Dispose outside the lock; teardown callbacks may re-enter the tree.
	for _, n := range order {
		n.Dispose()
	}
}

// collectLocked appends d's subtree to out in disposal order:
// children (most recently registered first), then d itself.
func (t *Tree) collectLocked(d Disposable, out []Disposable) []Disposable {
	kids := t.children[d]
	for i := len(kids) - 1; i >= 0; i-- {
		if !t.disposed[kids[i]] {
			out = t.collectLocked(kids[i], out)
		}
	}
	delete(t.children, d)
	return append(out, d)
}

// IsDisposed reports whether d has been disposed through this tree.
func (t *Tree) IsDisposed(d Disposable) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed[d]
}
