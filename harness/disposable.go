package harness

import (
	"sync"

	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/disposer"
)

// DisposableRule hands each test a lazily created disposable scoped to
// that test. Nothing is allocated until Disposable is first called; if it
// never is, teardown does nothing. A created disposable is disposed
// exactly once, at teardown, releasing everything registered under it.
type DisposableRule struct {
	mu sync.Mutex
	d  disposer.Disposable
}

// NewDisposableRule creates the rule.
func NewDisposableRule() *DisposableRule {
	return &DisposableRule{}
}

// Disposable returns the per-test disposable, creating and registering it
// under the application root on first access.
func (r *DisposableRule) Disposable() (disposer.Disposable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.d != nil {
		return r.d, nil
	}

	a := app.Get()
	if a == nil {
		return nil, app.ErrNotBooted
	}

	d := disposer.New("test-disposable")
	if err := a.Tree().Register(a.Root(), d); err != nil {
		return nil, err
	}
	r.d = d
	return d, nil
}

// Created reports whether the disposable has been allocated.
func (r *DisposableRule) Created() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d != nil
}

// Apply implements Rule.
func (r *DisposableRule) Apply(next Statement, d Description) Statement {
	return BeforeAfter(nil, func(Description) error {
		r.mu.Lock()
		dd := r.d
		r.d = nil
		r.mu.Unlock()

		if dd == nil {
			return nil
		}
		a := app.Get()
		if a == nil {
			return nil
		}
		a.Tree().Dispose(dd)
		return nil
	}).Apply(next, d)
}
