package harness

import (
	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/store"
)

// EDTRule runs the test body on the event-dispatch thread when the test
// (or its suite) carries MarkerRunInEDT. Without the marker the body runs
// unmodified on the test goroutine.
type EDTRule struct{}

// Apply implements Rule.
func (EDTRule) Apply(next Statement, d Description) Statement {
	return func() error {
		if !d.Has(MarkerRunInEDT) {
			return next()
		}
		a := app.Get()
		if a == nil {
			return app.ErrNotBooted
		}
		return a.Dispatcher().Invoke(next)
	}
}

// ActiveStoreRule flips the component-state load policy to LoadFull for
// the body of tests carrying MarkerActiveStore, so projects opened inside
// them load persisted state like a production open would. The previous
// policy is restored afterward, failure included.
type ActiveStoreRule struct{}

// Apply implements Rule.
func (ActiveStoreRule) Apply(next Statement, d Description) Statement {
	return func() error {
		if !d.Has(MarkerActiveStore) {
			return next()
		}
		a := app.Get()
		if a == nil {
			return app.ErrNotBooted
		}
		prev := a.Stores().SetDefault(store.LoadFull)
		defer a.Stores().SetDefault(prev)
		return next()
	}
}

// InitInspectionRule enables inspection initialization for the body of
// tests carrying MarkerInitInspections, restoring the previous mode
// afterward even on failure.
type InitInspectionRule struct{}

// Apply implements Rule.
func (InitInspectionRule) Apply(next Statement, d Description) Statement {
	return func() error {
		if !d.Has(MarkerInitInspections) {
			return next()
		}
		a := app.Get()
		if a == nil {
			return app.ErrNotBooted
		}
		prev := a.SetInspectionsEnabled(true)
		defer a.SetInspectionsEnabled(prev)
		return next()
	}
}
