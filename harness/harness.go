// Package harness provides composable test-lifecycle rules for the
// stormtest platform.
//
// A Rule wraps a test body (a Statement) with setup and teardown. Rules
// compose through Chain, which nests them so the first rule's setup runs
// first and its teardown runs last. Shared fixtures (the application, one
// light project, one module inside it) are cached across tests so a suite
// pays their construction cost once.
//
// A typical suite:
//
//	var projects = harness.NewProjectRule()
//
//	func TestRename(t *testing.T) {
//		harness.Run(t, harness.Describe(t),
//			func() error {
//				p, err := projects.Project()
//				...
//			},
//			harness.NewApplicationRule(),
//			projects,
//			harness.EDTRule{},
//			harness.DisposeModulesRule{Projects: projects},
//		)
//	}
package harness

import (
	"errors"
	"testing"
)

// Statement is a unit of test execution: the body, or the body already
// wrapped by inner rules.
type Statement func() error

// Rule wraps a statement with setup/teardown or conditional behavior.
type Rule interface {
	// Apply returns a statement that runs next inside this rule.
	Apply(next Statement, d Description) Statement
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(next Statement, d Description) Statement

// Apply implements Rule.
func (f RuleFunc) Apply(next Statement, d Description) Statement {
	return f(next, d)
}

// Marker is an explicit capability request attached to a test or suite,
// consulted by conditional rules.
type Marker string

// Markers understood by the built-in conditional rules.
const (
	// MarkerRunInEDT runs the test body on the event-dispatch thread.
	MarkerRunInEDT Marker = "run-in-edt"

	// MarkerActiveStore runs the test with full component-state loading.
	MarkerActiveStore Marker = "active-store"

	// MarkerInitInspections runs the test with inspections initialized.
	MarkerInitInspections Marker = "init-inspections"
)

// Description carries per-test metadata: the test name plus the markers
// requested at test and suite level.
type Description struct {
	// Name is the test name, used in fixture names and log output.
	Name string

	// Markers are test-level capability requests.
	Markers []Marker

	// SuiteMarkers are suite-level requests, consulted when a marker is
	// absent at test level.
	SuiteMarkers []Marker
}

// Has reports whether m is requested, checking test-level markers first
// and falling back to suite-level ones.
func (d Description) Has(m Marker) bool {
	for _, x := range d.Markers {
		if x == m {
			return true
		}
	}
	for _, x := range d.SuiteMarkers {
		if x == m {
			return true
		}
	}
	return false
}

// With returns a copy of the description with extra test-level markers.
func (d Description) With(markers ...Marker) Description {
	d.Markers = append(append([]Marker(nil), d.Markers...), markers...)
	return d
}

// Describe builds a Description from the running test.
func Describe(t *testing.T, markers ...Marker) Description {
	return Description{Name: t.Name(), Markers: markers}
}

// BeforeAfter builds a rule from a before/after pair. After runs whenever
// before succeeded, even when the body failed; a body error is kept first
// so errors.Is still finds the original cause behind any teardown error.
func BeforeAfter(before, after func(d Description) error) Rule {
	return RuleFunc(func(next Statement, d Description) Statement {
		return func() error {
			if before != nil {
				if err := before(d); err != nil {
					return err
				}
			}
			err := next()
			if after != nil {
				if aerr := after(d); aerr != nil {
					return errors.Join(err, aerr)
				}
			}
			return err
		}
	})
}

// Before builds a setup-only rule.
func Before(fn func(d Description) error) Rule {
	return BeforeAfter(fn, nil)
}

// After builds a teardown-only rule.
func After(fn func(d Description) error) Rule {
	return BeforeAfter(nil, fn)
}

// Run executes stmt wrapped in the given rules (first rule outermost) and
// fails t on error.
func Run(t *testing.T, d Description, stmt Statement, rules ...Rule) {
	t.Helper()

	if d.Name == "" {
		d.Name = t.Name()
	}
	if err := NewChain(rules...).Around(stmt, d)(); err != nil {
		t.Fatal(err)
	}
}
