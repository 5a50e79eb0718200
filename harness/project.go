package harness

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/project"
)

// SharedModuleName is the name of the module ProjectRule creates inside
// the shared project.
const SharedModuleName = "shared"

// ProjectRule lazily creates one light project, with one module inside
// it, shared by every test that uses the same rule instance. The fixture
// is built at most once per rule: later accesses return the identical
// cached instance, reopening it when a previous teardown closed it.
//
// Per-test teardown only closes the project; the instance stays cached so
// the next test reopens it instead of paying construction again. Reset is
// the single operation that actually disposes the fixture, and it always
// drops the shared module in the same step.
type ProjectRule struct {
	mu      sync.Mutex
	project *project.Project
	module  *project.Module
	opened  bool
}

// NewProjectRule creates an empty shared-project rule.
func NewProjectRule() *ProjectRule {
	return &ProjectRule{}
}

// Project returns the shared light project, creating and opening it on
// first access. Creation and opening run on the dispatch thread.
func (r *ProjectRule) Project() (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projectLocked()
}

func (r *ProjectRule) projectLocked() (*project.Project, error) {
	a := app.Get()
	if a == nil {
		return nil, app.ErrNotBooted
	}

	if r.project == nil || r.project.IsDisposed() {
		name := "shared_" + creationTrace()
		err := a.Dispatcher().Invoke(func() error {
			p, err := a.Projects().CreateLightProject(name)
			if err != nil {
				return err
			}
			r.project = p
			r.module = nil
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("create shared project: %w", err)
		}
	}

	if !r.project.IsOpen() {
		err := a.Dispatcher().Invoke(func() error {
			return a.Projects().OpenProject(r.project)
		})
		if err != nil {
			return nil, fmt.Errorf("open shared project: %w", err)
		}
	}

	r.opened = true
	return r.project, nil
}

// Module returns the shared module, creating the shared project first if
// needed. Exactly one module is created per shared-project lifetime; it
// goes away with the project.
func (r *ProjectRule) Module() (*project.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.projectLocked()
	if err != nil {
		return nil, err
	}

	if r.module == nil || r.module.IsDisposed() {
		a := app.Get()
		err := a.Dispatcher().Invoke(func() error {
			m, err := a.Projects().CreateModule(p, SharedModuleName)
			if err != nil {
				return err
			}
			r.module = m
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("create shared module: %w", err)
		}
	}
	return r.module, nil
}

// SharedModule returns the cached shared module without creating anything.
func (r *ProjectRule) SharedModule() *project.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.module
}

// Apply implements Rule. Teardown closes the shared project when the test
// opened it, leaving the instance cached for the next test.
func (r *ProjectRule) Apply(next Statement, d Description) Statement {
	return BeforeAfter(nil, func(Description) error {
		return r.closeShared()
	}).Apply(next, d)
}

// closeShared closes the shared project if it is currently open. The
// opened flag is cleared even when closing fails, so a broken fixture is
// not closed twice by later tests.
func (r *ProjectRule) closeShared() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		return nil
	}
	r.opened = false

	a := app.Get()
	if a == nil || r.project == nil || r.project.IsDisposed() || !r.project.IsOpen() {
		return nil
	}
	return a.Dispatcher().Invoke(func() error {
		return a.Projects().CloseProject(r.project)
	})
}

// Reset disposes the shared project and forgets the shared module in one
// step. The next Project call builds a fresh fixture.
func (r *ProjectRule) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The module is always reset together with the project; it must never
	// survive a fixture it belongs to.
	p := r.project
	r.project = nil
	r.module = nil
	r.opened = false

	if p == nil || p.IsDisposed() {
		return nil
	}
	a := app.Get()
	if a == nil {
		return nil
	}
	return a.Dispatcher().Invoke(func() error {
		return a.Projects().DisposeProject(p)
	})
}

// creationTrace captures a short call trace for fixture diagnostics: when
// a leaked shared project shows up in a report, its name says which test
// created it.
func creationTrace() string {
	pcs := make([]uintptr, 8)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var parts []string
	for {
		frame, more := frames.Next()
		name := frame.Function
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		if name != "" && !strings.HasPrefix(name, "testing.") {
			parts = append(parts, sanitizeName(name))
		}
		if len(parts) >= 3 || !more {
			break
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "_at_")
}

// sanitizeName keeps fixture path segments portable.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}
