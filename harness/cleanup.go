package harness

import (
	"errors"

	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/project"
)

// DisposeNonLightProjectsRule is a post-test safety net: after the body it
// force-disposes every open heavyweight project, so a test that forgot to
// tear its project down cannot leak it into the next test. The shared
// light fixture is left alone.
//
// The sweep is a no-op when the application has already been shut down,
// and skips projects that are already disposed.
type DisposeNonLightProjectsRule struct{}

// Apply implements Rule.
func (DisposeNonLightProjectsRule) Apply(next Statement, d Description) Statement {
	return func() error {
		err := next()

		a := app.Get()
		if a == nil {
			return err
		}

		var swept []*project.Project
		for _, p := range a.Projects().OpenProjects() {
			if p.IsLight() || p.IsDisposed() {
				continue
			}
			swept = append(swept, p)
		}
		if len(swept) == 0 {
			return err
		}

		aerr := a.Dispatcher().Invoke(func() error {
			var errs []error
			for _, p := range swept {
				a.Logger().Warn("test %q leaked %s; disposing", d.Name, p)
				if derr := a.Projects().DisposeProject(p); derr != nil {
					errs = append(errs, derr)
				}
			}
			return errors.Join(errs...)
		})
		if aerr != nil {
			return errors.Join(err, aerr)
		}
		return err
	}
}

// DisposeModulesRule disposes, after each test, every module of the shared
// project except the shared module itself. The shared module and the
// shared project are never touched.
type DisposeModulesRule struct {
	// Projects is the rule owning the shared fixture.
	Projects *ProjectRule
}

// Apply implements Rule.
func (r DisposeModulesRule) Apply(next Statement, d Description) Statement {
	return func() error {
		err := next()

		a := app.Get()
		if a == nil || r.Projects == nil {
			return err
		}

		r.Projects.mu.Lock()
		p := r.Projects.project
		shared := r.Projects.module
		r.Projects.mu.Unlock()

		if p == nil || p.IsDisposed() {
			return err
		}

		aerr := a.Dispatcher().Invoke(func() error {
			for _, m := range p.Modules() {
				if m == shared {
					continue
				}
				if derr := a.Projects().DisposeModule(m); derr != nil &&
					!errors.Is(derr, project.ErrModuleDisposed) {
					return derr
				}
			}
			return nil
		})
		if aerr != nil {
			return errors.Join(err, aerr)
		}
		return err
	}
}
