package harness

import (
	"errors"
	"fmt"

	"github.com/dshills/stormtest/harness/projectgen"
	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/project"
	"github.com/dshills/stormtest/platform/store"
)

// HeavyProjectOptions configures CreateOrLoadProject.
type HeavyProjectOptions struct {
	// Name names the project; empty defaults to "heavy".
	Name string

	// Builder, when set, generates the project content before the project
	// is opened. Without a builder the project starts empty.
	Builder projectgen.Builder

	// FullComponentLoad forces component-state loading on open, bypassing
	// the skip optimization tests normally run with.
	FullComponentLoad bool
}

// CreateOrLoadProject creates a heavyweight project at a fresh temporary
// path (populated by opts.Builder when one is given), opens it, runs
// task against it, and disposes it again no matter how task ends. All
// project-manager interaction happens on the dispatch thread.
//
// A task failure is returned first; a teardown failure is joined behind
// it.
func CreateOrLoadProject(a *app.Application, opts HeavyProjectOptions, task func(*project.Project) error) error {
	if a == nil {
		return app.ErrNotBooted
	}

	name := opts.Name
	if name == "" {
		name = "heavy"
	}

	var p *project.Project
	err := a.Dispatcher().Invoke(func() error {
		created, err := a.Projects().CreateProject(name, "")
		if err != nil {
			return err
		}
		p = created

		if opts.Builder != nil {
			// Generated content is the fixture baseline; an undo inside
			// the task must never revert past it.
			a.Undo().RegisterNonUndoable(p.ID())
			if err := opts.Builder.Generate(a.FS(), p.Path()); err != nil {
				return fmt.Errorf("generate project content: %w", err)
			}
		}
		if opts.FullComponentLoad {
			a.Stores().SetPolicy(p.ID(), store.LoadFull)
		}
		return a.Projects().OpenProject(p)
	})
	if err != nil {
		if p != nil {
			// Setup failed after creation; do not leak the fixture.
			_ = a.Dispatcher().Invoke(func() error {
				derr := a.Projects().DisposeProject(p)
				a.Undo().Drop(p.ID())
				return derr
			})
		}
		return err
	}

	taskErr := task(p)

	derr := a.Dispatcher().Invoke(func() error {
		err := a.Projects().DisposeProject(p)
		a.Undo().Drop(p.ID())
		return err
	})
	if derr != nil {
		return errors.Join(taskErr, derr)
	}
	return taskErr
}
