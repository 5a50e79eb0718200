// Package project provides the project and module managers the test
// fixtures orchestrate.
//
// A Project is either light, a minimal fixture meant to be cached and
// shared across many tests, or heavy, a fully realized project backed by
// real on-disk content, created and torn down per test. Modules live inside
// a project and never outlive it.
//
// Closing a project is not disposing it: a closed project keeps its backing
// content and can be reopened; a disposed project is gone, along with its
// modules and (for generated projects) its backing directory.
package project

import (
	"fmt"
	"sync"

	"github.com/dshills/stormtest/platform/disposer"
	"github.com/dshills/stormtest/platform/store"
)

// Kind distinguishes light fixture projects from heavyweight ones.
type Kind int

const (
	// Light is a minimal, fast-to-construct project fixture intended for
	// reuse across many tests.
	Light Kind = iota

	// Heavy is a fully realized project backed by on-disk configuration.
	Heavy
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Light:
		return "light"
	case Heavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// SettingsDir is the directory inside a project that holds persisted
// configuration.
const SettingsDir = ".stormtest"

// Project is a project fixture managed by a Manager.
//
// Project is safe for concurrent use, but mutating operations must be
// performed through the Manager on the dispatch thread.
type Project struct {
	id   string
	name string
	path string
	kind Kind

	// generated marks projects whose backing directory was created by the
	// manager; disposal deletes it.
	generated bool

	store      *store.ComponentStore
	disposable disposer.Disposable

	mu               sync.Mutex
	open             bool
	disposed         bool
	componentsLoaded bool
	modules          []*Module
}

// ID returns the unique project id.
func (p *Project) ID() string { return p.id }

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Path returns the backing directory.
func (p *Project) Path() string { return p.path }

// Kind returns the project kind.
func (p *Project) Kind() Kind { return p.kind }

// IsLight reports whether this is a light fixture project.
func (p *Project) IsLight() bool { return p.kind == Light }

// IsOpen reports whether the project is currently open.
func (p *Project) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// IsDisposed reports whether the project has been disposed.
func (p *Project) IsDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// ComponentsLoaded reports whether component state was loaded on the last
// open.
func (p *Project) ComponentsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.componentsLoaded
}

// Store returns the project's component-state store.
func (p *Project) Store() *store.ComponentStore { return p.store }

// Disposable returns the project's anchor in the disposal tree. Resources
// registered under it are released when the project is disposed.
func (p *Project) Disposable() disposer.Disposable { return p.disposable }

// Modules returns a snapshot of the project's live modules.
func (p *Project) Modules() []*Module {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Module, len(p.modules))
	copy(out, p.modules)
	return out
}

// String implements fmt.Stringer for log output.
func (p *Project) String() string {
	return fmt.Sprintf("%s project %q (%s)", p.kind, p.name, p.id)
}

// Module is a module inside a project. Its lifetime is bounded by the
// project's: disposing the project disposes every module.
type Module struct {
	name    string
	project *Project

	mu       sync.Mutex
	disposed bool
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Project returns the owning project.
func (m *Module) Project() *Project { return m.project }

// IsDisposed reports whether the module has been disposed.
func (m *Module) IsDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// markDisposed flips the disposed flag; returns false if already disposed.
func (m *Module) markDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return false
	}
	m.disposed = true
	return true
}
