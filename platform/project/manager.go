package project

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/stormtest/platform/disposer"
	"github.com/dshills/stormtest/platform/store"
	"github.com/dshills/stormtest/platform/vfs"
)

// Config wires a Manager to the platform services it needs.
type Config struct {
	// FS is the file system backing project content.
	FS vfs.FS

	// Temp generates unique paths for created projects.
	Temp *vfs.TempPather

	// Stores tracks the component-state load policy per project.
	Stores *store.Manager

	// Tree is the disposal tree; every project is registered under Root.
	Tree *disposer.Tree

	// Root anchors all projects in the disposal tree.
	Root disposer.Disposable
}

// Manager creates, opens, closes, and disposes projects and modules.
//
// Manager is safe for concurrent use. Callers are expected to perform
// mutating operations on the dispatch thread; the manager does not enforce
// this itself.
type Manager struct {
	fs     vfs.FS
	temp   *vfs.TempPather
	stores *store.Manager
	tree   *disposer.Tree
	root   disposer.Disposable

	nextID atomic.Uint64

	mu   sync.Mutex
	open []*Project
}

// NewManager creates a project manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		fs:     cfg.FS,
		temp:   cfg.Temp,
		stores: cfg.Stores,
		tree:   cfg.Tree,
		root:   cfg.Root,
	}
}

// newProject allocates a Project and registers it in the disposal tree.
func (m *Manager) newProject(name, path string, kind Kind, generated bool) (*Project, error) {
	p := &Project{
		id:        fmt.Sprintf("p-%d", m.nextID.Add(1)),
		name:      name,
		path:      path,
		kind:      kind,
		generated: generated,
	}
	p.store = store.New(m.fs, m.fs.Join(path, SettingsDir, store.StateFileName))
	p.disposable = disposer.NewFunc("project:"+p.id, func() {
		m.finalize(p)
	})
	if err := m.tree.Register(m.root, p.disposable); err != nil {
		return nil, err
	}
	return p, nil
}

// finalize is the disposal-tree callback: it marks the project disposed,
// drops its modules, and deletes generated backing content.
func (m *Manager) finalize(p *Project) {
	p.mu.Lock()
	p.disposed = true
	p.open = false
	for _, mod := range p.modules {
		mod.markDisposed()
	}
	p.modules = nil
	generated := p.generated
	path := p.path
	p.mu.Unlock()

	m.removeOpen(p)
	m.stores.Forget(p.id)

	if generated {
		_ = m.fs.RemoveAll(path)
	}
}

// CreateLightProject creates a light fixture project at a fresh temporary
// path. The project starts closed.
func (m *Manager) CreateLightProject(name string) (*Project, error) {
	path, err := m.temp.CreateTempDir("light_" + name)
	if err != nil {
		return nil, err
	}
	return m.newProject(name, path, Light, true)
}

// CreateProject creates a heavyweight project. With an empty path a fresh
// temporary directory is generated (and deleted again on disposal);
// otherwise the given directory is created if needed and left in place.
func (m *Manager) CreateProject(name, path string) (*Project, error) {
	generated := path == ""
	if generated {
		p, err := m.temp.CreateTempDir("heavy_" + name)
		if err != nil {
			return nil, err
		}
		path = p
	} else if err := m.fs.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return m.newProject(name, path, Heavy, generated)
}

// LoadProject creates a heavyweight project over existing content at path.
// The content is owned by the caller and survives disposal.
func (m *Manager) LoadProject(path string) (*Project, error) {
	if !m.fs.IsDir(path) {
		return nil, fmt.Errorf("load %q: %w", path, ErrPathNotFound)
	}
	abs, err := m.fs.Abs(path)
	if err != nil {
		return nil, err
	}
	name := baseName(abs)
	return m.newProject(name, abs, Heavy, false)
}

// OpenProject opens a created or previously closed project. Component
// state is loaded only when the project's load policy is LoadFull.
func (m *Manager) OpenProject(p *Project) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrProjectDisposed
	}
	if p.open {
		p.mu.Unlock()
		return ErrProjectOpen
	}
	p.open = true
	p.mu.Unlock()

	loaded := false
	if m.stores.Policy(p.id) == store.LoadFull {
		if err := p.store.Load(); err != nil {
			p.mu.Lock()
			p.open = false
			p.mu.Unlock()
			return fmt.Errorf("open %s: %w", p, err)
		}
		loaded = true
	}

	p.mu.Lock()
	p.componentsLoaded = loaded
	p.mu.Unlock()

	m.mu.Lock()
	m.open = append(m.open, p)
	m.mu.Unlock()
	return nil
}

// CloseProject closes an open project without disposing it. Loaded
// component state is saved back first.
func (m *Manager) CloseProject(p *Project) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrProjectDisposed
	}
	if !p.open {
		p.mu.Unlock()
		return ErrProjectNotOpen
	}
	loaded := p.componentsLoaded
	p.mu.Unlock()

	if loaded {
		if err := p.store.Save(); err != nil {
			return fmt.Errorf("close %s: %w", p, err)
		}
	}

	p.mu.Lock()
	p.open = false
	p.componentsLoaded = false
	p.mu.Unlock()

	m.removeOpen(p)
	return nil
}

// DisposeProject closes the project if needed and disposes it along with
// every module and every resource registered under its Disposable.
// Disposing an already disposed project is a no-op.
//
// Disposal itself cannot fail, but closing an open project saves loaded
// component state; a save failure is returned after the project has still
// been fully disposed.
func (m *Manager) DisposeProject(p *Project) error {
	var closeErr error
	if p.IsOpen() {
		if err := m.CloseProject(p); err != nil &&
			!errors.Is(err, ErrProjectNotOpen) && !errors.Is(err, ErrProjectDisposed) {
			closeErr = err
		}
	}
	m.tree.Dispose(p.disposable)
	return closeErr
}

// OpenProjects returns a snapshot of currently open projects.
func (m *Manager) OpenProjects() []*Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Project, len(m.open))
	copy(out, m.open)
	return out
}

// removeOpen drops p from the open list.
func (m *Manager) removeOpen(p *Project) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, q := range m.open {
		if q == p {
			m.open = append(m.open[:i:i], m.open[i+1:]...)
			return
		}
	}
}

// CreateModule creates a module named name inside an open project.
func (m *Manager) CreateModule(p *Project, name string) (*Module, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return nil, ErrProjectDisposed
	}
	if !p.open {
		return nil, ErrProjectNotOpen
	}
	// p.modules holds only live modules; DisposeModule removes entries.
	for _, mod := range p.modules {
		if mod.name == name {
			return nil, fmt.Errorf("create module %q: %w", name, ErrModuleExists)
		}
	}

	mod := &Module{name: name, project: p}
	p.modules = append(p.modules, mod)
	return mod, nil
}

// DisposeModule disposes a single module. The owning project stays intact.
func (m *Manager) DisposeModule(mod *Module) error {
	p := mod.project
	p.mu.Lock()
	defer p.mu.Unlock()

	// Lock order is always project before module.
	if !mod.markDisposed() {
		return ErrModuleDisposed
	}
	for i, q := range p.modules {
		if q == mod {
			p.modules = append(p.modules[:i:i], p.modules[i+1:]...)
			break
		}
	}
	return nil
}

// baseName returns the last path element without importing path/filepath,
// so it works for both OS and in-memory paths.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
