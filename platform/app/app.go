// Package app provides the shared host application the test fixtures run
// against.
//
// One Application exists per process. It owns the dispatch thread, the
// virtual file system and its snapshot cache, the project and module
// managers, the component-state store manager, the undo manager, and the
// disposal tree. Test rules obtain it with GetOrBoot and tear everything
// down with ShutDown at the end of a run.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/stormtest/platform/disposer"
	"github.com/dshills/stormtest/platform/edt"
	"github.com/dshills/stormtest/platform/project"
	"github.com/dshills/stormtest/platform/store"
	"github.com/dshills/stormtest/platform/undo"
	"github.com/dshills/stormtest/platform/vfs"
)

// Application errors.
var (
	// ErrAlreadyBooted indicates Boot was called while an application is
	// running.
	ErrAlreadyBooted = errors.New("application already booted")

	// ErrNotBooted indicates no application instance is running.
	ErrNotBooted = errors.New("application not booted")
)

// Application is the host platform instance shared by all tests in a
// process.
type Application struct {
	logger *Logger

	dispatcher *edt.Dispatcher
	fs         vfs.FS
	temp       *vfs.TempPather
	snapshot   *vfs.Snapshot
	stores     *store.Manager
	undoMgr    *undo.Manager
	tree       *disposer.Tree
	root       disposer.Disposable
	projects   *project.Manager
	screen     *Screen

	inspections atomic.Bool
	shutdown    atomic.Bool
}

// Options configures application boot.
type Options struct {
	// FS overrides the file system. Defaults to the OS file system.
	FS vfs.FS

	// TempBase is the directory under which fixture paths are generated.
	// Defaults to the OS temp directory (or "/tmp" for an in-memory FS).
	TempBase string

	// Headless boots with a simulation screen. This is the mode every
	// test runs in; a real terminal screen is only used by the self-check
	// binary when attached to a TTY.
	Headless bool

	// Logger overrides the default stderr logger.
	Logger *Logger
}

var (
	currentMu sync.Mutex
	current   *Application
)

// Boot creates the process-wide application instance. It fails with
// ErrAlreadyBooted if one is already running.
func Boot(opts Options) (*Application, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil {
		return nil, ErrAlreadyBooted
	}

	a, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	current = a
	return a, nil
}

// GetOrBoot returns the running application, booting one if needed.
func GetOrBoot(opts Options) (*Application, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil {
		return current, nil
	}
	a, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	current = a
	return a, nil
}

// Get returns the running application or nil.
func Get() *Application {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// IsShutDown reports whether no application instance is running.
func IsShutDown() bool {
	return Get() == nil
}

// ShutDown tears the running application down: projects are disposed via
// the root disposable, the screen is finalized, and the dispatch thread is
// stopped. Calling it with no running application is a no-op.
func ShutDown() {
	currentMu.Lock()
	a := current
	current = nil
	currentMu.Unlock()

	if a == nil {
		return
	}
	a.shutDown()
}

// newApplication builds and starts an application instance.
func newApplication(opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(DefaultLoggerConfig())
	}

	fs := opts.FS
	if fs == nil {
		fs = vfs.NewOSFS()
	}

	a := &Application{
		logger:   logger,
		fs:       fs,
		temp:     vfs.NewTempPather(fs, opts.TempBase),
		snapshot: vfs.NewSnapshot(fs),
		stores:   store.NewManager(),
		undoMgr:  undo.NewManager(0),
		tree:     disposer.NewTree(),
	}
	a.root = disposer.New("application")
	a.dispatcher = edt.New(edt.WithPanicHandler(func(value any, stack []byte) {
		logger.Error("panic on dispatch thread: %v\n%s", value, stack)
	}))

	if err := a.dispatcher.Start(); err != nil {
		return nil, err
	}

	a.projects = project.NewManager(project.Config{
		FS:     fs,
		Temp:   a.temp,
		Stores: a.stores,
		Tree:   a.tree,
		Root:   a.root,
	})

	if opts.Headless {
		a.screen = NewSimulationScreen()
	} else {
		screen, err := NewScreen()
		if err != nil {
			a.stopDispatcher()
			return nil, err
		}
		a.screen = screen
	}

	// Screen initialization is a UI mutation and runs on the dispatch
	// thread like everything else.
	if err := a.dispatcher.Invoke(a.screen.Init); err != nil {
		a.stopDispatcher()
		return nil, err
	}

	logger.Debug("application booted (headless=%v)", opts.Headless)
	return a, nil
}

// shutDown releases everything owned by the instance.
func (a *Application) shutDown() {
	if !a.shutdown.CompareAndSwap(false, true) {
		return
	}

	err := a.dispatcher.Invoke(func() error {
		a.tree.Dispose(a.root)
		a.screen.Fini()
		return nil
	})
	if err != nil {
		a.logger.Warn("shutdown work failed: %v", err)
	}

	a.stopDispatcher()
	a.snapshot.Clear()
	a.logger.Debug("application shut down")
}

func (a *Application) stopDispatcher() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.dispatcher.Stop(ctx); err != nil && err != edt.ErrNotRunning {
		a.logger.Warn("dispatcher stop failed: %v", err)
	}
}

// Logger returns the application logger.
func (a *Application) Logger() *Logger { return a.logger }

// Dispatcher returns the event-dispatch thread executor.
func (a *Application) Dispatcher() *edt.Dispatcher { return a.dispatcher }

// FS returns the application file system.
func (a *Application) FS() vfs.FS { return a.fs }

// Temp returns the temporary path generator.
func (a *Application) Temp() *vfs.TempPather { return a.temp }

// Snapshot returns the persisted-content snapshot cache.
func (a *Application) Snapshot() *vfs.Snapshot { return a.snapshot }

// Stores returns the component-state store manager.
func (a *Application) Stores() *store.Manager { return a.stores }

// Undo returns the undo manager.
func (a *Application) Undo() *undo.Manager { return a.undoMgr }

// Tree returns the disposal tree.
func (a *Application) Tree() *disposer.Tree { return a.tree }

// Root returns the application-level disposable every fixture hangs off.
func (a *Application) Root() disposer.Disposable { return a.root }

// Projects returns the project manager.
func (a *Application) Projects() *project.Manager { return a.projects }

// Screen returns the screen backend.
func (a *Application) Screen() *Screen { return a.screen }

// SetInspectionsEnabled toggles inspection initialization mode and returns
// the previous value.
func (a *Application) SetInspectionsEnabled(enabled bool) bool {
	return a.inspections.Swap(enabled)
}

// InspectionsEnabled reports whether inspection initialization mode is on.
func (a *Application) InspectionsEnabled() bool {
	return a.inspections.Load()
}
