// Package main is the stormtest self-check binary. It boots a headless
// host application and drives the fixture rules end to end, the same way
// a test suite would, so a broken platform is caught before any real
// suite runs against it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dshills/stormtest/harness"
	"github.com/dshills/stormtest/harness/projectgen"
	"github.com/dshills/stormtest/platform/app"
	"github.com/dshills/stormtest/platform/project"
	"github.com/dshills/stormtest/platform/store"
	"github.com/dshills/stormtest/platform/vfs"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	a, err := app.Boot(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to boot: %v\n", err)
		return 1
	}
	defer app.ShutDown()

	checks := []struct {
		name string
		fn   func(*app.Application) error
	}{
		{"shared-project", checkSharedProject},
		{"edt-marker", checkEDTMarker},
		{"component-store", checkComponentStore},
		{"heavy-project", checkHeavyProject},
		{"undo-baseline", checkUndoBaseline},
		{"cleanup-rules", checkCleanupRules},
	}

	failed := 0
	for _, c := range checks {
		if err := c.fn(a); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", c.name, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", c.name)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d checks failed\n", failed, len(checks))
		return 1
	}
	return 0
}

// checkSharedProject exercises the shared light project and module cache:
// the same instances must come back across two simulated tests, and the
// project must be closed but not disposed between them.
func checkSharedProject(a *app.Application) error {
	rule := harness.NewProjectRule()
	defer func() { _ = rule.Reset() }()

	var first *project.Project
	var firstMod *project.Module

	body := func() error {
		p, err := rule.Project()
		if err != nil {
			return err
		}
		mod, err := rule.Module()
		if err != nil {
			return err
		}
		if first == nil {
			first, firstMod = p, mod
			return nil
		}
		if p != first {
			return fmt.Errorf("shared project not reused across tests")
		}
		if mod != firstMod {
			return fmt.Errorf("shared module not reused across tests")
		}
		return nil
	}

	chain := harness.NewChain(rule)
	for i := 0; i < 2; i++ {
		d := harness.Description{Name: fmt.Sprintf("sharedProject%d", i)}
		if err := chain.Around(body, d)(); err != nil {
			return err
		}
		if first.IsDisposed() {
			return fmt.Errorf("shared project disposed by teardown")
		}
		if first.IsOpen() {
			return fmt.Errorf("shared project still open after teardown")
		}
	}
	return nil
}

// checkEDTMarker verifies that the dispatch-thread rule moves marked
// bodies onto the dispatch thread and leaves unmarked ones alone.
func checkEDTMarker(a *app.Application) error {
	chain := harness.NewChain(harness.EDTRule{})

	var onEDT bool
	probe := func() error {
		onEDT = a.Dispatcher().OnDispatchThread()
		return nil
	}

	marked := harness.Description{Name: "marked", Markers: []harness.Marker{harness.MarkerRunInEDT}}
	if err := chain.Around(probe, marked)(); err != nil {
		return err
	}
	if !onEDT {
		return fmt.Errorf("marked body did not run on the dispatch thread")
	}

	if err := chain.Around(probe, harness.Description{Name: "unmarked"})(); err != nil {
		return err
	}
	if onEDT {
		return fmt.Errorf("unmarked body ran on the dispatch thread")
	}
	return nil
}

// checkComponentStore verifies the active-store rule flips the default
// load policy for the body and restores it afterwards.
func checkComponentStore(a *app.Application) error {
	chain := harness.NewChain(harness.ActiveStoreRule{})
	d := harness.Description{Name: "store", Markers: []harness.Marker{harness.MarkerActiveStore}}

	err := chain.Around(func() error {
		if a.Stores().Default() != store.LoadFull {
			return fmt.Errorf("full loading not active inside the body")
		}
		return nil
	}, d)()
	if err != nil {
		return err
	}
	if a.Stores().Default() != store.LoadSkip {
		return fmt.Errorf("load policy not restored after the body")
	}
	return nil
}

// checkHeavyProject builds a heavyweight project from a Lua script, runs
// a task against it, and verifies the fixture is cleaned up afterwards.
func checkHeavyProject(a *app.Application) error {
	builder := projectgen.LuaBuilder{Script: `
		dir("src")
		file("src/main.txt", "generated")
		file("go.sum", "")
	`}

	var path string
	err := harness.CreateOrLoadProject(a, harness.HeavyProjectOptions{
		Name:    "selfcheck",
		Builder: builder,
	}, func(p *project.Project) error {
		path = p.Path()
		data, err := a.FS().ReadFile(a.FS().Join(path, "src/main.txt"))
		if err != nil {
			return err
		}
		if string(data) != "generated" {
			return fmt.Errorf("unexpected generated content %q", data)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if a.FS().Exists(path) {
		return fmt.Errorf("heavy project directory %s survived disposal", path)
	}
	return nil
}

// fileEdit is a reversible write used by the undo check.
type fileEdit struct {
	fs      vfs.FS
	path    string
	content string
	prev    []byte
}

func (e *fileEdit) Apply() error {
	if data, err := e.fs.ReadFile(e.path); err == nil {
		e.prev = data
	}
	return e.fs.WriteFile(e.path, []byte(e.content), 0o644)
}

func (e *fileEdit) Revert() error {
	if e.prev == nil {
		return e.fs.Remove(e.path)
	}
	return e.fs.WriteFile(e.path, e.prev, 0o644)
}

// checkUndoBaseline verifies that fixture generation is excluded from the
// undo stacks while edits made during the task are undoable.
func checkUndoBaseline(a *app.Application) error {
	builder := projectgen.TreeBuilder{"notes.txt": "baseline"}

	return harness.CreateOrLoadProject(a, harness.HeavyProjectOptions{
		Name:    "undocheck",
		Builder: builder,
	}, func(p *project.Project) error {
		if a.Undo().UndoDepth(p.ID()) != 0 {
			return fmt.Errorf("fixture generation left entries on the undo stack")
		}
		if !a.Undo().IsNonUndoable(p.ID()) {
			return fmt.Errorf("generated fixture not registered as baseline")
		}

		docID := p.ID() + "/notes.txt"
		edit := &fileEdit{fs: a.FS(), path: a.FS().Join(p.Path(), "notes.txt"), content: "edited"}
		if err := a.Undo().Record(docID, edit); err != nil {
			return err
		}
		if a.Undo().UndoDepth(docID) != 1 {
			return fmt.Errorf("task edit not recorded")
		}
		if err := a.Undo().Undo(docID); err != nil {
			return err
		}
		data, err := a.FS().ReadFile(edit.path)
		if err != nil {
			return err
		}
		if string(data) != "baseline" {
			return fmt.Errorf("undo left %q, want the generated baseline", data)
		}
		return nil
	})
}

// checkCleanupRules leaks a heavyweight project and an extra module inside
// the body and verifies the cleanup rules sweep both while preserving the
// shared fixtures.
func checkCleanupRules(a *app.Application) error {
	projects := harness.NewProjectRule()
	defer func() { _ = projects.Reset() }()

	shared, err := projects.Project()
	if err != nil {
		return err
	}
	sharedMod, err := projects.Module()
	if err != nil {
		return err
	}

	var leaked *project.Project
	chain := harness.NewChain(
		harness.DisposeNonLightProjectsRule{},
		harness.DisposeModulesRule{Projects: projects},
		projects,
	)
	err = chain.Around(func() error {
		p, err := a.Projects().CreateProject("leaky", "")
		if err != nil {
			return err
		}
		if err := a.Dispatcher().Invoke(func() error { return a.Projects().OpenProject(p) }); err != nil {
			return err
		}
		leaked = p
		return a.Dispatcher().Invoke(func() error {
			_, err := a.Projects().CreateModule(shared, "extra")
			return err
		})
	}, harness.Description{Name: "cleanup"})()
	if err != nil {
		return err
	}

	if !leaked.IsDisposed() {
		return fmt.Errorf("leaked heavyweight project survived the sweep")
	}
	if shared.IsDisposed() {
		return fmt.Errorf("shared project disposed by the sweep")
	}
	mods := shared.Modules()
	if len(mods) != 1 || mods[0] != sharedMod {
		return fmt.Errorf("module sweep left %d modules, want only the shared one", len(mods))
	}
	return nil
}

func parseFlags() app.Options {
	var opts app.Options
	var inMemory bool
	var logLevel string
	var showVersion bool
	var showHelp bool

	flag.BoolVar(&inMemory, "mem", false, "Run against an in-memory file system")
	flag.BoolVar(&inMemory, "m", false, "Run against an in-memory file system (shorthand)")
	flag.StringVar(&opts.TempBase, "temp", "", "Base directory for generated fixture paths")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Stormtest - fixture platform self-check\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stormtest [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stormtest                   Run the self-check on the OS file system\n")
		fmt.Fprintf(os.Stderr, "  stormtest -m                Run against an in-memory file system\n")
		fmt.Fprintf(os.Stderr, "  stormtest -log-level debug  Run with debug logging\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Stormtest %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	level := app.LogLevelInfo
	switch logLevel {
	case "debug":
		level = app.LogLevelDebug
	case "info":
		level = app.LogLevelInfo
	case "warn":
		level = app.LogLevelWarn
	case "error":
		level = app.LogLevelError
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", logLevel)
		os.Exit(1)
	}

	cfg := app.DefaultLoggerConfig()
	cfg.Level = level
	opts.Logger = app.NewLogger(cfg)

	if inMemory {
		opts.FS = vfs.NewMemFS()
		if opts.TempBase == "" {
			opts.TempBase = "/tmp"
		}
	}
	opts.Headless = true

	return opts
}
