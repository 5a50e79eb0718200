package app

import (
	"testing"

	"github.com/dshills/stormtest/platform/vfs"
)

// bootTestApp boots a headless application over an in-memory FS and
// registers shutdown with t.Cleanup.
func bootTestApp(t *testing.T) *Application {
	t.Helper()

	a, err := Boot(Options{
		FS:       vfs.NewMemFS(),
		TempBase: "/tmp",
		Headless: true,
		Logger:   NullLogger,
	})
	if err != nil {
		t.Fatalf("Boot error: %v", err)
	}
	t.Cleanup(ShutDown)
	return a
}

func TestBoot_Singleton(t *testing.T) {
	a := bootTestApp(t)

	if Get() != a {
		t.Error("Get should return the booted instance")
	}
	if IsShutDown() {
		t.Error("IsShutDown should be false while booted")
	}
	if _, err := Boot(Options{Headless: true}); err != ErrAlreadyBooted {
		t.Errorf("second Boot = %v, want ErrAlreadyBooted", err)
	}

	got, err := GetOrBoot(Options{Headless: true})
	if err != nil {
		t.Fatalf("GetOrBoot error: %v", err)
	}
	if got != a {
		t.Error("GetOrBoot should return the existing instance")
	}
}

func TestBoot_ServicesWired(t *testing.T) {
	a := bootTestApp(t)

	if a.Dispatcher() == nil || !a.Dispatcher().Running() {
		t.Error("dispatcher should be running")
	}
	if a.Projects() == nil || a.Stores() == nil || a.Undo() == nil {
		t.Error("managers should be wired")
	}
	if a.Screen() == nil {
		t.Error("screen should be wired")
	}
	if w, h := a.Screen().Size(); w <= 0 || h <= 0 {
		t.Errorf("simulation screen size = %dx%d, want positive", w, h)
	}
}

func TestShutDown_DisposesProjects(t *testing.T) {
	a := bootTestApp(t)

	p, err := a.Projects().CreateLightProject("shared")
	if err != nil {
		t.Fatalf("CreateLightProject error: %v", err)
	}
	if err := a.Projects().OpenProject(p); err != nil {
		t.Fatalf("OpenProject error: %v", err)
	}

	ShutDown()

	if !IsShutDown() {
		t.Fatal("IsShutDown should be true after ShutDown")
	}
	if !p.IsDisposed() {
		t.Error("shutdown should dispose projects via the root disposable")
	}
	if a.Dispatcher().Running() {
		t.Error("shutdown should stop the dispatch thread")
	}

	// Repeated shutdown is a no-op.
	ShutDown()
}

func TestInspectionsToggle(t *testing.T) {
	a := bootTestApp(t)

	if a.InspectionsEnabled() {
		t.Fatal("inspections should start disabled")
	}
	if prev := a.SetInspectionsEnabled(true); prev {
		t.Error("previous value should be false")
	}
	if !a.InspectionsEnabled() {
		t.Error("inspections should be enabled")
	}
	if prev := a.SetInspectionsEnabled(false); !prev {
		t.Error("previous value should be true")
	}
}
