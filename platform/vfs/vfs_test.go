package vfs

import (
	"errors"
	"io/fs"
	"testing"
)

func TestMemFS_WriteRead(t *testing.T) {
	m := NewMemFS()

	if err := m.WriteFile("/proj/src/main.go", []byte("package main"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := m.ReadFile("/proj/src/main.go")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "package main" {
		t.Errorf("ReadFile = %q, want %q", data, "package main")
	}

	// Parent directories are created implicitly.
	if !m.IsDir("/proj/src") {
		t.Error("parent directory should exist")
	}
	if !m.IsDir("/proj") {
		t.Error("grandparent directory should exist")
	}
}

func TestMemFS_ReadMissing(t *testing.T) {
	m := NewMemFS()

	_, err := m.ReadFile("/nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile missing = %v, want fs.ErrNotExist", err)
	}
}

func TestMemFS_ReadDir(t *testing.T) {
	m := NewMemFS()

	for _, p := range []string{"/d/b.txt", "/d/a.txt"} {
		if err := m.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile error: %v", err)
		}
	}
	if err := m.MkdirAll("/d/sub", 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	infos, err := m.ReadDir("/d")
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("ReadDir returned %d entries, want 3", len(infos))
	}
	names := []string{infos[0].Name(), infos[1].Name(), infos[2].Name()}
	want := []string{"a.txt", "b.txt", "sub"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !infos[2].IsDir() {
		t.Error("sub should be a directory")
	}
}

func TestMemFS_RemoveAll(t *testing.T) {
	m := NewMemFS()

	if err := m.WriteFile("/p/a/f.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := m.RemoveAll("/p"); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}
	if m.Exists("/p") || m.Exists("/p/a/f.txt") {
		t.Error("RemoveAll should delete the whole subtree")
	}
}

func TestMemFS_Rename(t *testing.T) {
	m := NewMemFS()

	if err := m.WriteFile("/old/f.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := m.Rename("/old", "/new"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	if m.Exists("/old/f.txt") {
		t.Error("old path should be gone")
	}
	data, err := m.ReadFile("/new/f.txt")
	if err != nil || string(data) != "x" {
		t.Errorf("ReadFile after rename = %q, %v", data, err)
	}
}

func TestTempPath_Unique(t *testing.T) {
	tp := NewTempPather(NewMemFS(), "/tmp")

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := tp.TempPath("fixture")
		if seen[p] {
			t.Fatalf("TempPath returned duplicate %q", p)
		}
		seen[p] = true
	}
}

func TestCreateTempDir(t *testing.T) {
	m := NewMemFS()
	tp := NewTempPather(m, "/tmp")

	p, err := tp.CreateTempDir("proj")
	if err != nil {
		t.Fatalf("CreateTempDir error: %v", err)
	}
	if !m.IsDir(p) {
		t.Errorf("CreateTempDir did not create %q", p)
	}
}

func TestSnapshot_CacheAndClear(t *testing.T) {
	m := NewMemFS()
	if err := m.WriteFile("/s.json", []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	snap := NewSnapshot(m)
	if _, err := snap.Load("/s.json"); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !snap.Cached("/s.json") {
		t.Error("entry should be cached after Load")
	}

	snap.Clear()
	if snap.Cached("/s.json") {
		t.Error("Clear should drop all entries")
	}
	if snap.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", snap.Len())
	}
}

func TestSnapshot_RefreshDropsStale(t *testing.T) {
	m := NewMemFS()
	if err := m.WriteFile("/s.json", []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	snap := NewSnapshot(m)
	if _, err := snap.Load("/s.json"); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	// A deleted file's entry is dropped on refresh.
	if err := m.Remove("/s.json"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	snap.Refresh()
	if snap.Cached("/s.json") {
		t.Error("Refresh should drop entries for deleted files")
	}
}

func TestOSFS_RoundTrip(t *testing.T) {
	f := NewOSFS()
	dir := t.TempDir()

	p := f.Join(dir, "sub", "file.txt")
	if err := f.MkdirAll(f.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := f.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := f.ReadFile(p)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	if !f.Exists(p) {
		t.Error("Exists should be true")
	}
	if f.IsDir(p) {
		t.Error("IsDir should be false for a file")
	}
}

func TestFS_WriteFileCreatesParents(t *testing.T) {
	tests := []struct {
		name string
		fs   FS
		root string
	}{
		{"memfs", NewMemFS(), "/proj"},
		{"osfs", NewOSFS(), t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.fs.Join(tt.root, "a", "b", "state.json")
			if err := tt.fs.WriteFile(p, []byte(`{}`), 0o644); err != nil {
				t.Fatalf("WriteFile error: %v", err)
			}

			data, err := tt.fs.ReadFile(p)
			if err != nil || string(data) != `{}` {
				t.Fatalf("ReadFile = %q, %v", data, err)
			}
			if !tt.fs.IsDir(tt.fs.Join(tt.root, "a", "b")) {
				t.Error("missing parent directories should be created")
			}
		})
	}
}
