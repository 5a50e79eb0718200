package projectgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stormtest/platform/vfs"
)

func TestTreeBuilder(t *testing.T) {
	m := vfs.NewMemFS()

	b := TreeBuilder{
		"src/main.go":  "package main",
		"README.md":    "# demo",
		"cfg/app.json": `{"name":"demo"}`,
	}
	if err := b.Generate(m, "/proj"); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	for p, want := range b {
		data, err := m.ReadFile("/proj/" + p)
		if err != nil {
			t.Fatalf("ReadFile(%q) error: %v", p, err)
		}
		if string(data) != want {
			t.Errorf("%q = %q, want %q", p, data, want)
		}
	}
}

func TestLuaBuilder(t *testing.T) {
	m := vfs.NewMemFS()

	b := LuaBuilder{Script: `
		dir("empty")
		file("go.mod", "module demo\n")
		for i = 1, 3 do
			file(string.format("src/f%d.go", i), "package demo")
		end
	`}
	if err := b.Generate(m, "/proj"); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if !m.IsDir("/proj/empty") {
		t.Error("dir() should create the directory")
	}
	data, err := m.ReadFile("/proj/go.mod")
	if err != nil || string(data) != "module demo\n" {
		t.Errorf("go.mod = %q, %v", data, err)
	}
	for _, p := range []string{"/proj/src/f1.go", "/proj/src/f2.go", "/proj/src/f3.go"} {
		if !m.Exists(p) {
			t.Errorf("%q should exist", p)
		}
	}
}

func TestLuaBuilder_ScriptError(t *testing.T) {
	err := LuaBuilder{Script: `error("bad fixture")`}.Generate(vfs.NewMemFS(), "/proj")
	if err == nil || !strings.Contains(err.Error(), "bad fixture") {
		t.Errorf("Generate = %v, want script error", err)
	}
}

func TestLuaBuilder_SandboxClosed(t *testing.T) {
	// io and the loaders are not available to fixture scripts.
	for _, script := range []string{
		`io.open("/etc/passwd")`,
		`load("return 1")()`,
		`dofile("x.lua")`,
	} {
		if err := (LuaBuilder{Script: script}).Generate(vfs.NewMemFS(), "/proj"); err == nil {
			t.Errorf("script %q should fail in the sandbox", script)
		}
	}
}

func TestLuaBuilder_RejectsEscape(t *testing.T) {
	m := vfs.NewMemFS()

	err := LuaBuilder{Script: `file("../outside.txt", "x")`}.Generate(m, "/proj")
	if err == nil {
		t.Fatal("path traversal should fail")
	}
	if m.Exists("/outside.txt") {
		t.Error("file must not be written outside the root")
	}

	if _, rerr := resolveUnderRoot(m, "/proj", "../x"); !errors.Is(rerr, ErrEscapesRoot) {
		t.Errorf("resolveUnderRoot = %v, want ErrEscapesRoot", rerr)
	}
}
