package projectgen

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stormtest/platform/vfs"
)

// Errors returned by the Lua builder.
var (
	// ErrEscapesRoot indicates a script path that climbs out of the
	// project root.
	ErrEscapesRoot = errors.New("path escapes the project root")
)

// LuaBuilder generates project content by running a Lua script. The
// script sees two functions:
//
//	file(path, content) -- write a file relative to the project root
//	dir(path)           -- create a (possibly empty) directory
//
// The script runs sandboxed: only the base, table, string, and math
// libraries are open, and the loaders (load, loadstring, dofile,
// loadfile) plus io/os are unavailable, the same policy the editor
// applies to plugin scripts.
type LuaBuilder struct {
	// Script is the Lua source describing the tree.
	Script string
}

// Generate implements Builder.
func (b LuaBuilder) Generate(fs vfs.FS, root string) (err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibraries(L)

	L.SetGlobal("file", L.NewFunction(func(L *lua.LState) int {
		rel := L.CheckString(1)
		content := L.CheckString(2)
		if werr := writeUnderRoot(fs, root, rel, []byte(content)); werr != nil {
			L.RaiseError("file(%q): %v", rel, werr)
		}
		return 0
	}))
	L.SetGlobal("dir", L.NewFunction(func(L *lua.LState) int {
		rel := L.CheckString(1)
		full, rerr := resolveUnderRoot(fs, root, rel)
		if rerr != nil {
			L.RaiseError("dir(%q): %v", rel, rerr)
		}
		if merr := fs.MkdirAll(full, 0o755); merr != nil {
			L.RaiseError("dir(%q): %v", rel, merr)
		}
		return 0
	}))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua generation panic: %v", r)
		}
	}()

	if err := L.DoString(b.Script); err != nil {
		return fmt.Errorf("lua generation failed: %w", err)
	}
	return nil
}

// openSafeLibraries opens only safe Lua standard libraries and strips the
// loader functions. io, os, debug, and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// writeUnderRoot writes content at rel under root, creating parents.
func writeUnderRoot(fs vfs.FS, root, rel string, content []byte) error {
	full, err := resolveUnderRoot(fs, root, rel)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(parentDir(fs, full), 0o755); err != nil {
		return err
	}
	return fs.WriteFile(full, content, 0o644)
}

// resolveUnderRoot joins rel to root and rejects traversal outside it.
func resolveUnderRoot(fs vfs.FS, root, rel string) (string, error) {
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return "", ErrEscapesRoot
	}
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", ErrEscapesRoot
		}
	}
	return fs.Join(root, rel), nil
}
