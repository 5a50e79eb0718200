// Package projectgen generates project content for heavyweight fixtures.
//
// A Builder writes a file tree under a project root before the project is
// opened. TreeBuilder takes a literal map of files; LuaBuilder runs a
// sandboxed Lua script describing the tree, which keeps large or
// parameterized fixtures out of Go string literals.
package projectgen

import (
	"sort"

	"github.com/dshills/stormtest/platform/vfs"
)

// Builder generates project content under root on fs.
type Builder interface {
	Generate(fs vfs.FS, root string) error
}

// TreeBuilder generates a fixed file tree: keys are slash-separated paths
// relative to the project root, values are file contents.
type TreeBuilder map[string]string

// Generate implements Builder. Files are written in sorted path order so
// generation is deterministic.
func (b TreeBuilder) Generate(fs vfs.FS, root string) error {
	paths := make([]string, 0, len(b))
	for p := range b {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := fs.Join(root, p)
		if err := fs.MkdirAll(parentDir(fs, full), 0o755); err != nil {
			return err
		}
		if err := fs.WriteFile(full, []byte(b[p]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// parentDir returns the directory portion of a joined path.
func parentDir(fs vfs.FS, p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			if i == 0 {
				return p[:1]
			}
			return p[:i]
		}
	}
	return "."
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(fs vfs.FS, root string) error

// Generate implements Builder.
func (f BuilderFunc) Generate(fs vfs.FS, root string) error {
	return f(fs, root)
}
