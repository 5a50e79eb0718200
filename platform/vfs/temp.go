package vfs

import (
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
)

// tempCounter makes generated paths unique within one process even when
// two fixtures ask for the same prefix in the same nanosecond.
var tempCounter atomic.Uint64

// TempPather generates unique temporary paths rooted in a base directory.
type TempPather struct {
	fs   FS
	base string
}

// NewTempPather creates a TempPather rooted at base. An empty base uses the
// operating system's temp directory.
func NewTempPather(fs FS, base string) *TempPather {
	if base == "" {
		base = os.TempDir()
	}
	return &TempPather{fs: fs, base: base}
}

// Base returns the root under which paths are generated.
func (t *TempPather) Base() string { return t.base }

// TempPath returns a unique path under the base directory. The path is not
// created; callers that need a directory use CreateTempDir.
func (t *TempPather) TempPath(prefix string) string {
	n := tempCounter.Add(1)
	name := fmt.Sprintf("%s_%d_%06d", prefix, n, rand.Intn(1_000_000))
	return t.fs.Join(t.base, name)
}

// CreateTempDir generates a unique path under the base directory and
// creates it.
func (t *TempPather) CreateTempDir(prefix string) (string, error) {
	p := t.TempPath(prefix)
	if err := t.fs.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}
