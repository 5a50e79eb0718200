package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// MemFS implements FS using an in-memory file system. It backs fast,
// hermetic fixtures that never touch the disk.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
	}
}

// Ensure MemFS implements FS.
var _ FS = (*MemFS)(nil)

// cleanPath normalizes a path to an absolute, slash-separated form.
func (m *MemFS) cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "read", Path: filePath, Err: syscall.EISDIR}
		}
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification.
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// WriteFile writes data to a file, creating it and any parent directories.
func (m *MemFS) WriteFile(filePath string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	if m.dirs[filePath] {
		return &fs.PathError{Op: "write", Path: filePath, Err: syscall.EISDIR}
	}

	m.mkdirAllLocked(path.Dir(filePath))

	content := make([]byte, len(data))
	copy(content, data)
	m.files[filePath] = &memFile{
		content: content,
		mode:    perm,
		modTime: time.Now(),
	}
	return nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), f.mode, f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, fs.ModeDir|0o755, time.Time{}, true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// ReadDir reads a directory and returns its entries sorted by name.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)
	if !m.dirs[dirPath] {
		if _, ok := m.files[dirPath]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: syscall.ENOTDIR}
		}
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	var infos []FileInfo
	for p, f := range m.files {
		if path.Dir(p) == dirPath {
			infos = append(infos, NewFileInfo(p, path.Base(p), int64(len(f.content)), f.mode, f.modTime, false))
		}
	}
	for p := range m.dirs {
		if p != dirPath && path.Dir(p) == dirPath {
			infos = append(infos, NewFileInfo(p, path.Base(p), 0, fs.ModeDir|0o755, time.Time{}, true))
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)
	if _, ok := m.files[dirPath]; ok {
		return &fs.PathError{Op: "mkdir", Path: dirPath, Err: syscall.ENOTDIR}
	}
	m.mkdirAllLocked(dirPath)
	return nil
}

func (m *MemFS) mkdirAllLocked(dirPath string) {
	for p := dirPath; ; p = path.Dir(p) {
		if m.dirs[p] {
			break
		}
		m.dirs[p] = true
		if p == "/" {
			break
		}
	}
}

// Remove removes a file or empty directory.
func (m *MemFS) Remove(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	if _, ok := m.files[filePath]; ok {
		delete(m.files, filePath)
		return nil
	}
	if m.dirs[filePath] {
		for p := range m.files {
			if path.Dir(p) == filePath {
				return &fs.PathError{Op: "remove", Path: filePath, Err: syscall.ENOTEMPTY}
			}
		}
		for p := range m.dirs {
			if p != filePath && path.Dir(p) == filePath {
				return &fs.PathError{Op: "remove", Path: filePath, Err: syscall.ENOTEMPTY}
			}
		}
		delete(m.dirs, filePath)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: filePath, Err: fs.ErrNotExist}
}

// RemoveAll removes a path and all its contents.
func (m *MemFS) RemoveAll(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	prefix := filePath + "/"
	for p := range m.files {
		if p == filePath || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	for p := range m.dirs {
		if p == filePath || strings.HasPrefix(p, prefix) {
			delete(m.dirs, p)
		}
	}
	return nil
}

// Rename renames (moves) a file or directory.
func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath = m.cleanPath(oldPath)
	newPath = m.cleanPath(newPath)

	if f, ok := m.files[oldPath]; ok {
		m.mkdirAllLocked(path.Dir(newPath))
		m.files[newPath] = f
		delete(m.files, oldPath)
		return nil
	}
	if m.dirs[oldPath] {
		prefix := oldPath + "/"
		moved := make(map[string]*memFile)
		for p, f := range m.files {
			if strings.HasPrefix(p, prefix) {
				moved[newPath+"/"+strings.TrimPrefix(p, prefix)] = f
				delete(m.files, p)
			}
		}
		for p, f := range moved {
			m.files[p] = f
		}
		movedDirs := []string{newPath}
		for p := range m.dirs {
			if strings.HasPrefix(p, prefix) {
				movedDirs = append(movedDirs, newPath+"/"+strings.TrimPrefix(p, prefix))
				delete(m.dirs, p)
			}
		}
		delete(m.dirs, oldPath)
		for _, p := range movedDirs {
			m.dirs[p] = true
		}
		m.mkdirAllLocked(path.Dir(newPath))
		return nil
	}
	return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
}

// Abs returns the absolute path.
func (m *MemFS) Abs(p string) (string, error) {
	return m.cleanPath(p), nil
}

// Join joins path elements.
func (m *MemFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = m.cleanPath(p)
	_, ok := m.files[p]
	return ok || m.dirs[p]
}

// IsDir returns true if the path is a directory.
func (m *MemFS) IsDir(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[m.cleanPath(p)]
}
