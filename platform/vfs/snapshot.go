package vfs

import (
	"sync"
	"time"
)

// Snapshot caches persisted file content keyed by path. Project open
// re-reads the same configuration files constantly; the snapshot keeps one
// copy per path and serves it until the underlying file changes.
//
// Tests clear the snapshot between runs so state persisted by one test is
// never observed by the next.
type Snapshot struct {
	fs FS

	mu      sync.RWMutex
	entries map[string]snapshotEntry
}

type snapshotEntry struct {
	content []byte
	size    int64
	modTime time.Time
}

// NewSnapshot creates an empty snapshot over fs.
func NewSnapshot(fs FS) *Snapshot {
	return &Snapshot{
		fs:      fs,
		entries: make(map[string]snapshotEntry),
	}
}

// Load returns the content of path, serving it from cache when the cached
// entry is still current.
func (s *Snapshot) Load(path string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[path]
	s.mu.RUnlock()

	if ok {
		if info, err := s.fs.Stat(path); err == nil &&
			info.Size() == e.size && info.ModTime().Equal(e.modTime) {
			return e.content, nil
		}
	}

	content, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[path] = snapshotEntry{
		content: content,
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	s.mu.Unlock()

	return content, nil
}

// Cached reports whether path currently has a cached entry.
func (s *Snapshot) Cached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[path]
	return ok
}

// Refresh drops every cached entry that no longer matches the file system:
// deleted files and files whose size or modification time changed.
func (s *Snapshot) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, e := range s.entries {
		info, err := s.fs.Stat(path)
		if err != nil || info.Size() != e.size || !info.ModTime().Equal(e.modTime) {
			delete(s.entries, path)
		}
	}
}

// Clear drops all cached content unconditionally.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]snapshotEntry)
}

// Len returns the number of cached entries.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
