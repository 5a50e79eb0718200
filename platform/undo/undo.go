// Package undo provides the undo manager for fixture documents.
//
// Edits are recorded per document onto undo/redo stacks. A document can be
// registered as non-undoable, in which case its edits are applied but never
// recorded; fixture-generation writes use this so a test's first Ctrl+Z
// never reverts the fixture itself.
package undo

import (
	"errors"
	"sync"
	"time"
)

// Common errors for undo operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Edit is a reversible change to a document.
type Edit interface {
	// Apply performs the edit.
	Apply() error

	// Revert undoes the edit.
	Revert() error
}

// entry wraps an edit with metadata.
type entry struct {
	edit      Edit
	timestamp time.Time
}

// stacks holds the undo/redo state for one document.
type stacks struct {
	undo []*entry
	redo []*entry
}

// Manager tracks undo/redo stacks per document.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	docs        map[string]*stacks
	nonUndoable map[string]bool
	maxEntries  int
}

// NewManager creates an undo manager. maxEntries bounds each document's
// undo stack; zero or negative uses the default of 1000.
func NewManager(maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Manager{
		docs:        make(map[string]*stacks),
		nonUndoable: make(map[string]bool),
		maxEntries:  maxEntries,
	}
}

// RegisterNonUndoable marks docID so its edits bypass the stacks.
func (m *Manager) RegisterNonUndoable(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonUndoable[docID] = true
}

// IsNonUndoable reports whether docID was registered as non-undoable.
func (m *Manager) IsNonUndoable(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonUndoable[docID]
}

// Record applies an edit and, unless the document is non-undoable, pushes
// it onto the document's undo stack and clears its redo stack.
func (m *Manager) Record(docID string, e Edit) error {
	if err := e.Apply(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nonUndoable[docID] {
		return nil
	}

	s := m.docs[docID]
	if s == nil {
		s = &stacks{}
		m.docs[docID] = s
	}

	s.undo = append(s.undo, &entry{edit: e, timestamp: time.Now()})
	s.redo = nil

	if len(s.undo) > m.maxEntries {
		excess := len(s.undo) - m.maxEntries
		s.undo = s.undo[excess:]
	}
	return nil
}

// Undo reverts the most recent edit of docID.
// The lock is released during Revert; reverting may be slow.
func (m *Manager) Undo(docID string) error {
	m.mu.Lock()
	s := m.docs[docID]
	if s == nil || len(s.undo) == 0 {
		m.mu.Unlock()
		return ErrNothingToUndo
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	m.mu.Unlock()

	if err := e.edit.Revert(); err != nil {
		m.mu.Lock()
		s.undo = append(s.undo, e)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	s.redo = append(s.redo, e)
	m.mu.Unlock()
	return nil
}

// Redo re-applies the most recently undone edit of docID.
func (m *Manager) Redo(docID string) error {
	m.mu.Lock()
	s := m.docs[docID]
	if s == nil || len(s.redo) == 0 {
		m.mu.Unlock()
		return ErrNothingToRedo
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	m.mu.Unlock()

	if err := e.edit.Apply(); err != nil {
		m.mu.Lock()
		s.redo = append(s.redo, e)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	s.undo = append(s.undo, e)
	m.mu.Unlock()
	return nil
}

// UndoDepth returns the current undo stack depth for docID.
func (m *Manager) UndoDepth(docID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.docs[docID]; s != nil {
		return len(s.undo)
	}
	return 0
}

// Drop discards all recorded state for docID. Used when a document's
// project is disposed.
func (m *Manager) Drop(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docID)
	delete(m.nonUndoable, docID)
}
