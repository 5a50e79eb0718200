package undo

import (
	"errors"
	"testing"
)

// textEdit is a trivial reversible edit over a string pointer.
type textEdit struct {
	target   *string
	old, new string
}

func (e *textEdit) Apply() error {
	*e.target = e.new
	return nil
}

func (e *textEdit) Revert() error {
	*e.target = e.old
	return nil
}

func TestRecordUndoRedo(t *testing.T) {
	m := NewManager(0)

	doc := "a"
	if err := m.Record("doc1", &textEdit{target: &doc, old: "a", new: "b"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if doc != "b" {
		t.Fatalf("doc = %q after Record, want %q", doc, "b")
	}

	if err := m.Undo("doc1"); err != nil {
		t.Fatalf("Undo error: %v", err)
	}
	if doc != "a" {
		t.Errorf("doc = %q after Undo, want %q", doc, "a")
	}

	if err := m.Redo("doc1"); err != nil {
		t.Fatalf("Redo error: %v", err)
	}
	if doc != "b" {
		t.Errorf("doc = %q after Redo, want %q", doc, "b")
	}
}

func TestUndo_Empty(t *testing.T) {
	m := NewManager(0)
	if err := m.Undo("doc1"); err != ErrNothingToUndo {
		t.Errorf("Undo on empty stack = %v, want ErrNothingToUndo", err)
	}
	if err := m.Redo("doc1"); err != ErrNothingToRedo {
		t.Errorf("Redo on empty stack = %v, want ErrNothingToRedo", err)
	}
}

func TestNonUndoable_BypassesStack(t *testing.T) {
	m := NewManager(0)
	m.RegisterNonUndoable("fixture")

	doc := "a"
	if err := m.Record("fixture", &textEdit{target: &doc, old: "a", new: "b"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if doc != "b" {
		t.Fatalf("edit should still apply; doc = %q", doc)
	}

	if m.UndoDepth("fixture") != 0 {
		t.Errorf("UndoDepth = %d for non-undoable doc, want 0", m.UndoDepth("fixture"))
	}
	if err := m.Undo("fixture"); err != ErrNothingToUndo {
		t.Errorf("Undo = %v, want ErrNothingToUndo", err)
	}
}

func TestRecord_ClearsRedo(t *testing.T) {
	m := NewManager(0)

	doc := "a"
	_ = m.Record("d", &textEdit{target: &doc, old: "a", new: "b"})
	_ = m.Undo("d")
	_ = m.Record("d", &textEdit{target: &doc, old: "a", new: "c"})

	if err := m.Redo("d"); err != ErrNothingToRedo {
		t.Errorf("Redo after new Record = %v, want ErrNothingToRedo", err)
	}
}

func TestRecord_MaxEntries(t *testing.T) {
	m := NewManager(3)

	doc := ""
	for i := 0; i < 5; i++ {
		if err := m.Record("d", &textEdit{target: &doc, old: doc, new: doc + "x"}); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}
	if got := m.UndoDepth("d"); got != 3 {
		t.Errorf("UndoDepth = %d, want 3 (bounded)", got)
	}
}

type failingEdit struct{ err error }

func (e *failingEdit) Apply() error  { return e.err }
func (e *failingEdit) Revert() error { return e.err }

func TestRecord_ApplyFailure(t *testing.T) {
	m := NewManager(0)

	want := errors.New("apply failed")
	if err := m.Record("d", &failingEdit{err: want}); err != want {
		t.Errorf("Record = %v, want %v", err, want)
	}
	if m.UndoDepth("d") != 0 {
		t.Error("failed edit must not be recorded")
	}
}

func TestDrop(t *testing.T) {
	m := NewManager(0)

	doc := "a"
	_ = m.Record("d", &textEdit{target: &doc, old: "a", new: "b"})
	m.RegisterNonUndoable("d")
	m.Drop("d")

	if m.UndoDepth("d") != 0 {
		t.Error("Drop should discard the undo stack")
	}
	if m.IsNonUndoable("d") {
		t.Error("Drop should discard the non-undoable mark")
	}
}
