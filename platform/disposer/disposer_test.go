package disposer

import (
	"testing"
)

func TestDispose_Order(t *testing.T) {
	tree := NewTree()

	var log []string
	mark := func(name string) Disposable {
		return NewFunc(name, func() { log = append(log, name) })
	}

	root := mark("root")
	a := mark("a")
	b := mark("b")
	aChild := mark("a.1")

	if err := tree.Register(root, a); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := tree.Register(root, b); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := tree.Register(a, aChild); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	tree.Dispose(root)

	want := []string{"b", "a.1", "a", "root"}
	if len(log) != len(want) {
		t.Fatalf("disposed %d nodes, want %d (%v)", len(log), len(want), log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("dispose order[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestDispose_ExactlyOnce(t *testing.T) {
	tree := NewTree()

	count := 0
	d := NewFunc("d", func() { count++ })

	tree.Dispose(d)
	tree.Dispose(d)

	if count != 1 {
		t.Errorf("Dispose called %d times, want 1", count)
	}
	if !tree.IsDisposed(d) {
		t.Error("IsDisposed should be true after Dispose")
	}
}

func TestRegister_DisposedParent(t *testing.T) {
	tree := NewTree()

	parent := New("parent")
	tree.Dispose(parent)

	if err := tree.Register(parent, New("child")); err != ErrParentDisposed {
		t.Errorf("Register on disposed parent = %v, want ErrParentDisposed", err)
	}
}

func TestRegister_DisposedChild(t *testing.T) {
	tree := NewTree()

	child := New("child")
	tree.Dispose(child)

	if err := tree.Register(New("parent"), child); err != ErrChildDisposed {
		t.Errorf("Register disposed child = %v, want ErrChildDisposed", err)
	}
}

func TestDispose_Subtree(t *testing.T) {
	tree := NewTree()

	root := New("root")
	mid := New("mid")
	leaf := New("leaf")

	if err := tree.Register(root, mid); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := tree.Register(mid, leaf); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	tree.Dispose(mid)

	if tree.IsDisposed(root) {
		t.Error("root should not be disposed")
	}
	if !tree.IsDisposed(mid) || !tree.IsDisposed(leaf) {
		t.Error("mid and leaf should both be disposed")
	}

	// Root can still be disposed afterward without touching mid again.
	tree.Dispose(root)
	if !tree.IsDisposed(root) {
		t.Error("root should be disposed")
	}
}

func TestRegister_Reparent(t *testing.T) {
	tree := NewTree()

	p1 := New("p1")
	p2 := New("p2")

	count := 0
	child := NewFunc("child", func() { count++ })

	if err := tree.Register(p1, child); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := tree.Register(p2, child); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	tree.Dispose(p1)
	if count != 0 {
		t.Fatalf("child disposed with old parent; dispose count = %d", count)
	}

	tree.Dispose(p2)
	if count != 1 {
		t.Errorf("child dispose count = %d, want 1", count)
	}
}
