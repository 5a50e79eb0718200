package edt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := New()
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	})
	return d
}

func TestInvoke_RunsOnDispatchThread(t *testing.T) {
	d := startDispatcher(t)

	if d.OnDispatchThread() {
		t.Fatal("test goroutine should not be the dispatch goroutine")
	}

	var onThread bool
	err := d.Invoke(func() error {
		onThread = d.OnDispatchThread()
		return nil
	})
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if !onThread {
		t.Error("work should run on the dispatch goroutine")
	}
}

func TestInvoke_ReturnsWorkError(t *testing.T) {
	d := startDispatcher(t)

	want := errors.New("boom")
	if err := d.Invoke(func() error { return want }); err != want {
		t.Errorf("Invoke error = %v, want %v", err, want)
	}
}

func TestInvoke_Reentrant(t *testing.T) {
	d := startDispatcher(t)

	var inner bool
	err := d.Invoke(func() error {
		// Invoke from the dispatch goroutine must run inline.
		return d.Invoke(func() error {
			inner = d.OnDispatchThread()
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested Invoke error: %v", err)
	}
	if !inner {
		t.Error("nested work should run on the dispatch goroutine")
	}
}

func TestInvoke_PanicRecovered(t *testing.T) {
	var handled any
	d := New(WithPanicHandler(func(value any, stack []byte) {
		handled = value
	}))
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	}()

	err := d.Invoke(func() error { panic("kaboom") })

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Invoke error = %v, want *PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("PanicError.Value = %v, want %q", pe.Value, "kaboom")
	}
	if handled != "kaboom" {
		t.Errorf("panic handler got %v, want %q", handled, "kaboom")
	}
	if d.Stats().Panicked != 1 {
		t.Errorf("Stats().Panicked = %d, want 1", d.Stats().Panicked)
	}
}

func TestInvoke_Serialized(t *testing.T) {
	d := startDispatcher(t)

	const n = 50
	var counter int // no mutex: the dispatch goroutine serializes access

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Invoke(func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != n {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}

func TestInvoke_NotRunning(t *testing.T) {
	d := New()
	if err := d.Invoke(func() error { return nil }); err != ErrNotRunning {
		t.Errorf("Invoke on stopped dispatcher = %v, want ErrNotRunning", err)
	}
}

func TestStart_Twice(t *testing.T) {
	d := startDispatcher(t)
	if err := d.Start(); err != ErrAlreadyRunning {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestStop_DrainsQueued(t *testing.T) {
	d := New()
	if err := d.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	ran := make(chan struct{}, 1)
	if err := d.InvokeAsync(func() error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("InvokeAsync error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	select {
	case <-ran:
	default:
		t.Error("queued work should run before Stop returns")
	}
}
