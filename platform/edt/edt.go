// Package edt provides the event-dispatch thread executor.
//
// The host platform requires every project, module, and file-system
// mutation to run on one designated goroutine, mirroring a UI toolkit's
// event-dispatch thread. Dispatcher owns that goroutine: callers submit a
// unit of work with Invoke and block until it has completed there. Work
// submitted from the dispatch goroutine itself runs inline, so helpers can
// be called from either side without deadlocking.
package edt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
)

// Sentinel errors for the edt package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running dispatcher.
	ErrAlreadyRunning = errors.New("dispatcher is already running")

	// ErrNotRunning is returned when work is submitted to a stopped dispatcher.
	ErrNotRunning = errors.New("dispatcher is not running")
)

// PanicError wraps a panic recovered from a dispatched unit of work.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic on dispatch thread: %v", e.Value)
}

// PanicHandler is called when a dispatched unit of work panics.
type PanicHandler func(value any, stack []byte)

// task is a queued unit of work with a completion channel.
type task struct {
	fn   func() error
	done chan error
}

// Dispatcher executes units of work on a single dedicated goroutine.
//
// All methods are safe for concurrent use.
type Dispatcher struct {
	queueSize    int
	panicHandler PanicHandler

	mu      sync.Mutex
	tasks   chan task
	quit    chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup

	loopID atomic.Uint64

	// Stats
	invoked   atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the pending-task queue size.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithPanicHandler sets the handler invoked when dispatched work panics.
// The panic is still converted into a *PanicError returned by Invoke.
func WithPanicHandler(h PanicHandler) Option {
	return func(d *Dispatcher) {
		d.panicHandler = h
	}
}

// New creates a new dispatcher. Start must be called before submitting work.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queueSize: 256,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the dispatch goroutine.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.tasks = make(chan task, d.queueSize)
	d.quit = make(chan struct{})
	d.running.Store(true)

	d.wg.Add(1)
	go d.loop(d.tasks, d.quit)

	return nil
}

// Stop shuts the dispatch goroutine down. Work already queued is still
// executed before the goroutine exits. Stop blocks until the goroutine has
// exited or ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running.Store(false)
	close(d.quit)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the dispatch goroutine is running.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Invoke runs fn on the dispatch goroutine and blocks until it completes,
// returning fn's error. A panic inside fn is recovered and returned as a
// *PanicError. Calling Invoke from the dispatch goroutine runs fn inline.
func (d *Dispatcher) Invoke(fn func() error) error {
	if d.OnDispatchThread() {
		return d.run(fn)
	}
	if !d.running.Load() {
		return ErrNotRunning
	}

	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case d.tasks <- t:
	case <-d.quit:
		return ErrNotRunning
	}

	select {
	case err := <-t.done:
		return err
	case <-d.quit:
		// The loop drains queued tasks on shutdown. Once it has exited,
		// either our task ran during the drain or it was never seen.
		d.wg.Wait()
		select {
		case err := <-t.done:
			return err
		default:
			return ErrNotRunning
		}
	}
}

// InvokeAsync queues fn on the dispatch goroutine without waiting for it.
func (d *Dispatcher) InvokeAsync(fn func() error) error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case d.tasks <- t:
		return nil
	case <-d.quit:
		return ErrNotRunning
	}
}

// OnDispatchThread reports whether the caller is running on the dispatch
// goroutine.
func (d *Dispatcher) OnDispatchThread() bool {
	id := d.loopID.Load()
	return id != 0 && id == goroutineID()
}

// loop is the dispatch goroutine body.
func (d *Dispatcher) loop(tasks chan task, quit chan struct{}) {
	defer d.wg.Done()

	d.loopID.Store(goroutineID())
	defer d.loopID.Store(0)

	for {
		select {
		case t := <-tasks:
			t.done <- d.run(t.fn)
		case <-quit:
			// Drain anything queued before shutdown.
			for {
				select {
				case t := <-tasks:
					t.done <- d.run(t.fn)
				default:
					return
				}
			}
		}
	}
}

// run executes fn with panic recovery and stat accounting.
func (d *Dispatcher) run(fn func() error) (err error) {
	d.invoked.Add(1)

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			d.panicked.Add(1)
			if d.panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					d.panicHandler(r, stack)
				}()
			}
			err = &PanicError{Value: r, Stack: stack}
		}
	}()

	err = fn()
	if err != nil {
		d.failed.Add(1)
	} else {
		d.succeeded.Add(1)
	}
	return err
}

// Stats contains dispatcher execution counters.
type Stats struct {
	Invoked   uint64
	Succeeded uint64
	Failed    uint64
	Panicked  uint64
}

// Stats returns a snapshot of execution counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Invoked:   d.invoked.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Panicked:  d.panicked.Load(),
	}
}

// goroutineID extracts the current goroutine's id from the runtime stack
// header ("goroutine 123 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
