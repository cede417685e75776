// Package executor implements the fixed-size thread pool that actually runs
// admitted work: a rail decides whether work is admitted at all, the pool
// decides which goroutine runs it, and a shared timeout.Service decides
// whether it ran too long. The pool's internal queue is an unbounded FIFO —
// the rail is the only back-pressure point, so the queue itself has no
// capacity limit of its own.
package executor

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
	"github.com/chalkan3-sloth/railguard/internal/rail"
	"github.com/chalkan3-sloth/railguard/internal/task"
	"github.com/chalkan3-sloth/railguard/internal/timeout"
)

// ErrClosed is the value of the failed, cancelled future Submit returns once
// the executor has been shut down.
type ErrClosed struct{ Name string }

func (e *ErrClosed) Error() string { return fmt.Sprintf("executor %q is closed", e.Name) }

// ThreadPoolExecutor runs admitted work on a fixed pool of goroutines. Its
// internal queue is unbounded FIFO — callers rely entirely on the rail's
// gates for back-pressure, not on the pool itself.
type ThreadPoolExecutor struct {
	name    string
	rail    *rail.GuardRail
	timeout *timeout.Service
	ownsTO  bool

	success outcome.Outcome
	failure outcome.Outcome
	timedOut outcome.Outcome
	log      *slog.Logger

	mu      sync.Mutex
	queue   list.List // of func()
	notify  chan struct{}
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // worker goroutines
	pending sync.WaitGroup // enqueued-but-not-yet-run work items
}

// Options configures a ThreadPoolExecutor.
type Options struct {
	Workers int
	// TimeoutService is shared across executors when set; a private one is
	// created and owned by this executor otherwise.
	TimeoutService *timeout.Service
	// Success/Failure/Timeout are the rail result-class outcomes this
	// executor's actions are converted into.
	Success, Failure, Timeout outcome.Outcome
	// Logger receives one debug-level line per submit/completion, keyed by
	// the task's correlation id. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a running ThreadPoolExecutor bound to r.
func New(name string, r *rail.GuardRail, opts Options) *ThreadPoolExecutor {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	ts := opts.TimeoutService
	ownsTO := false
	if ts == nil {
		ts = timeout.New()
		ownsTO = true
	}
	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &ThreadPoolExecutor{
		name:     name,
		rail:     r,
		timeout:  ts,
		ownsTO:   ownsTO,
		success:  opts.Success,
		failure:  opts.Failure,
		timedOut: opts.Timeout,
		log:      log,
		notify:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// cancellableTaskAdapter lets a *task.CancellableTask[V] satisfy
// timeout.Cancellable without that package importing task and vice versa.
type cancellableTaskAdapter struct {
	cancel func() bool
}

func (a cancellableTaskAdapter) Cancel() bool { return a.cancel() }

// Submit acquires one permit from the rail, then schedules action to run on
// the pool. If d > 0 the action is cancelled with the configured timeout
// outcome if it has not completed within d. Submit returns a Future
// immediately; it never blocks on action itself.
func Submit[V any](e *ThreadPoolExecutor, action func() (V, error), d time.Duration) promise.Future {
	p, err := e.rail.AcquirePromise(1)
	if err != nil {
		rej, ok := err.(*rail.RejectionError)
		if ok {
			return promise.Rejected(rej.Reason)
		}
		return promise.Rejected(outcome.Reason{Name: "rejected"})
	}

	completable := promise.NewCompletable(p)
	tk := task.New(action,
		func(V) outcome.Outcome { return e.success },
		func(error) outcome.Outcome { return e.failure },
		completable,
	)
	e.log.Debug("task submitted", "executor", e.name, "task_id", tk.ID())

	var remove func()
	if d > 0 {
		remove = e.timeout.Arm(time.Now().Add(d), cancellableTaskAdapter{
			cancel: func() bool {
				return tk.Cancel(e.timedOut, &task.TimeoutError{})
			},
		})
	}

	if !e.enqueue(func() {
		tk.Run()
		if remove != nil {
			remove()
		}
		e.log.Debug("task completed", "executor", e.name, "task_id", tk.ID())
	}) {
		tk.Cancel(e.failure, &ErrClosed{Name: e.name})
	}

	return promise.FromPromise(p)
}

func (e *ThreadPoolExecutor) enqueue(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.pending.Add(1)
	e.queue.PushBack(fn)
	select {
	case e.notify <- struct{}{}:
	default:
	}
	return true
}

func (e *ThreadPoolExecutor) dequeue() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	front := e.queue.Front()
	if front == nil {
		return nil, false
	}
	e.queue.Remove(front)
	return front.Value.(func()), true
}

func (e *ThreadPoolExecutor) worker() {
	defer e.wg.Done()
	for {
		for {
			fn, ok := e.dequeue()
			if !ok {
				break
			}
			fn()
			e.pending.Done()
		}
		select {
		case <-e.ctx.Done():
			return
		case <-e.notify:
		}
	}
}

// Shutdown stops accepting new work and waits for in-flight and already
// queued work to finish running. It does not cancel queued work — every
// already-enqueued action still runs to completion.
func (e *ThreadPoolExecutor) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.pending.Wait()
	e.cancel()
	e.wg.Wait()
	if e.ownsTO {
		e.timeout.Shutdown()
	}
}
