// Package scheduler implements the legacy single-coordinator execution
// strategy: one goroutine drains a submission queue and a completion queue,
// tracks pending deadlines in a sorted slice, and fires timeouts itself,
// instead of handing work to a pool of worker goroutines. It exists behind
// the same submit/future contract as package executor so callers can pick
// either strategy without the guard rail or promise code caring which one is
// in use.
package scheduler

import (
	"container/list"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
	"github.com/chalkan3-sloth/railguard/internal/rail"
)

const (
	spinThreshold  = 100
	yieldThreshold = 1000
	parkDuration   = time.Millisecond
)

type job struct {
	run         func() (outcome.Outcome, any)
	completable promise.Completable
	deadline    time.Time
	hasDeadline bool
	done        atomic.Bool
}

// complete is idempotent: whichever of the return path or the timeout path
// gets there first wins, matching the at-most-once completion guarantee the
// promise layer already provides at a finer grain.
func (j *job) complete(o outcome.Outcome, v any, cancelled bool) bool {
	if !j.done.CompareAndSwap(false, true) {
		return false
	}
	return j.completable.Complete(promise.Outcome{Result: o, Value: v, Cancelled: cancelled})
}

type retEntry struct {
	j *job
	o outcome.Outcome
	v any
}

// queue is a simple unbounded FIFO guarded by a mutex.
type queue[T any] struct {
	mu   sync.Mutex
	list list.List
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.PushBack(v)
}

func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	front := q.list.Front()
	if front == nil {
		return zero, false
	}
	q.list.Remove(front)
	return front.Value.(T), true
}

// Loop is the single-coordinator execution strategy. Construct with New and
// call Run (typically in its own goroutine); call Stop to end it.
type Loop struct {
	rail     *rail.GuardRail
	poolSize int

	toSchedule queue[*job]
	toReturn   queue[*retEntry]
	timeout    outcome.Outcome

	mu       sync.Mutex
	deadline []*job // sorted ascending by deadline

	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New creates a Loop bound to r. poolSize bounds how many submissions or
// returns are drained per cycle, so one slow batch can't starve the other
// queue.
func New(r *rail.GuardRail, poolSize int, timeoutOutcome outcome.Outcome) *Loop {
	if poolSize <= 0 {
		poolSize = 16
	}
	return &Loop{
		rail:     r,
		poolSize: poolSize,
		timeout:  timeoutOutcome,
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Submit acquires one permit from the rail and enqueues action for the loop
// to schedule on its next cycle. If d > 0 the job is cancelled with the
// configured timeout outcome once d elapses without a natural completion.
func Submit[V any](l *Loop, action func() (V, error), success, failure outcome.Outcome, d time.Duration) promise.Future {
	p, err := l.rail.AcquirePromise(1)
	if err != nil {
		if rej, ok := err.(*rail.RejectionError); ok {
			return promise.Rejected(rej.Reason)
		}
		return promise.Rejected(outcome.Reason{Name: "rejected"})
	}

	j := &job{
		completable: promise.NewCompletable(p),
		run: func() (outcome.Outcome, any) {
			v, err := action()
			if err != nil {
				return failure, err
			}
			return success, v
		},
	}
	if d > 0 {
		j.deadline = time.Now().Add(d)
		j.hasDeadline = true
	}
	l.toSchedule.push(j)
	return promise.FromPromise(p)
}

// Run executes the coordinator loop until Stop is called. It is meant to be
// run on its own goroutine; Run itself never spawns one.
func (l *Loop) Run() {
	defer close(l.stopped)
	idle := 0
	for {
		select {
		case <-l.quit:
			return
		default:
		}

		// Every step runs each cycle, so a busy queue cannot starve the others.
		scheduled := l.scheduleStep()
		returned := l.returnStep()
		expired := l.timeoutStep()
		didWork := scheduled || returned || expired
		if didWork {
			idle = 0
			continue
		}

		idle++
		switch {
		case idle < spinThreshold:
			// Busy-spin: loop again immediately.
		case idle < yieldThreshold:
			runtime.Gosched()
		default:
			time.Sleep(parkDuration)
		}
	}
}

// Stop signals Run to exit and blocks until it does.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}

// scheduleStep drains up to poolSize submissions, spawning one goroutine per
// job to run its action and push the result onto the return queue. This is
// the loop's only source of concurrency: the loop body itself stays
// single-threaded, only ever touching shared state (metrics, the breaker)
// from inside returnStep/timeoutStep.
func (l *Loop) scheduleStep() bool {
	did := false
	for i := 0; i < l.poolSize; i++ {
		j, ok := l.toSchedule.pop()
		if !ok {
			break
		}
		did = true
		if j.hasDeadline {
			l.insertDeadline(j)
		}
		go func(j *job) {
			o, v := j.run()
			l.toReturn.push(&retEntry{j: j, o: o, v: v})
		}(j)
	}
	return did
}

// returnStep drains up to poolSize completions, delivering each into its
// promise. Completion here is where the rail's release chain actually runs,
// via the promise's on-complete hook installed by AcquirePromise.
func (l *Loop) returnStep() bool {
	did := false
	for i := 0; i < l.poolSize; i++ {
		e, ok := l.toReturn.pop()
		if !ok {
			break
		}
		did = true
		e.j.complete(e.o, e.v, false)
		l.removeDeadline(e.j)
	}
	return did
}

// timeoutStep cancels every job whose deadline has passed. Racing a
// completion that arrived in the same cycle is safe: job.complete is
// idempotent, so whichever of returnStep or timeoutStep observes the job
// first wins and the other is a no-op.
func (l *Loop) timeoutStep() bool {
	now := time.Now()
	var due []*job

	l.mu.Lock()
	i := 0
	for i < len(l.deadline) && !l.deadline[i].deadline.After(now) {
		due = append(due, l.deadline[i])
		i++
	}
	l.deadline = l.deadline[i:]
	l.mu.Unlock()

	for _, j := range due {
		j.complete(l.timeout, nil, true)
	}
	return len(due) > 0
}

func (l *Loop) insertDeadline(j *job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := sort.Search(len(l.deadline), func(i int) bool {
		return l.deadline[i].deadline.After(j.deadline)
	})
	l.deadline = append(l.deadline, nil)
	copy(l.deadline[i+1:], l.deadline[i:])
	l.deadline[i] = j
}

func (l *Loop) removeDeadline(j *job) {
	if !j.hasDeadline {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, d := range l.deadline {
		if d == j {
			l.deadline = append(l.deadline[:i], l.deadline[i+1:]...)
			return
		}
	}
}
