// Package promise implements the one-shot result cell the guard rail and
// executor complete work through: Completable is the single-writer form a
// cancellable task writes to, Promise is the multi-writer-safe form used
// wherever more than one goroutine might race to complete the same unit of
// work (a worker finishing naturally vs. a timeout firing). Both share the
// same state machine; Promise just makes the completing-CAS explicit so
// double-completion from distinct goroutines is safe rather than merely
// single-writer-safe.
//
// The state machine is a single atomic word (pending -> completing -> done)
// plus a mutex-guarded value slot: atomics on the hot, non-blocking path,
// with the slot publish happening strictly between the two CASes so a
// reader that observes "done" always sees a fully published outcome/value.
package promise

import (
	"sync"
	"sync/atomic"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/google/uuid"
)

type state int32

const (
	pending state = iota
	completing
	done
)

// Outcome pairs a result-class outcome with its payload value. For a
// failure outcome, Value is conventionally the error that caused it.
type Outcome struct {
	Result outcome.Outcome
	Value  any
	// Cancelled marks a completion that arrived via Cancel rather than a
	// natural return, e.g. a timeout.
	Cancelled bool
}

// Callback is invoked exactly once when a promise completes, with the final
// outcome. A callback that panics is isolated — it does not stop other
// registered callbacks from running and does not propagate to the
// completer.
type Callback func(Outcome)

type callbackNode struct {
	fn   Callback
	next *callbackNode
}

// Promise is a multi-writer-safe one-shot result cell.
type Promise struct {
	st   atomic.Int32
	mu   sync.Mutex
	val  Outcome
	head atomic.Pointer[callbackNode]
	ch   chan struct{} // closed exactly once, on completion; backs Await
	id   uuid.UUID
}

// New creates a pending promise, tagged with a correlation id so logs from
// acquire, release and any intermediate gate can be joined on the same id
// across the goroutines that touch this one unit of work.
func New() *Promise {
	return &Promise{ch: make(chan struct{}), id: uuid.New()}
}

// ID returns the promise's correlation id, stable for its whole lifetime.
func (p *Promise) ID() uuid.UUID { return p.id }

// Complete attempts to transition pending -> done with the given outcome.
// Returns true if this call won the race and the outcome was published;
// false if the promise was already completing or done, in which case this
// call is a silent no-op (DoubleComplete, by design never visible to
// callers as an error).
func (p *Promise) Complete(o Outcome) bool {
	if !p.st.CompareAndSwap(int32(pending), int32(completing)) {
		return false
	}
	p.mu.Lock()
	p.val = o
	p.mu.Unlock()
	p.st.Store(int32(done))
	close(p.ch)
	p.fire(o)
	return true
}

// fire drains the callback list, invoking each in reverse registration order
// (the list is built by prepending), isolating panics per callback so one
// bad handler can't suppress the rest.
func (p *Promise) fire(o Outcome) {
	node := p.head.Swap(sentinel)
	for node != nil && node != sentinel {
		cb := node.fn
		func() {
			defer func() { _ = recover() }()
			cb(o)
		}()
		node = node.next
	}
}

// sentinel marks "already fired" so late OnComplete registrations invoke
// immediately instead of linking into a list nobody will ever drain again.
var sentinel = &callbackNode{}

// IsDone reports whether the promise has completed (or is in the process of
// completing — i.e. not observably pending anymore).
func (p *Promise) IsDone() bool {
	return state(p.st.Load()) != pending
}

// Result returns the completion outcome and true, or the zero value and
// false if the promise has not completed yet.
func (p *Promise) Result() (Outcome, bool) {
	if state(p.st.Load()) != done {
		return Outcome{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.val, true
}

// Await blocks until the promise completes and returns its outcome.
func (p *Promise) Await() Outcome {
	<-p.ch
	o, _ := p.Result()
	return o
}

// OnComplete registers cb to run once, when the promise completes. If the
// promise is already done, cb runs synchronously before OnComplete returns.
func (p *Promise) OnComplete(cb Callback) {
	node := &callbackNode{fn: cb}
	for {
		head := p.head.Load()
		if head == sentinel {
			// Already fired: invoke immediately, isolated like any other
			// callback.
			func() {
				defer func() { _ = recover() }()
				o, _ := p.Result()
				cb(o)
			}()
			return
		}
		node.next = head
		if p.head.CompareAndSwap(head, node) {
			return
		}
	}
}

// Completable is the single-writer view of a Promise: it exposes only
// Complete, hiding OnComplete/Await registration from the writer side so a
// task's completion code can't accidentally subscribe to its own promise.
type Completable struct {
	p *Promise
}

// NewCompletable wraps p as a single-writer Completable.
func NewCompletable(p *Promise) Completable {
	return Completable{p: p}
}

// Complete publishes the outcome; see Promise.Complete for semantics.
func (c Completable) Complete(o Outcome) bool { return c.p.Complete(o) }

// ID returns the correlation id of the underlying promise.
func (c Completable) ID() uuid.UUID { return c.p.ID() }
