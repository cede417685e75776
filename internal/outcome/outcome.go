// Package outcome models the two closed, finite token sets the guard rail
// operates over: result outcomes (e.g. success/error/timeout) and rejection
// reasons (e.g. max-concurrency/circuit-open). Both are represented as small
// integer indices into a fixed table rather than dynamic maps, so a release
// or a rejection never pays a hashing cost on the hot path; the string
// token is only needed at the edges (construction, logging, external
// reporting).
package outcome

import "fmt"

// Outcome is one member of a rail's result class. Index is the position of
// this outcome in the class's fixed table and doubles as the slot used by
// counters and latency recorders.
type Outcome struct {
	Index   int
	Name    string
	Failure bool
}

// IsSuccess reports whether this outcome counts as a success for breaker
// and reporting purposes.
func (o Outcome) IsSuccess() bool { return !o.Failure }

func (o Outcome) String() string { return o.Name }

// Reason is one member of a rail's rejection class.
type Reason struct {
	Index int
	Name  string
}

func (r Reason) String() string { return r.Name }

// ResultClass is the closed set of outcomes fixed at guard-rail construction.
type ResultClass struct {
	outcomes []Outcome
	byName   map[string]int
}

// NewResultClass builds a ResultClass from (name, failure) pairs in the order
// they should be indexed. Names must be unique and non-empty.
func NewResultClass(defs ...OutcomeDef) (*ResultClass, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("outcome: result class must have at least one outcome")
	}
	rc := &ResultClass{
		outcomes: make([]Outcome, 0, len(defs)),
		byName:   make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("outcome: outcome name must not be empty")
		}
		if _, dup := rc.byName[d.Name]; dup {
			return nil, fmt.Errorf("outcome: duplicate outcome %q", d.Name)
		}
		rc.byName[d.Name] = i
		rc.outcomes = append(rc.outcomes, Outcome{Index: i, Name: d.Name, Failure: d.Failure})
	}
	return rc, nil
}

// OutcomeDef is the construction-time description of one outcome.
type OutcomeDef struct {
	Name    string
	Failure bool
}

// Len returns the number of outcomes in the class.
func (rc *ResultClass) Len() int { return len(rc.outcomes) }

// All returns the outcomes in index order. The returned slice must not be
// mutated by callers.
func (rc *ResultClass) All() []Outcome { return rc.outcomes }

// Lookup resolves a name to its Outcome, raising InvalidResult semantics via
// the bool return — callers decide how to surface the error.
func (rc *ResultClass) Lookup(name string) (Outcome, bool) {
	i, ok := rc.byName[name]
	if !ok {
		return Outcome{}, false
	}
	return rc.outcomes[i], true
}

// At returns the outcome at a given index. Panics if out of range; callers
// only ever pass indices obtained from Lookup or All.
func (rc *ResultClass) At(i int) Outcome { return rc.outcomes[i] }

// Names returns the valid outcome names, in index order, for error messages.
func (rc *ResultClass) Names() []string {
	names := make([]string, len(rc.outcomes))
	for i, o := range rc.outcomes {
		names[i] = o.Name
	}
	return names
}

// RejectionClass is the closed set of rejection reasons fixed at construction.
type RejectionClass struct {
	reasons []Reason
	byName  map[string]int
}

// NewRejectionClass builds a RejectionClass from reason names in index order.
func NewRejectionClass(names ...string) (*RejectionClass, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("outcome: rejection class must have at least one reason")
	}
	rc := &RejectionClass{
		reasons: make([]Reason, 0, len(names)),
		byName:  make(map[string]int, len(names)),
	}
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("outcome: rejection reason must not be empty")
		}
		if _, dup := rc.byName[n]; dup {
			return nil, fmt.Errorf("outcome: duplicate rejection reason %q", n)
		}
		rc.byName[n] = i
		rc.reasons = append(rc.reasons, Reason{Index: i, Name: n})
	}
	return rc, nil
}

func (rc *RejectionClass) Len() int { return len(rc.reasons) }

func (rc *RejectionClass) All() []Reason { return rc.reasons }

func (rc *RejectionClass) Lookup(name string) (Reason, bool) {
	i, ok := rc.byName[name]
	if !ok {
		return Reason{}, false
	}
	return rc.reasons[i], true
}

func (rc *RejectionClass) At(i int) Reason { return rc.reasons[i] }

func (rc *RejectionClass) Names() []string {
	names := make([]string, len(rc.reasons))
	for i, r := range rc.reasons {
		names[i] = r.Name
	}
	return names
}

// Reserved rejection reasons every rail is expected to recognize; gates are
// free to register additional reasons of their own.
const (
	ReasonMaxConcurrency = "max-concurrency"
	ReasonCircuitOpen    = "circuit-open"
	ReasonExecutorClosed = "executor-closed"
)
