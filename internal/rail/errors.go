package rail

import (
	"fmt"
	"strings"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
)

// RejectionError is returned by Acquire when a back-pressure gate denies the
// request. It carries the structured reason, not just a string.
type RejectionError struct {
	Rail   string
	Gate   string
	Reason outcome.Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rail %q: rejected by gate %q: %s", e.Rail, e.Gate, e.Reason.Name)
}

// InvalidResultError is raised synchronously at the completion call site
// when a caller completes a promise with an outcome name outside the rail's
// result class. It never touches rail state.
type InvalidResultError struct {
	Rail    string
	Got     string
	Allowed []string
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("invalid result %q; valid results are [%s]", e.Got, strings.Join(e.Allowed, ", "))
}
