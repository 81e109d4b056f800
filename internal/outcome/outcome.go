// Package outcome records how a best-effort operation ended.
//
// Storage writes and external feed polls never surface errors to the
// user; they degrade to "no signal". Outcome keeps those failure paths
// observable (and testable) without turning them into returned errors.
package outcome

import "fmt"

// Status classifies a best-effort operation.
type Status string

const (
	// StatusOK means the operation took effect.
	StatusOK Status = "ok"
	// StatusSkipped means nothing was attempted (feature off, poll already in flight).
	StatusSkipped Status = "skipped"
	// StatusDegraded means a write was attempted and dropped.
	StatusDegraded Status = "degraded"
	// StatusDisconnected means the external feed could not be reached.
	StatusDisconnected Status = "disconnected"
	// StatusDiscarded means a response arrived but was unusable.
	StatusDiscarded Status = "discarded"
	// StatusStale means a response arrived after the session it belonged to ended.
	StatusStale Status = "stale"
)

// Outcome is the result of one best-effort operation.
type Outcome struct {
	Op     string `json:"op"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// OK reports a successful op.
func OK(op string) Outcome { return Outcome{Op: op, Status: StatusOK} }

// Skipped reports an op that was not attempted.
func Skipped(op string) Outcome { return Outcome{Op: op, Status: StatusSkipped} }

// Failed reports an op that ended with status s because of err.
func Failed(op string, s Status, err error) Outcome {
	return Outcome{Op: op, Status: s, Err: err}
}

// Applied reports whether the op took effect.
func (o Outcome) Applied() bool { return o.Status == StatusOK }

// Error returns the detail for logs, or "" when there is none.
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", o.Op, o.Status, o.Err)
	}
	return fmt.Sprintf("%s: %s", o.Op, o.Status)
}
