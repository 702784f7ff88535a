package campaign

import "time"

// State of the driver. Idle before any run; Stopped, Completed and
// Errored are terminal for a run.
type State string

const (
	StateIdle          State = "idle"
	StateRunning       State = "running"
	StateWaitingWindow State = "waiting_window"
	StateSending       State = "sending"
	StateStopped       State = "stopped"
	StateCompleted     State = "completed"
	StateErrored       State = "errored"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted || s == StateErrored
}

type EventKind string

const (
	EventProgress      EventKind = "progress"
	EventSuccess       EventKind = "success"
	EventFailure       EventKind = "failure"
	EventWaitingWindow EventKind = "waiting_window"
	EventTerminal      EventKind = "terminal"
)

// Event is one notification from the driver to whatever front end is
// listening. The driver never blocks on a slow consumer.
type Event struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	Recipient string    `json:"recipient,omitempty"`
	Time      time.Time `json:"time"`
}

// Stop reasons, so an operator cancel is distinguishable from a
// quota stop in the run result.
const (
	ReasonCancelled      = "cancelled by operator"
	ReasonQuotaExhausted = "daily quota exhausted"
)

// Result is the driver's status snapshot: live while a run is in
// progress, final once it reaches a terminal state.
type Result struct {
	RunID  string `json:"run_id"`
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
	Total  int    `json:"total"`
}
