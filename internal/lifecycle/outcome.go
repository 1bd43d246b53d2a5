package lifecycle

// Status classifies how a lifecycle operation ended.
type Status int

const (
	// StatusSuccess: the operation completed and any transaction committed.
	StatusSuccess Status = iota
	// StatusAborted: a before-hook returned Halt. No mutation happened and
	// any transaction opened for the operation was rolled back. Aborted is
	// a non-error outcome.
	StatusAborted
	// StatusFailed: a hook returned an error, validation failed, or the
	// executor failed. Any open transaction was rolled back.
	StatusFailed
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports the result of a save, destroy, or validate operation.
// Callers distinguish the non-exceptional Aborted outcome from Failed by
// Status; Err is set only for Failed.
type Outcome struct {
	Status Status
	Err    error
}

// Succeeded returns true for a successful outcome.
func (o Outcome) Succeeded() bool { return o.Status == StatusSuccess }

// Aborted returns true when a before-hook halted the operation.
func (o Outcome) Aborted() bool { return o.Status == StatusAborted }

// Failed returns true for an error outcome.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

func succeeded() Outcome        { return Outcome{Status: StatusSuccess} }
func aborted() Outcome          { return Outcome{Status: StatusAborted} }
func failed(err error) Outcome  { return Outcome{Status: StatusFailed, Err: err} }
