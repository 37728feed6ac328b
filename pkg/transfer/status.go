package transfer

// State represents the current state of a transfer session.
type State int

const (
	// StatePending indicates the session was created but has not dialed yet.
	StatePending State = iota
	// StateActive indicates the session is connecting or receiving.
	StateActive
	// StateCompleted indicates the sender closed the stream and the sink was flushed.
	StateCompleted
	// StateFailed indicates the session ended on an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
