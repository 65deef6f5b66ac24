package client

import "fmt"

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateEstablished
	StateLost
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateEstablished:
		return "established"
	case StateLost:
		return "lost"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ConnectionState is the published state of a session. Reason carries the
// server's error message when State is StateRejected.
type ConnectionState struct {
	State  State
	Reason string
}

func (c ConnectionState) String() string {
	if c.State == StateRejected {
		return fmt.Sprintf("rejected (%s)", c.Reason)
	}
	return c.State.String()
}

// Running reports whether the state belongs to a live session.
func (c ConnectionState) Running() bool {
	return c.State == StateConnecting || c.State == StateEstablished
}
