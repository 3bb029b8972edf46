package channel

import "time"

// State of the managed connection
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

const (
	backoffBase = 1000 * time.Millisecond
	backoffMax  = 30000 * time.Millisecond

	DefaultMaxAttempts = 5
)

// Backoff returns the delay before reconnect attempt n (1-based):
// min(1000ms * 2^n, 30000ms).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^5 already exceeds the cap
	if attempt >= 5 {
		return backoffMax
	}
	d := backoffBase << attempt
	if d > backoffMax {
		return backoffMax
	}
	return d
}
