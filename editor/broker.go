package editor

import (
	"time"
)

type (
	// Broker is the message broker between the editing model and its
	// consumers. The model never blocks on it: messages are dropped if the
	// receiving side does not keep up.
	//
	// ToPlayer receives a SessionChanged message after every committed
	// change, so a render goroutine knows to pick up the new clip state.
	// ToGUI receives ProgressMessages and Alerts.
	Broker struct {
		ToPlayer chan any
		ToGUI    chan any
	}

	// SessionChanged is sent to the player after a command has been applied
	// or inverted.
	SessionChanged struct {
		Command string
		Undo    bool
	}

	// Alert is a message for the user.
	Alert struct {
		Message  string
		Priority AlertPriority
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer: make(chan any, 1024),
		ToGUI:    make(chan any, 1024),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive waits at most t for a value from the channel. ok is false
// on timeout and on a closed channel; consumers use it to flush what is
// still queued when they shut down.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
