// Package fsm models the assistant's dispatch cycle as explicit states.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle          State = "idle"
	StateAcknowledging State = "acknowledging"
	StateListening     State = "listening"
	StateDispatching   State = "dispatching"
	StateError         State = "error"
)

const (
	EventWake         Event = "wake"
	EventAcknowledged Event = "acknowledged"
	EventHeard        Event = "heard"
	EventFollowUp     Event = "follow_up"
	EventDone         Event = "done"
	EventFail         Event = "fail"
	EventReset        Event = "reset"
)

// Transition returns the next state, or the current state and an error when
// the event is not valid from current.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventWake:
			return StateAcknowledging, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAcknowledging:
		switch event {
		case EventAcknowledged:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventHeard:
			return StateDispatching, nil
		case EventDone:
			// nothing usable was heard
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDispatching:
		switch event {
		case EventFollowUp:
			return StateListening, nil
		case EventDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a dispatch cycle is in flight.
func Busy(state State) bool {
	return state != StateIdle && state != StateError
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
