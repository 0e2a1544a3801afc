package core

import "fmt"

// Event names something observable that happened inside the broker or the router
type Event uint8

const (
	EventNodeAdded Event = iota
	EventNodeRemoved
	EventNodeIgnored
	EventDelivered
	EventDropped
	EventActionRouted
	EventDrainOverflow
	EventSignIn
	EventSignOut
	EventRegistered
)

func (e Event) String() string {
	switch e {
	case EventNodeAdded:
		return "NODE_ADDED"
	case EventNodeRemoved:
		return "NODE_REMOVED"
	case EventNodeIgnored:
		return "NODE_IGNORED"
	case EventDelivered:
		return "DELIVERED"
	case EventDropped:
		return "DROPPED"
	case EventActionRouted:
		return "ACTION_ROUTED"
	case EventDrainOverflow:
		return "DRAIN_OVERFLOW"
	case EventSignIn:
		return "SIGN_IN"
	case EventSignOut:
		return "SIGN_OUT"
	case EventRegistered:
		return "REGISTERED"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// Recorder observes events. A nil Recorder is valid and records nothing.
type Recorder interface {
	Record(ev Event, args ...any)
}

func record(r Recorder, ev Event, args ...any) {
	if r != nil {
		r.Record(ev, args...)
	}
}
