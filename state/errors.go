package state

import "errors"

var (
	// ErrNotRegistered is returned by liveness refreshes for ids the ledger does not know.
	ErrNotRegistered = errors.New("node not registered")
	// ErrNotFound is returned by lookups for ids the ledger does not know.
	ErrNotFound = errors.New("node not found")
	// ErrChannelClosed means the worker serving the request has terminated.
	ErrChannelClosed = errors.New("worker channel closed")
	// ErrConfig is wrapped by every construction-time validation failure.
	ErrConfig = errors.New("invalid configuration")
	// ErrActionOverflow is returned when a single drain exceeds MaxDrainActions.
	ErrActionOverflow = errors.New("action queue did not settle")
)
