package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Module is a subsystem owned by the broker goroutine
type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// Ledger is the handle subsystems hold to the trust ledger. They never see its internals.
type Ledger interface {
	Register(ctx context.Context, record NodeRecord) ([]NodeRecord, error)
	Alive(ctx context.Context, id NodeID) (Mana, error)
	Info(ctx context.Context, id NodeID) (NodeRecord, error)
	List(ctx context.Context) ([]NodeRecord, error)
	Tick(ctx context.Context, now time.Time) error
	Close() error
}

// State access must be done only on the broker goroutine
type State struct {
	*Env
	Modules map[string]Module
	// Now is the time of the last tick
	Now time.Time
}

// Env can be read from any goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	Config
	Ledger   Ledger
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Started  atomic.Bool
	Stopping atomic.Bool
}
