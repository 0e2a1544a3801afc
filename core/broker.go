package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/manasim/ledger"
	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
)

// Broker is the composition root of the simulation. It owns the router, the simulator
// and the registration gateway, holds the ledger handle, and runs every operation on
// its own goroutine, one at a time.
type Broker struct {
	env  *state.Env
	rec  Recorder
	done chan struct{}
}

// NewBroker validates cfg, starts the ledger and the broker goroutine. start is the
// initial simulated time. rec may be nil.
func NewBroker(cfg state.Config, start time.Time, log *slog.Logger, rec Recorder) (*Broker, error) {
	if err := state.ConfigValidator(&cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	l, err := ledger.New(cfg.Ledger, start, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, state.DispatchBufferSize)
	s := &state.State{
		Modules: make(map[string]state.Module),
		Now:     start,
		Env: &state.Env{
			DispatchChannel: dispatch,
			Config:          cfg,
			Ledger:          l,
			Context:         ctx,
			Cancel:          cancel,
			Log:             log,
		},
	}

	s.Log.Debug("init modules")
	if err := initModules(s); err != nil {
		cancel(err)
		_ = l.Close()
		return nil, err
	}
	Get[*Router](s).Recorder = rec
	Get[*Simulator](s).Recorder = rec
	Get[*Gateway](s).Recorder = rec

	b := &Broker{
		env:  s.Env,
		rec:  rec,
		done: make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		_ = MainLoop(s, dispatch)
	}()
	s.Log.Info("broker started", "root", cfg.Simulator.NodesRoot, "flex", cfg.Simulator.NodesFlex)
	return b, nil
}

// Tick advances the simulation to now. Connectivity changes, pending registrations and
// router traffic are processed before the ledger sees the new time.
func (b *Broker) Tick(ctx context.Context, now time.Time) error {
	_, err := state.DispatchWait(ctx, b.env, func(s *state.State) (struct{}, error) {
		return struct{}{}, tick(s, now, b.rec)
	})
	return err
}

// Register queues the registration of the node behind secret and returns its id.
// The node appears in the ledger after the next tick.
func (b *Broker) Register(ctx context.Context, secret state.NodeSecret) (state.NodeID, error) {
	id := state.SecretToID(secret)
	return state.DispatchWait(ctx, b.env, func(s *state.State) (state.NodeID, error) {
		Get[*Gateway](s).Queue(id)
		return id, nil
	})
}

// Alive refreshes the liveness of id and returns its mana, or state.ErrNotRegistered.
func (b *Broker) Alive(ctx context.Context, id state.NodeID) (state.Mana, error) {
	return state.DispatchWait(ctx, b.env, func(s *state.State) (state.Mana, error) {
		return s.Ledger.Alive(ctx, id)
	})
}

// GetNodeInfo returns the record of id, or state.ErrNotFound.
func (b *Broker) GetNodeInfo(ctx context.Context, id state.NodeID) (state.NodeRecord, error) {
	return state.DispatchWait(ctx, b.env, func(s *state.State) (state.NodeRecord, error) {
		return s.Ledger.Info(ctx, id)
	})
}

// Status returns a snapshot of the simulated time, the reachable nodes and the ledger.
func (b *Broker) Status(ctx context.Context) (state.NetworkStatus, error) {
	return state.DispatchWait(ctx, b.env, func(s *state.State) (state.NetworkStatus, error) {
		nodes, err := s.Ledger.List(ctx)
		if err != nil {
			return state.NetworkStatus{}, err
		}
		return state.NetworkStatus{
			Time:   s.Now,
			Online: Get[*Router](s).Reachable(),
			Nodes:  nodes,
		}, nil
	})
}

// Done is closed once the broker goroutine has stopped and the ledger is closed
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

// Err returns why the broker stopped, or nil while it runs
func (b *Broker) Err() error {
	if b.env.Context.Err() == nil {
		return nil
	}
	return context.Cause(b.env.Context)
}

// Close stops the broker and the ledger and waits for both.
func (b *Broker) Close() error {
	b.env.Cancel(errors.New("broker closed"))
	<-b.done
	return nil
}

func tick(s *state.State, now time.Time, rec Recorder) error {
	start := time.Now()
	defer func() {
		perf.TickLatency.Add(float64(time.Since(start).Microseconds()))
	}()
	if now.Before(s.Now) {
		s.Log.Warn("ignoring tick from the past", "now", now, "last", s.Now)
		return nil
	}
	s.Now = now
	ctx := s.Context

	queue := make([]Action, 0)
	actions, err := Get[*Simulator](s).Tick(ctx)
	queue = append(queue, actions...)
	if err != nil {
		// nodes the simulator already moved must reach the router
		_ = drain(ctx, s, queue, rec)
		return fmt.Errorf("simulator tick: %w", err)
	}
	queue = append(queue, Get[*Gateway](s).Tick()...)
	queue = append(queue, Get[*Router](s).Tick(s.Now)...)

	drainErr := drain(ctx, s, queue, rec)
	if err := s.Ledger.Tick(ctx, now); err != nil {
		return fmt.Errorf("ledger tick: %w", err)
	}
	if err := reconcile(ctx, s); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	perf.NodesOnline.Set(float64(len(Get[*Router](s).Reachable())))
	return drainErr
}

// reconcile takes nodes the ledger has removed out of the router.
func reconcile(ctx context.Context, s *state.State) error {
	nodes, err := s.Ledger.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[state.NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	r := Get[*Router](s)
	for _, id := range r.Reachable() {
		if _, ok := known[id]; !ok {
			s.Log.Debug("node left the ledger", "node", id)
			r.Action(NodeOffline{ID: id})
		}
	}
	return nil
}

// drain routes queued actions last in, first out, pushing the actions each handler
// returns, until the queue is empty or state.MaxDrainActions were handled.
func drain(ctx context.Context, s *state.State, queue []Action, rec Recorder) error {
	handled := 0
	defer func() {
		perf.ActionsPerTick.Add(float64(handled))
		perf.ActionsPerSecond.Add(float64(handled))
	}()
	for len(queue) > 0 {
		if handled >= state.MaxDrainActions {
			s.Log.Warn("action queue did not settle, discarding", "pending", len(queue), "handled", handled)
			record(rec, EventDrainOverflow, len(queue))
			return fmt.Errorf("%w: %d actions discarded", state.ErrActionOverflow, len(queue))
		}
		a := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		handled++
		perf.ActionsTotal.WithLabelValues(actionKind(a)).Inc()
		record(rec, EventActionRouted, a)
		next, err := route(ctx, s, a)
		if err != nil {
			return fmt.Errorf("handling %s: %w", a, err)
		}
		queue = append(queue, next...)
	}
	return nil
}

func route(ctx context.Context, s *state.State, a Action) ([]Action, error) {
	switch a := a.(type) {
	case NodeOnline:
		return Get[*Router](s).Action(a), nil
	case NodeOffline:
		return Get[*Router](s).Action(a), nil
	case RegisterRequest:
		return Get[*Gateway](s).Action(ctx, a)
	default:
		return nil, fmt.Errorf("unknown action %T", a)
	}
}

func actionKind(a Action) string {
	switch a.(type) {
	case NodeOnline:
		return "online"
	case NodeOffline:
		return "offline"
	case RegisterRequest:
		return "register"
	default:
		return "unknown"
	}
}
