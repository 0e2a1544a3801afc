package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
)

// Gateway turns registrations presented by callers into ledger records and
// reachable nodes. Registrations queue up until the next broker tick.
type Gateway struct {
	Recorder Recorder
	ledger   state.Ledger
	log      *slog.Logger
	pending  []state.NodeID
	queued   map[state.NodeID]struct{}
}

func NewGateway(ledger state.Ledger, log *slog.Logger) *Gateway {
	g := &Gateway{}
	g.setup(ledger, log)
	return g
}

func (g *Gateway) setup(ledger state.Ledger, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	g.ledger = ledger
	g.log = log.With("module", "gateway")
	g.pending = make([]state.NodeID, 0)
	g.queued = make(map[state.NodeID]struct{})
}

func (g *Gateway) Init(s *state.State) error {
	s.Log.Debug("init gateway")
	g.setup(s.Ledger, s.Log)
	return nil
}

func (g *Gateway) Cleanup(s *state.State) error {
	g.pending = nil
	g.queued = nil
	return nil
}

// Queue records a registration for id. Queuing an id that is already pending does nothing.
func (g *Gateway) Queue(id state.NodeID) {
	if _, ok := g.queued[id]; ok {
		return
	}
	g.queued[id] = struct{}{}
	g.pending = append(g.pending, id)
}

// Pending returns how many registrations wait for the next tick
func (g *Gateway) Pending() int {
	return len(g.pending)
}

// Tick hands every pending registration to the broker, in the order they were queued.
func (g *Gateway) Tick() []Action {
	if len(g.pending) == 0 {
		return nil
	}
	actions := make([]Action, 0, len(g.pending))
	for _, id := range g.pending {
		actions = append(actions, RegisterRequest{ID: id})
	}
	g.pending = g.pending[:0]
	clear(g.queued)
	return actions
}

// Action handles a RegisterRequest: the ledger record is fetched, or created with zero mana,
// and registered again so its active window starts now. The node then becomes reachable.
func (g *Gateway) Action(ctx context.Context, a Action) ([]Action, error) {
	req, ok := a.(RegisterRequest)
	if !ok {
		g.log.Warn("gateway cannot handle action", "action", a)
		return nil, nil
	}
	rec, err := fetchOrCreate(ctx, g.ledger, req.ID)
	if err != nil {
		return nil, err
	}
	if _, err = g.ledger.Register(ctx, rec); err != nil {
		return nil, err
	}
	perf.RegistersPerSecond.Add(1)
	record(g.Recorder, EventRegistered, rec.ID)
	g.log.Debug("registered", "node", rec.ID, "name", rec.Name, "mana", rec.Mana)
	return []Action{NodeOnline{Record: rec}}, nil
}

// fetchOrCreate returns the ledger record of id. An unknown id gets a fresh record,
// which is not yet written to the ledger.
func fetchOrCreate(ctx context.Context, ledger state.Ledger, id state.NodeID) (state.NodeRecord, error) {
	rec, err := ledger.Info(ctx, id)
	if errors.Is(err, state.ErrNotFound) {
		return state.NewRecord(id), nil
	}
	return rec, err
}
