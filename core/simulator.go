package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
)

// Simulator drives the connectivity of the simulated population. Every node is a
// two-state chain that is advanced once per tick.
type Simulator struct {
	Recorder Recorder
	ledger   state.Ledger
	log      *slog.Logger
	rng      *rand.Rand
	nodes    []*state.SimulatedNode
}

// NewRand returns a generator seeded with seed, or a randomly seeded one if seed is zero
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SimulatedIDs draws n node ids from rng. The secrets behind them are discarded.
func SimulatedIDs(rng *rand.Rand, n int) []state.NodeID {
	ids := make([]state.NodeID, 0, n)
	for range n {
		var secret state.NodeSecret
		for i := 0; i < len(secret); i += 8 {
			v := rng.Uint64()
			for j := range 8 {
				secret[i+j] = byte(v >> (8 * j))
			}
		}
		ids = append(ids, secret.ID())
	}
	return ids
}

// NewSimulator creates a simulator for ids, where the first cfg.NodesRoot ids are root nodes
// and the rest are flex nodes. All nodes start offline.
func NewSimulator(cfg state.SimulatorCfg, ids []state.NodeID, ledger state.Ledger, rng *rand.Rand, log *slog.Logger) (*Simulator, error) {
	s := &Simulator{}
	if err := s.setup(cfg, ids, ledger, rng, log); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) setup(cfg state.SimulatorCfg, ids []state.NodeID, ledger state.Ledger, rng *rand.Rand, log *slog.Logger) error {
	if err := state.SimulatorConfigValidator(&cfg); err != nil {
		return err
	}
	if len(ids) != cfg.NodesRoot+cfg.NodesFlex {
		return fmt.Errorf("%w: wrong number of nodes, expected %d, got %d", state.ErrConfig, cfg.NodesRoot+cfg.NodesFlex, len(ids))
	}
	if rng == nil {
		rng = NewRand(cfg.Seed)
	}
	if log == nil {
		log = slog.Default()
	}
	s.ledger = ledger
	s.log = log.With("module", "simulator")
	s.rng = rng
	s.nodes = make([]*state.SimulatedNode, 0, len(ids))
	for i, id := range ids {
		node := &state.SimulatedNode{ID: id, PSignIn: cfg.PSignIn, PSignOut: cfg.PSignOut}
		if i < cfg.NodesRoot {
			node.PSignIn = 1
			node.PSignOut = 0
		}
		s.nodes = append(s.nodes, node)
	}
	return nil
}

func (s *Simulator) Init(st *state.State) error {
	st.Log.Debug("init simulator")
	cfg := st.Config.Simulator
	rng := NewRand(cfg.Seed)
	return s.setup(cfg, SimulatedIDs(rng, cfg.NodesRoot+cfg.NodesFlex), st.Ledger, rng, st.Log)
}

func (s *Simulator) Cleanup(st *state.State) error {
	s.nodes = nil
	return nil
}

// Nodes returns a copy of the simulated population
func (s *Simulator) Nodes() []state.SimulatedNode {
	out := make([]state.SimulatedNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	return out
}

func (s *Simulator) Online() int {
	count := 0
	for _, n := range s.nodes {
		if n.Online {
			count++
		}
	}
	return count
}

func (s *Simulator) trial(p float64) bool {
	return s.rng.Float64() < p
}

// Tick rolls every node once. Nodes that go offline yield NodeOffline, nodes that come
// online yield NodeOnline with their ledger record. Every node that is online afterwards
// refreshes its liveness in the ledger. On error the actions of the nodes handled so far
// are returned along with it.
func (s *Simulator) Tick(ctx context.Context) ([]Action, error) {
	actions := make([]Action, 0)
	for _, node := range s.nodes {
		switch {
		case node.Online && node.IsRoot():
			// root nodes never leave
		case node.Online && node.PSignOut > 0 && s.trial(node.PSignOut):
			node.Online = false
			perf.SignOutsPerSecond.Add(1)
			record(s.Recorder, EventSignOut, node.ID)
			actions = append(actions, NodeOffline{ID: node.ID})
		case !node.Online && s.trial(node.PSignIn):
			rec, err := s.signIn(ctx, node.ID)
			if err != nil {
				return actions, err
			}
			node.Online = true
			perf.SignInsPerSecond.Add(1)
			record(s.Recorder, EventSignIn, node.ID)
			actions = append(actions, NodeOnline{Record: rec})
		}
		if node.Online {
			rec, err := s.alive(ctx, node.ID)
			if err != nil {
				return actions, err
			}
			if rec != nil {
				// the router may have dropped it together with the ledger entry
				actions = append(actions, NodeOnline{Record: *rec})
			}
		}
	}
	return actions, nil
}

func (s *Simulator) signIn(ctx context.Context, id state.NodeID) (state.NodeRecord, error) {
	rec, err := s.ledger.Info(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return rec, err
	}
	rec = state.NewRecord(id)
	if _, err = s.ledger.Register(ctx, rec); err != nil {
		return rec, err
	}
	s.log.Debug("created simulated node", "node", id, "name", rec.Name)
	return rec, nil
}

// alive refreshes the liveness of id. If the ledger forgot the node while it was online,
// it is registered again from scratch and the new record is returned.
func (s *Simulator) alive(ctx context.Context, id state.NodeID) (*state.NodeRecord, error) {
	_, err := s.ledger.Alive(ctx, id)
	if !errors.Is(err, state.ErrNotRegistered) {
		return nil, err
	}
	rec := state.NewRecord(id)
	if _, err = s.ledger.Register(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Debug("simulated node was forgotten, registered again", "node", id)
	return &rec, nil
}
