package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/encodeous/manasim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_ReferenceScenario(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	secret := state.GenerateSecret()

	id, err := b.Register(bg, secret)
	require.NoError(t, err)
	assert.Equal(t, secret.ID(), id)

	// registration only lands on the next tick
	_, err = b.GetNodeInfo(bg, id)
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, err = b.Alive(bg, id)
	assert.ErrorIs(t, err, state.ErrNotRegistered)

	step := func(ms int64, expected state.Mana) {
		t.Helper()
		require.NoError(t, b.Tick(bg, state.MockTime(ms)))
		mana, err := b.Alive(bg, id)
		require.NoError(t, err)
		assert.Equal(t, expected, mana, "mana at t=%d", ms)
	}
	step(0, 0)
	step(1000, 1)
	step(2000, 2)
	step(62000, 62)

	now := int64(62000 + 168000)
	require.NoError(t, b.Tick(bg, state.MockTime(now)))
	rec, err := b.GetNodeInfo(bg, id)
	require.NoError(t, err)
	assert.Equal(t, state.Mana(61), rec.Mana)

	for range 61 {
		now += 168000
		require.NoError(t, b.Tick(bg, state.MockTime(now)))
	}
	_, err = b.GetNodeInfo(bg, id)
	assert.ErrorIs(t, err, state.ErrNotFound)

	// registering again starts from scratch
	_, err = b.Register(bg, secret)
	require.NoError(t, err)
	require.NoError(t, b.Tick(bg, state.MockTime(now)))
	rec, err = b.GetNodeInfo(bg, id)
	require.NoError(t, err)
	assert.Equal(t, state.Mana(0), rec.Mana)
}

func TestBroker_RegisterIdempotent(t *testing.T) {
	b, h := newTestBroker(t, nil)
	secret := state.GenerateSecret()

	id1, err := b.Register(bg, secret)
	require.NoError(t, err)
	id2, err := b.Register(bg, secret)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	require.NoError(t, b.Tick(bg, state.MockTime(0)))

	id3, err := b.Register(bg, secret)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
	require.NoError(t, b.Tick(bg, state.MockTime(1000)))

	status, err := b.Status(bg)
	require.NoError(t, err)
	want := []state.NodeRecord{{ID: id1, Name: state.NodeName(id1), Mana: 1}}
	if diff := cmp.Diff(want, status.Nodes); diff != "" {
		t.Fatalf("unexpected ledger (-want +got):\n%s", diff)
	}
	assert.Equal(t, []state.NodeID{id1}, status.Online)
	assert.Equal(t, state.MockTime(1000), status.Time)

	ev := h.GetEvents()
	assert.Equal(t, 2, ev.Count(EventRegistered))
	assert.Equal(t, 1, ev.Count(EventNodeAdded))
	ev.AssertContains(t, EventNodeIgnored, id1)
}

func TestBroker_SimulatedPopulation(t *testing.T) {
	b, h := newTestBroker(t, func(cfg *state.Config) {
		cfg.Simulator.NodesRoot = 3
		cfg.Simulator.NodesFlex = 4
		cfg.Simulator.PSignIn = 0.5
		cfg.Simulator.PSignOut = 0.5
	})

	for ms := int64(0); ms <= 20000; ms += 1000 {
		require.NoError(t, b.Tick(bg, state.MockTime(ms)))
	}
	status, err := b.Status(bg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(status.Online), 3)
	assert.GreaterOrEqual(t, len(status.Nodes), len(status.Online))
	for _, rec := range status.Nodes {
		assert.Equal(t, state.NodeName(rec.ID), rec.Name)
	}

	ev := h.GetEvents()
	assert.GreaterOrEqual(t, ev.Count(EventSignIn), 3)
	assert.Positive(t, ev.Count(EventDelivered))
	assert.Equal(t, ev.Count(EventSignIn)+ev.Count(EventSignOut), ev.Count(EventActionRouted))
}

func TestBroker_DrainOverflow(t *testing.T) {
	old := state.MaxDrainActions
	state.MaxDrainActions = 1
	defer func() { state.MaxDrainActions = old }()

	b, h := newTestBroker(t, nil)
	_, err := b.Register(bg, state.GenerateSecret())
	require.NoError(t, err)
	_, err = b.Register(bg, state.GenerateSecret())
	require.NoError(t, err)

	err = b.Tick(bg, state.MockTime(0))
	assert.ErrorIs(t, err, state.ErrActionOverflow)
	h.GetEvents().AssertContains(t, EventDrainOverflow, 2)

	// the broker keeps serving
	status, err := b.Status(bg)
	require.NoError(t, err)
	assert.Len(t, status.Nodes, 1)
	assert.Nil(t, b.Err())
}

func TestBroker_Closed(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	require.NoError(t, b.Close())
	<-b.Done()
	assert.EqualError(t, b.Err(), "broker closed")

	_, err := b.Alive(bg, state.NodeID{})
	assert.ErrorIs(t, err, state.ErrChannelClosed)
	_, err = b.Register(bg, state.GenerateSecret())
	assert.ErrorIs(t, err, state.ErrChannelClosed)
	assert.ErrorIs(t, b.Tick(bg, state.MockTime(0)), state.ErrChannelClosed)
}

func TestBroker_CallerContext(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	ctx, cancel := context.WithCancel(bg)
	cancel()
	_, err := b.GetNodeInfo(ctx, state.NodeID{})
	// either cancelled before dispatch, or the lookup itself ran
	assert.Error(t, err)
}

func TestNewBroker_InvalidConfig(t *testing.T) {
	cfg := state.MockCfg()
	cfg.Ledger.ManaIncrease = 0
	_, err := NewBroker(cfg, state.MockTime(0), discardLogger(), nil)
	assert.ErrorIs(t, err, state.ErrConfig)
}

func TestBroker_DecayedNodeLeavesRouter(t *testing.T) {
	b, h := newTestBroker(t, nil)
	id, err := b.Register(bg, state.GenerateSecret())
	require.NoError(t, err)
	require.NoError(t, b.Tick(bg, state.MockTime(0)))

	status, err := b.Status(bg)
	require.NoError(t, err)
	assert.Equal(t, []state.NodeID{id}, status.Online)

	for k := int64(1); k <= 3; k++ {
		require.NoError(t, b.Tick(bg, state.MockTime(k*168000)))
	}
	_, err = b.GetNodeInfo(bg, id)
	assert.ErrorIs(t, err, state.ErrNotFound)
	status, err = b.Status(bg)
	require.NoError(t, err)
	assert.Empty(t, status.Online)
	assert.Empty(t, status.Nodes)
	h.GetEvents().AssertContains(t, EventNodeRemoved, id)

	// nothing left to heartbeat
	before := h.GetEvents().Count(EventDelivered) + h.GetEvents().Count(EventDropped)
	require.NoError(t, b.Tick(bg, state.MockTime(4*168000)))
	after := h.GetEvents().Count(EventDelivered) + h.GetEvents().Count(EventDropped)
	assert.Equal(t, before, after)
}

func TestBroker_PastTickIgnored(t *testing.T) {
	b, h := newTestBroker(t, nil)
	require.NoError(t, b.Tick(bg, state.MockTime(5000)))
	id, err := b.Register(bg, state.GenerateSecret())
	require.NoError(t, err)

	require.NoError(t, b.Tick(bg, state.MockTime(1000)))
	assert.Zero(t, h.GetEvents().Count(EventActionRouted))
	_, err = b.GetNodeInfo(bg, id)
	assert.ErrorIs(t, err, state.ErrNotFound)
	status, err := b.Status(bg)
	require.NoError(t, err)
	assert.Equal(t, state.MockTime(5000), status.Time)

	require.NoError(t, b.Tick(bg, state.MockTime(6000)))
	_, err = b.GetNodeInfo(bg, id)
	assert.NoError(t, err)
	assert.Equal(t, 1, h.GetEvents().Count(EventRegistered))
}

// failingLedger passes the first failAfter calls to the wrapped ledger and fails the rest
type failingLedger struct {
	state.Ledger
	calls     int
	failAfter int
}

func (l *failingLedger) fail() bool {
	l.calls++
	return l.calls > l.failAfter
}

func (l *failingLedger) Register(ctx context.Context, rec state.NodeRecord) ([]state.NodeRecord, error) {
	if l.fail() {
		return nil, state.ErrChannelClosed
	}
	return l.Ledger.Register(ctx, rec)
}

func (l *failingLedger) Alive(ctx context.Context, id state.NodeID) (state.Mana, error) {
	if l.fail() {
		return 0, state.ErrChannelClosed
	}
	return l.Ledger.Alive(ctx, id)
}

func (l *failingLedger) Info(ctx context.Context, id state.NodeID) (state.NodeRecord, error) {
	if l.fail() {
		return state.NodeRecord{}, state.ErrChannelClosed
	}
	return l.Ledger.Info(ctx, id)
}

func TestTick_SimulatorFailureKeepsRouterInSync(t *testing.T) {
	// three lookups per root node on its first tick, the sixth call fails after the
	// second node already went online
	l := &failingLedger{Ledger: newTestLedger(t), failAfter: 5}
	sim, err := NewSimulator(state.SimulatorCfg{NodesRoot: 3}, ids(3), l, NewRand(1), discardLogger())
	require.NoError(t, err)
	router := NewRouter(testRouterCfg(), state.MockTime(0), discardLogger())
	s := &state.State{
		Modules: map[string]state.Module{
			reflect.TypeOf(router).String(): router,
			reflect.TypeOf(sim).String():    sim,
		},
		Now: state.MockTime(0),
		Env: &state.Env{Ledger: l, Context: bg, Log: discardLogger()},
	}

	err = tick(s, state.MockTime(1000), nil)
	require.ErrorIs(t, err, state.ErrChannelClosed)

	online := make([]state.NodeID, 0)
	for _, n := range sim.Nodes() {
		if n.Online {
			online = append(online, n.ID)
		}
	}
	assert.Len(t, online, 2)
	assert.Equal(t, online, router.Reachable())
}

func TestBroker_ConcurrentCallers(t *testing.T) {
	b, _ := newTestBroker(t, func(cfg *state.Config) {
		cfg.Simulator.NodesRoot = 2
		cfg.Simulator.NodesFlex = 3
	})
	var clock atomic.Int64
	secrets := make([]state.NodeSecret, 16)
	var wg sync.WaitGroup
	for i := range secrets {
		secrets[i] = state.GenerateSecret()
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := b.Register(bg, secrets[i])
			assert.NoError(t, err)
			for range 20 {
				assert.NoError(t, b.Tick(bg, state.MockTime(clock.Add(10))))
				if _, err := b.Alive(bg, id); err != nil && !errors.Is(err, state.ErrNotRegistered) {
					t.Errorf("alive: %v", err)
				}
				_, err := b.Status(bg)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, b.Tick(bg, state.MockTime(clock.Add(10))))
	status, err := b.Status(bg)
	require.NoError(t, err)
	inLedger := make(map[state.NodeID]bool)
	for _, rec := range status.Nodes {
		inLedger[rec.ID] = true
	}
	for _, secret := range secrets {
		assert.True(t, inLedger[secret.ID()])
		assert.Contains(t, status.Online, secret.ID())
	}
}
