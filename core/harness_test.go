package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/manasim/ledger"
	"github.com/encodeous/manasim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type HarnessEvent struct {
	Event Event
	Args  []any
}

// Harness records every event it is given
type Harness struct {
	mu     sync.Mutex
	events []HarnessEvent
}

func (h *Harness) Record(ev Event, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, HarnessEvent{Event: ev, Args: args})
}

// GetEvents returns and forgets the recorded events
func (h *Harness) GetEvents() HarnessEvents {
	h.mu.Lock()
	defer h.mu.Unlock()
	x := h.events
	h.events = nil
	return x
}

type HarnessEvents []HarnessEvent

func (e HarnessEvents) String() string {
	out := make([]string, 0)
	for _, ev := range e {
		cur := ev.Event.String()
		for _, arg := range ev.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (e HarnessEvents) Count(ev Event) int {
	n := 0
	for _, x := range e {
		if x.Event == ev {
			n++
		}
	}
	return n
}

func (e HarnessEvents) contains(ev Event, args ...any) bool {
	for _, event := range e {
		if event.Event != ev || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, ev Event, args ...any) {
	t.Helper()
	if e.contains(ev, args...) {
		return
	}
	t.Fatal("Expected event not found: ", ev, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, ev Event, args ...any) {
	t.Helper()
	if e.contains(ev, args...) {
		t.Fatal("Unexpected event found: ", ev, " with args: ", args, " in ", e)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouterCfg() state.RouterCfg {
	return state.RouterCfg{Heartbeat: time.Second, PeerTimeout: 3 * time.Second}
}

// newTestLedger starts a ledger with the reference timings that is closed, and checked
// for leaks, when the test ends
func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})
	l, err := ledger.New(state.MockCfg().Ledger, state.MockTime(0), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})
	return l
}

// newTestBroker starts a broker on the mock config, adjusted by mod, that is closed,
// and checked for leaks, when the test ends
func newTestBroker(t *testing.T, mod func(cfg *state.Config)) (*Broker, *Harness) {
	t.Helper()
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})
	cfg := state.MockCfg()
	if mod != nil {
		mod(&cfg)
	}
	h := &Harness{}
	b, err := NewBroker(cfg, state.MockTime(0), discardLogger(), h)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})
	return b, h
}

func ids(n int) []state.NodeID {
	out := make([]state.NodeID, 0, n)
	for range n {
		out = append(out, state.GenerateSecret().ID())
	}
	slices.SortFunc(out, state.NodeID.Compare)
	return out
}

var bg = context.Background()
