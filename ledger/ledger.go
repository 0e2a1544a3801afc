// Package ledger implements the trust ledger, the authoritative store of node
// records and their mana. The store is owned by a single goroutine; every
// operation is a request sent over one channel with its own reply channel.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
)

type reply[T any] struct {
	val T
	err error
}

type registerMsg struct {
	record state.NodeRecord
	ret    chan reply[[]state.NodeRecord]
}

type aliveMsg struct {
	id  state.NodeID
	ret chan reply[state.Mana]
}

type infoMsg struct {
	id  state.NodeID
	ret chan reply[state.NodeRecord]
}

type listMsg struct {
	ret chan reply[[]state.NodeRecord]
}

type tickMsg struct {
	now time.Time
	ret chan reply[struct{}]
}

type closeMsg struct{}

// Ledger is a handle to the ledger goroutine. It is safe for concurrent use.
type Ledger struct {
	requests  chan any
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

var _ state.Ledger = (*Ledger)(nil)

// New validates cfg and starts the ledger goroutine. All checkpoints begin at start.
func New(cfg state.LedgerCfg, start time.Time, log *slog.Logger) (*Ledger, error) {
	if err := state.LedgerConfigValidator(&cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("module", "ledger")
	l := &Ledger{
		requests: make(chan any),
		done:     make(chan struct{}),
		log:      log,
	}
	go l.run(newBook(cfg, start, log))
	return l, nil
}

func (l *Ledger) run(b *book) {
	defer close(l.done)
	for req := range l.requests {
		perf.LedgerRequestsPerSec.Add(1)
		switch m := req.(type) {
		case registerMsg:
			m.ret <- reply[[]state.NodeRecord]{val: b.register(m.record)}
		case aliveMsg:
			mana, err := b.alive(m.id)
			m.ret <- reply[state.Mana]{mana, err}
		case infoMsg:
			rec, err := b.info(m.id)
			m.ret <- reply[state.NodeRecord]{rec, err}
		case listMsg:
			m.ret <- reply[[]state.NodeRecord]{val: b.list()}
		case tickMsg:
			b.tick(m.now)
			perf.LedgerNodes.Set(float64(len(b.nodes)))
			m.ret <- reply[struct{}]{}
		case closeMsg:
			l.log.Info("ledger stopped", "nodes", len(b.nodes))
			return
		default:
			l.log.Error("unknown ledger request", "type", fmt.Sprintf("%T", req))
		}
	}
}

// call sends msg to the ledger goroutine and waits on ret. It fails with
// state.ErrChannelClosed once the goroutine has stopped, or with the context error.
func call[T any](ctx context.Context, l *Ledger, msg any, ret chan reply[T]) (T, error) {
	var zero T
	start := time.Now()
	defer func() {
		perf.LedgerLatency.Add(float64(time.Since(start).Microseconds()))
	}()
	select {
	case l.requests <- msg:
	case <-l.done:
		return zero, state.ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case res := <-ret:
		return res.val, res.err
	case <-l.done:
		select {
		case res := <-ret:
			return res.val, res.err
		default:
			return zero, state.ErrChannelClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Register inserts or overwrites the entry for record.ID and marks it active.
// It returns every record the ledger holds, ordered by id.
func (l *Ledger) Register(ctx context.Context, record state.NodeRecord) ([]state.NodeRecord, error) {
	ret := make(chan reply[[]state.NodeRecord], 1)
	return call(ctx, l, registerMsg{record, ret}, ret)
}

// Alive extends the active window of id and returns its mana.
func (l *Ledger) Alive(ctx context.Context, id state.NodeID) (state.Mana, error) {
	ret := make(chan reply[state.Mana], 1)
	return call(ctx, l, aliveMsg{id, ret}, ret)
}

func (l *Ledger) Info(ctx context.Context, id state.NodeID) (state.NodeRecord, error) {
	ret := make(chan reply[state.NodeRecord], 1)
	return call(ctx, l, infoMsg{id, ret}, ret)
}

func (l *Ledger) List(ctx context.Context) ([]state.NodeRecord, error) {
	ret := make(chan reply[[]state.NodeRecord], 1)
	return call(ctx, l, listMsg{ret}, ret)
}

// Tick advances ledger time to now, accruing mana for active nodes and decaying inactive ones.
func (l *Ledger) Tick(ctx context.Context, now time.Time) error {
	ret := make(chan reply[struct{}], 1)
	_, err := call(ctx, l, tickMsg{now, ret}, ret)
	return err
}

// Close stops the ledger goroutine and waits for it to exit. Later calls on the handle
// fail with state.ErrChannelClosed.
func (l *Ledger) Close() error {
	l.closeOnce.Do(func() {
		select {
		case l.requests <- closeMsg{}:
		case <-l.done:
		}
	})
	<-l.done
	return nil
}
