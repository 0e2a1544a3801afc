package ledger

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/manasim/state"
)

// book is the state owned by the ledger goroutine. It is not safe for concurrent use.
type book struct {
	cfg   state.LedgerCfg
	nodes map[state.NodeID]*state.NodeLedgerEntry
	log   *slog.Logger

	// lastTick is the time of the last tick, used as the base of every active window
	lastTick time.Time
	// lastInc and lastDec advance in whole windows, so a tick cadence that does not
	// divide the window carries its remainder over to the next tick
	lastInc time.Time
	lastDec time.Time
}

func newBook(cfg state.LedgerCfg, start time.Time, log *slog.Logger) *book {
	return &book{
		cfg:      cfg,
		nodes:    make(map[state.NodeID]*state.NodeLedgerEntry),
		log:      log,
		lastTick: start,
		lastInc:  start,
		lastDec:  start,
	}
}

func (b *book) register(record state.NodeRecord) []state.NodeRecord {
	b.nodes[record.ID] = &state.NodeLedgerEntry{
		Record:      record,
		ActiveUntil: b.lastTick.Add(b.cfg.NodeActive),
	}
	b.log.Debug("registered node", "node", record.ID, "name", record.Name, "mana", record.Mana)
	return b.list()
}

func (b *book) alive(id state.NodeID) (state.Mana, error) {
	entry, ok := b.nodes[id]
	if !ok {
		return 0, state.ErrNotRegistered
	}
	entry.ActiveUntil = b.lastTick.Add(b.cfg.NodeActive)
	return entry.Record.Mana, nil
}

func (b *book) info(id state.NodeID) (state.NodeRecord, error) {
	entry, ok := b.nodes[id]
	if !ok {
		return state.NodeRecord{}, state.ErrNotFound
	}
	return entry.Record, nil
}

// list returns all records ordered by id
func (b *book) list() []state.NodeRecord {
	ids := slices.SortedFunc(maps.Keys(b.nodes), state.NodeID.Compare)
	records := make([]state.NodeRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, b.nodes[id].Record)
	}
	return records
}

// windows returns how many whole periods fit between since and now
func windows(since, now time.Time, period time.Duration) int64 {
	elapsed := now.Sub(since)
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / period)
}

func (b *book) tick(now time.Time) {
	if now.Before(b.lastTick) {
		b.log.Warn("ignoring tick from the past", "now", now, "last", b.lastTick)
		return
	}

	if inc := windows(b.lastInc, now, b.cfg.ManaIncrease); inc > 0 {
		for _, entry := range b.nodes {
			if entry.Active(now) {
				entry.Record.Mana = entry.Record.Mana.Add(uint64(inc))
			}
		}
		b.lastInc = b.lastInc.Add(time.Duration(inc) * b.cfg.ManaIncrease)
	}

	if dec := windows(b.lastDec, now, b.cfg.ManaDecrease); dec > 0 {
		expired := make([]state.NodeID, 0)
		for id, entry := range b.nodes {
			if entry.Active(now) {
				continue
			}
			entry.Record.Mana = entry.Record.Mana.Sub(uint64(dec))
			if entry.Record.Mana == 0 {
				expired = append(expired, id)
			}
		}
		for _, id := range expired {
			delete(b.nodes, id)
			b.log.Debug("removed decayed node", "node", id)
		}
		b.lastDec = b.lastDec.Add(time.Duration(dec) * b.cfg.ManaDecrease)
	}

	b.lastTick = now
}
