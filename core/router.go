package core

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
	"github.com/jellydator/ttlcache/v3"
)

// Router holds the nodes that are currently reachable and carries messages between them.
// Messages to any other node are dropped.
type Router struct {
	Recorder Recorder
	cfg      state.RouterCfg
	log      *slog.Logger
	nodes    map[state.NodeID]*Node
	now      time.Time
	// dropLog holds destinations a drop was recently logged for
	dropLog *ttlcache.Cache[state.NodeID, struct{}]
}

func NewRouter(cfg state.RouterCfg, now time.Time, log *slog.Logger) *Router {
	r := &Router{}
	r.setup(cfg, now, log)
	return r
}

func (r *Router) setup(cfg state.RouterCfg, now time.Time, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	r.cfg = cfg
	r.now = now
	r.log = log.With("module", "router")
	r.nodes = make(map[state.NodeID]*Node)
	r.dropLog = ttlcache.New[state.NodeID, struct{}](
		ttlcache.WithTTL[state.NodeID, struct{}](state.DropLogTTL),
		ttlcache.WithDisableTouchOnHit[state.NodeID, struct{}](),
	)
}

func (r *Router) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.setup(s.Config.Router, s.Now, s.Log)
	return nil
}

func (r *Router) Cleanup(s *state.State) error {
	r.dropLog.DeleteAll()
	r.nodes = nil
	return nil
}

// Action applies a membership change. Only NodeOnline and NodeOffline are meaningful here.
func (r *Router) Action(a Action) []Action {
	switch a := a.(type) {
	case NodeOnline:
		r.add(a.Record)
	case NodeOffline:
		r.remove(a.ID)
	default:
		r.log.Warn("router cannot handle action", "action", a)
	}
	return nil
}

func (r *Router) add(rec state.NodeRecord) {
	id := rec.ID
	if _, ok := r.nodes[id]; ok {
		r.log.Debug("node is already reachable", "node", id)
		record(r.Recorder, EventNodeIgnored, id)
		return
	}
	node := NewNode(rec, r.now)
	// introduce the newcomer and the reachable nodes to each other
	for _, other := range r.nodes {
		node.AddPeer(other.ID())
		other.AddPeer(id)
	}
	r.nodes[id] = node
	r.dropLog.Delete(id)
	r.log.Debug("node reachable", "node", id, "name", rec.Name)
	record(r.Recorder, EventNodeAdded, id)
}

func (r *Router) remove(id state.NodeID) {
	if _, ok := r.nodes[id]; !ok {
		r.log.Debug("node is not reachable", "node", id)
		record(r.Recorder, EventNodeIgnored, id)
		return
	}
	delete(r.nodes, id)
	r.log.Debug("node unreachable", "node", id)
	record(r.Recorder, EventNodeRemoved, id)
}

// Tick advances the clock of every reachable node and delivers the messages they produce.
// The router itself has no actions for the broker.
func (r *Router) Tick(now time.Time) []Action {
	r.now = now
	msgs := make([]Message, 0)
	for _, id := range r.Reachable() {
		msgs = append(msgs, r.nodes[id].Tick(now, r.cfg)...)
	}
	r.Drain(msgs)
	r.dropLog.DeleteExpired()
	return nil
}

// Send delivers msg if its destination is reachable and returns the replies.
// Otherwise the message is dropped without an error.
func (r *Router) Send(msg Message) []Message {
	node, ok := r.nodes[msg.To]
	if !ok {
		r.drop(msg)
		return nil
	}
	perf.DeliveredPerSecond.Add(1)
	perf.MessagesTotal.WithLabelValues("delivered").Inc()
	record(r.Recorder, EventDelivered, msg)
	return node.Receive(msg)
}

func (r *Router) drop(msg Message) {
	perf.DroppedPerSecond.Add(1)
	perf.MessagesTotal.WithLabelValues("dropped").Inc()
	record(r.Recorder, EventDropped, msg)
	if r.dropLog.Get(msg.To) != nil {
		return
	}
	r.dropLog.Set(msg.To, struct{}{}, ttlcache.DefaultTTL)
	r.log.Debug("dropping messages to unreachable node", "node", msg.To, "kind", msg.Kind)
}

// Drain sends msgs and every reply they cause, in order, until none are left.
// It gives up after state.MaxMessageRounds deliveries.
func (r *Router) Drain(msgs []Message) {
	rounds := 0
	for len(msgs) > 0 {
		if rounds >= state.MaxMessageRounds {
			r.log.Warn("message drain did not settle, discarding", "pending", len(msgs))
			return
		}
		rounds++
		msg := msgs[0]
		msgs = append(msgs[1:], r.Send(msg)...)
	}
}

// Reachable returns the reachable node ids in order
func (r *Router) Reachable() []state.NodeID {
	return slices.SortedFunc(maps.Keys(r.nodes), state.NodeID.Compare)
}

func (r *Router) Node(id state.NodeID) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}
