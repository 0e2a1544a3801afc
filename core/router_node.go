package core

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/manasim/state"
)

type MessageKind uint8

const (
	Ping MessageKind = iota
	Pong
)

func (k MessageKind) String() string {
	switch k {
	case Ping:
		return "ping"
	case Pong:
		return "pong"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Message is addressed from one node to another and carried by the Router
type Message struct {
	From state.NodeID
	To   state.NodeID
	Kind MessageKind
}

func (m Message) String() string {
	return fmt.Sprintf("%s %s -> %s", m.Kind, m.From, m.To)
}

// Node is a reachable node as seen by the Router. It keeps its own clock and the
// peers it has heard from.
type Node struct {
	Record   state.NodeRecord
	now      time.Time
	lastPing time.Time
	// peers maps a peer to the last time it was heard from
	peers map[state.NodeID]time.Time
}

func NewNode(record state.NodeRecord, now time.Time) *Node {
	return &Node{
		Record:   record,
		now:      now,
		lastPing: now,
		peers:    make(map[state.NodeID]time.Time),
	}
}

func (n *Node) ID() state.NodeID {
	return n.Record.ID
}

// Now is the node's local clock, the time of the last tick it saw
func (n *Node) Now() time.Time {
	return n.now
}

// AddPeer introduces a peer, as if it had just been heard from
func (n *Node) AddPeer(id state.NodeID) {
	if id == n.ID() {
		return
	}
	n.peers[id] = n.now
}

// Peers returns the known peers, ordered by id
func (n *Node) Peers() []state.NodeID {
	return slices.SortedFunc(maps.Keys(n.peers), state.NodeID.Compare)
}

// LastHeard returns when the peer was last heard from
func (n *Node) LastHeard(id state.NodeID) (time.Time, bool) {
	t, ok := n.peers[id]
	return t, ok
}

// Tick advances the local clock. Peers silent for longer than PeerTimeout are
// forgotten, and once per Heartbeat every remaining peer is pinged.
func (n *Node) Tick(now time.Time, cfg state.RouterCfg) []Message {
	if now.Before(n.now) {
		return nil
	}
	n.now = now
	maps.DeleteFunc(n.peers, func(_ state.NodeID, heard time.Time) bool {
		return now.Sub(heard) > cfg.PeerTimeout
	})
	if now.Sub(n.lastPing) < cfg.Heartbeat {
		return nil
	}
	n.lastPing = now
	peers := n.Peers()
	msgs := make([]Message, 0, len(peers))
	for _, peer := range peers {
		msgs = append(msgs, Message{From: n.ID(), To: peer, Kind: Ping})
	}
	return msgs
}

// Receive handles a message addressed to this node and returns the replies.
func (n *Node) Receive(msg Message) []Message {
	switch msg.Kind {
	case Ping:
		n.AddPeer(msg.From)
		return []Message{{From: n.ID(), To: msg.From, Kind: Pong}}
	case Pong:
		n.AddPeer(msg.From)
		return nil
	default:
		return nil
	}
}
