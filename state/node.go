package state

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// NodeSecret is the credential a caller presents to claim a node identity.
// It is never stored, logged or serialized; only its hash leaves the caller.
type NodeSecret [32]byte

// NodeID is the public identity of a node, derived one-way from its NodeSecret.
type NodeID [32]byte

// Mana is the reputation counter a node accrues while connected. It never goes below zero.
type Mana uint64

func GenerateSecret() NodeSecret {
	var s NodeSecret
	if _, err := rand.Read(s[:]); err != nil {
		panic(err)
	}
	return s
}

// SecretToID hashes the secret to its public id.
func SecretToID(secret NodeSecret) NodeID {
	return sha256.Sum256(secret[:])
}

func (s NodeSecret) ID() NodeID {
	return SecretToID(s)
}

func (s NodeSecret) String() string {
	return "NodeSecret(redacted)"
}

func (s NodeSecret) LogValue() slog.Value {
	return slog.StringValue("redacted")
}

func (s NodeSecret) GoString() string {
	return s.String()
}

// String returns a short prefix of the id, enough to tell nodes apart in logs
func (id NodeID) String() string {
	return hex.EncodeToString(id[:8])
}

// Compare orders ids by their bytes
func (id NodeID) Compare(other NodeID) int {
	return bytes.Compare(id[:], other[:])
}

// IsZero reports whether the secret is all zero bytes, which no caller should present.
func (s NodeSecret) IsZero() bool {
	return s == NodeSecret{}
}

func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// Add increments the counter, saturating at the maximum value.
func (m Mana) Add(n uint64) Mana {
	if uint64(m) > math.MaxUint64-n {
		return Mana(math.MaxUint64)
	}
	return m + Mana(n)
}

// Sub decrements the counter, clamping at zero.
func (m Mana) Sub(n uint64) Mana {
	if uint64(m) <= n {
		return 0
	}
	return m - Mana(n)
}

// NodeRecord is the externally visible projection of a node
type NodeRecord struct {
	ID   NodeID `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Mana Mana   `json:"mana" yaml:"mana"`
}

// NewRecord creates a fresh record with zero mana for the given id.
func NewRecord(id NodeID) NodeRecord {
	return NodeRecord{
		ID:   id,
		Name: NodeName(id),
	}
}

func (r NodeRecord) String() string {
	return fmt.Sprintf("%s: '%s', mana=%d", r.ID, r.Name, r.Mana)
}

// NodeLedgerEntry is the ledger's view of a node.
type NodeLedgerEntry struct {
	Record NodeRecord
	// ActiveUntil is the deadline after which the node is considered inactive
	ActiveUntil time.Time
}

func (e *NodeLedgerEntry) Active(now time.Time) bool {
	return !e.ActiveUntil.Before(now)
}

// SimulatedNode is a node whose connectivity is driven by the simulator.
type SimulatedNode struct {
	ID       NodeID
	Online   bool
	PSignIn  float64
	PSignOut float64
}

// IsRoot reports whether the node is permanently online once it signed in
func (n *SimulatedNode) IsRoot() bool {
	return n.PSignIn >= 1 && n.PSignOut <= 0
}

// NetworkStatus is a snapshot of the simulation
type NetworkStatus struct {
	Time   time.Time    `json:"time"`
	Online []NodeID     `json:"online"`
	Nodes  []NodeRecord `json:"nodes"`
}
