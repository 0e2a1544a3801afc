package core

import (
	"fmt"

	"github.com/encodeous/manasim/state"
)

// Action is an effect one module asks the broker to deliver to another.
// The set is closed; the broker routes every variant with a type switch.
type Action interface {
	fmt.Stringer
	action()
}

// NodeOnline means the node became reachable. Routed to the Router.
type NodeOnline struct {
	Record state.NodeRecord
}

// NodeOffline means the node became unreachable. Routed to the Router.
type NodeOffline struct {
	ID state.NodeID
}

// RegisterRequest asks the Gateway to create or refresh the node's ledger record.
type RegisterRequest struct {
	ID state.NodeID
}

func (NodeOnline) action()      {}
func (NodeOffline) action()     {}
func (RegisterRequest) action() {}

func (a NodeOnline) String() string {
	return fmt.Sprintf("online(%s)", a.Record.ID)
}

func (a NodeOffline) String() string {
	return fmt.Sprintf("offline(%s)", a.ID)
}

func (a RegisterRequest) String() string {
	return fmt.Sprintf("register(%s)", a.ID)
}
