// Package controller defines the protocol between the simulation controller
// and the nodes it supervises: runtime commands issued to nodes, outcome
// events reported back, and pluggable stores recording those events.
package controller

import (
	"fmt"

	"github.com/getdroned/drone/pkg/wire"
)

// Command is a runtime instruction issued by the controller to one node.
type Command interface {
	fmt.Stringer

	isCommand()
}

// AddNeighbor grafts a new outbound link onto the node's neighbor table.
type AddNeighbor struct {
	ID   wire.NodeID
	Send chan<- wire.Packet
}

// RemoveNeighbor severs the link to the given neighbor.
type RemoveNeighbor struct {
	ID wire.NodeID
}

// SetPacketDropRate changes the probability of simulated fragment loss.
// Values outside [0, 1] are rejected, not clamped.
type SetPacketDropRate struct {
	Rate float64
}

// Crash permanently transitions the node to its crashed state. There is no
// command that brings a crashed node back.
type Crash struct{}

func (AddNeighbor) isCommand()       {}
func (RemoveNeighbor) isCommand()    {}
func (SetPacketDropRate) isCommand() {}
func (Crash) isCommand()             {}

func (c AddNeighbor) String() string       { return fmt.Sprintf("AddNeighbor(%d)", c.ID) }
func (c RemoveNeighbor) String() string    { return fmt.Sprintf("RemoveNeighbor(%d)", c.ID) }
func (c SetPacketDropRate) String() string { return fmt.Sprintf("SetPacketDropRate(%v)", c.Rate) }
func (Crash) String() string               { return "Crash" }
