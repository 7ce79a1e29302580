package controller

import (
	"fmt"

	"github.com/getdroned/drone/pkg/wire"
)

// Event is an outcome notification emitted by a node.
type Event interface {
	fmt.Stringer

	// Origin returns the identifier of the emitting node.
	Origin() wire.NodeID
	// Kind returns the event name used for accounting and storage.
	Kind() string
}

// PacketSent reports a packet successfully handed to a neighbor channel.
type PacketSent struct {
	Node   wire.NodeID
	Packet wire.Packet
}

// PacketDropped reports a packet deliberately discarded, either by the drop
// simulation or by a crashed node refusing new flood work.
type PacketDropped struct {
	Node   wire.NodeID
	Packet wire.Packet
}

// CommandReceived reports a controller command that was applied.
type CommandReceived struct {
	Node    wire.NodeID
	Command Command
}

// CommandRejected reports a controller command that failed validation; the
// node's state is unchanged.
type CommandRejected struct {
	Node    wire.NodeID
	Command Command
	Reason  error
}

// ControllerShortcut hands the controller a control packet (Ack, Nack or
// FloodResponse) that has no usable next hop; the controller delivers it to
// its destination out of band so control traffic is never silently lost.
type ControllerShortcut struct {
	Node   wire.NodeID
	Packet wire.Packet
}

func (e PacketSent) Origin() wire.NodeID         { return e.Node }
func (e PacketDropped) Origin() wire.NodeID      { return e.Node }
func (e CommandReceived) Origin() wire.NodeID    { return e.Node }
func (e CommandRejected) Origin() wire.NodeID    { return e.Node }
func (e ControllerShortcut) Origin() wire.NodeID { return e.Node }

func (PacketSent) Kind() string         { return "PacketSent" }
func (PacketDropped) Kind() string      { return "PacketDropped" }
func (CommandReceived) Kind() string    { return "CommandReceived" }
func (CommandRejected) Kind() string    { return "CommandRejected" }
func (ControllerShortcut) Kind() string { return "ControllerShortcut" }

func (e PacketSent) String() string {
	return fmt.Sprintf("PacketSent(node=%d %v)", e.Node, e.Packet)
}

func (e PacketDropped) String() string {
	return fmt.Sprintf("PacketDropped(node=%d %v)", e.Node, e.Packet)
}

func (e CommandReceived) String() string {
	return fmt.Sprintf("CommandReceived(node=%d %v)", e.Node, e.Command)
}

func (e CommandRejected) String() string {
	return fmt.Sprintf("CommandRejected(node=%d %v: %v)", e.Node, e.Command, e.Reason)
}

func (e ControllerShortcut) String() string {
	return fmt.Sprintf("ControllerShortcut(node=%d %v)", e.Node, e.Packet)
}
