// Package wire defines the packet vocabulary exchanged between nodes of the
// simulated overlay network: source-routed packets carrying message
// fragments, end-to-end acknowledgments and flood-based topology discovery.
package wire

import "fmt"

// NodeID is a unique identifier of a node in the overlay.
type NodeID uint8

// SessionID correlates all fragments and their Ack/Nack traffic belonging to
// one logical message. It never changes while a packet traverses the network.
type SessionID uint64

// FloodID identifies one topology discovery flood originated by a node.
// Floods are deduplicated per (initiator, flood ID) pair.
type FloodID uint64

// NodeType tags an entry of a flood path trace.
type NodeType byte

const (
	// NodeTypeClient marks a message-originating endpoint.
	NodeTypeClient NodeType = iota
	// NodeTypeDrone marks a forwarding-only node.
	NodeTypeDrone
	// NodeTypeServer marks a message-terminating endpoint.
	NodeTypeServer
)

func (nt NodeType) String() string {
	switch nt {
	case NodeTypeClient:
		return "Client"
	case NodeTypeDrone:
		return "Drone"
	case NodeTypeServer:
		return "Server"
	}
	return fmt.Sprintf("Unknown(%d)", byte(nt))
}
