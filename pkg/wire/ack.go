package wire

import "fmt"

// Ack positively acknowledges one fragment. It is routed end to end like any
// other packet.
type Ack struct {
	FragmentIndex uint64
}

// Type implements Payload.
func (a Ack) Type() PacketType { return PacketAck }

func (a Ack) String() string {
	return fmt.Sprintf("Ack(fragment=%d)", a.FragmentIndex)
}

// NackType classifies why a fragment could not be delivered.
type NackType byte

const (
	// NackUnexpectedRecipient reports a packet whose route cursor named a
	// different node than the one that received it.
	NackUnexpectedRecipient NackType = iota
	// NackDestinationIsDrone reports a fragment whose route terminates at a
	// forwarding-only node.
	NackDestinationIsDrone
	// NackErrorInRouting reports an unreachable next hop; the Nack carries
	// the identifier of the hop that could not be reached.
	NackErrorInRouting
	// NackDropped reports a fragment discarded by the drop simulation.
	NackDropped
)

func (nt NackType) String() string {
	switch nt {
	case NackUnexpectedRecipient:
		return "UnexpectedRecipient"
	case NackDestinationIsDrone:
		return "DestinationIsDrone"
	case NackErrorInRouting:
		return "ErrorInRouting"
	case NackDropped:
		return "Dropped"
	}
	return fmt.Sprintf("Unknown(%d)", byte(nt))
}

// Nack negatively acknowledges one fragment. Hop is meaningful only for
// NackErrorInRouting and NackUnexpectedRecipient, where it names the
// unreachable hop and the surprised recipient respectively.
type Nack struct {
	FragmentIndex uint64
	NackType      NackType
	Hop           NodeID
}

// Type implements Payload.
func (n Nack) Type() PacketType { return PacketNack }

func (n Nack) String() string {
	switch n.NackType {
	case NackErrorInRouting, NackUnexpectedRecipient:
		return fmt.Sprintf("Nack(%v(%d) fragment=%d)", n.NackType, n.Hop, n.FragmentIndex)
	default:
		return fmt.Sprintf("Nack(%v fragment=%d)", n.NackType, n.FragmentIndex)
	}
}
