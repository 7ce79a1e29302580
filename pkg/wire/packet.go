package wire

import "fmt"

// PacketType defines the payload variant carried by a Packet.
type PacketType byte

const (
	// PacketMsgFragment carries one piece of a larger application message.
	PacketMsgFragment PacketType = iota
	// PacketAck positively acknowledges a fragment, end to end.
	PacketAck
	// PacketNack reports why a fragment could not be delivered.
	PacketNack
	// PacketFloodRequest is a topology discovery broadcast.
	PacketFloodRequest
	// PacketFloodResponse unwinds a flood request back to its initiator.
	PacketFloodResponse
)

func (pt PacketType) String() string {
	switch pt {
	case PacketMsgFragment:
		return "MsgFragment"
	case PacketAck:
		return "Ack"
	case PacketNack:
		return "Nack"
	case PacketFloodRequest:
		return "FloodRequest"
	case PacketFloodResponse:
		return "FloodResponse"
	}
	return fmt.Sprintf("Unknown(%d)", byte(pt))
}

// Payload is one of Fragment, Ack, Nack, FloodRequest or FloodResponse.
type Payload interface {
	Type() PacketType
}

// Packet is the unit exchanged between nodes: a source route, a session
// identifier and exactly one payload.
type Packet struct {
	Header  SourceRoutingHeader
	Session SessionID
	Payload Payload
}

// MakeFragment constructs a message fragment packet.
func MakeFragment(header SourceRoutingHeader, session SessionID, frag Fragment) Packet {
	return Packet{Header: header, Session: session, Payload: frag}
}

// MakeAck constructs a positive acknowledgment packet.
func MakeAck(header SourceRoutingHeader, session SessionID, fragmentIndex uint64) Packet {
	return Packet{Header: header, Session: session, Payload: Ack{FragmentIndex: fragmentIndex}}
}

// MakeNack constructs a negative acknowledgment packet.
func MakeNack(header SourceRoutingHeader, session SessionID, nack Nack) Packet {
	return Packet{Header: header, Session: session, Payload: nack}
}

// MakeFloodRequest constructs a topology discovery packet. The initiator is
// recorded in the request body; the header cursor is unused by flood
// forwarding but kept for uniformity.
func MakeFloodRequest(header SourceRoutingHeader, session SessionID, req FloodRequest) Packet {
	return Packet{Header: header, Session: session, Payload: req}
}

// MakeFloodResponse constructs a flood response packet routed back along the
// reverse of the accumulated path trace.
func MakeFloodResponse(header SourceRoutingHeader, session SessionID, resp FloodResponse) Packet {
	return Packet{Header: header, Session: session, Payload: resp}
}

// FragmentIndex returns the fragment index referenced by the payload, or 0
// for payloads that do not reference one.
func (p Packet) FragmentIndex() uint64 {
	switch pl := p.Payload.(type) {
	case Fragment:
		return pl.Index
	case Ack:
		return pl.FragmentIndex
	case Nack:
		return pl.FragmentIndex
	}
	return 0
}

func (p Packet) String() string {
	return fmt.Sprintf("%v(session=%d route=%v)", p.Payload.Type(), p.Session, p.Header)
}
