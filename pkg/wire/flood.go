package wire

import (
	"fmt"
	"strings"
)

// PathEntry is one step of a flood path trace.
type PathEntry struct {
	ID   NodeID
	Type NodeType
}

// FloodRequest is a topology discovery broadcast. PathTrace accumulates the
// nodes it has passed through, initiator excluded.
type FloodRequest struct {
	FloodID   FloodID
	Initiator NodeID
	PathTrace []PathEntry
}

// Type implements Payload.
func (fr FloodRequest) Type() PacketType { return PacketFloodRequest }

// Sender returns the node the request was received from: the last entry of
// the path trace, or the initiator for a trace-less first hop.
func (fr FloodRequest) Sender() NodeID {
	if len(fr.PathTrace) == 0 {
		return fr.Initiator
	}
	return fr.PathTrace[len(fr.PathTrace)-1].ID
}

// WithHop returns a copy of the request with one more trace entry appended.
// The original trace is not aliased, so rebroadcast copies stay independent.
func (fr FloodRequest) WithHop(id NodeID, nt NodeType) FloodRequest {
	trace := make([]PathEntry, len(fr.PathTrace), len(fr.PathTrace)+1)
	copy(trace, fr.PathTrace)
	return FloodRequest{
		FloodID:   fr.FloodID,
		Initiator: fr.Initiator,
		PathTrace: append(trace, PathEntry{ID: id, Type: nt}),
	}
}

// Response builds the FloodResponse packet answering this request: the
// accumulated trace becomes the response body, and the reversed trace (ending
// at the initiator) becomes the source route, cursor at the responding node.
func (fr FloodRequest) Response(session SessionID) Packet {
	hops := make([]NodeID, 0, len(fr.PathTrace)+1)
	for i := len(fr.PathTrace) - 1; i >= 0; i-- {
		hops = append(hops, fr.PathTrace[i].ID)
	}
	if len(hops) == 0 || hops[len(hops)-1] != fr.Initiator {
		hops = append(hops, fr.Initiator)
	}

	return MakeFloodResponse(MakeHeader(hops...), session, FloodResponse{
		FloodID:   fr.FloodID,
		PathTrace: fr.PathTrace,
	})
}

func (fr FloodRequest) String() string {
	return fmt.Sprintf("FloodRequest(id=%d initiator=%d trace=%s)",
		fr.FloodID, fr.Initiator, tracePath(fr.PathTrace))
}

// FloodResponse carries a discovered path back to the flood initiator. It is
// forwarded like any other source-routed packet.
type FloodResponse struct {
	FloodID   FloodID
	PathTrace []PathEntry
}

// Type implements Payload.
func (fr FloodResponse) Type() PacketType { return PacketFloodResponse }

func (fr FloodResponse) String() string {
	return fmt.Sprintf("FloodResponse(id=%d trace=%s)", fr.FloodID, tracePath(fr.PathTrace))
}

func tracePath(trace []PathEntry) string {
	parts := make([]string, len(trace))
	for i, entry := range trace {
		parts[i] = fmt.Sprintf("%d/%v", entry.ID, entry.Type)
	}
	return strings.Join(parts, "->")
}
