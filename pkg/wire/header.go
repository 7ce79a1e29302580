package wire

import (
	"fmt"
	"strings"
)

// SourceRoutingHeader embeds the full route a packet must travel, plus a
// cursor marking the hop currently holding it. Hops[HopIndex] is expected to
// equal the identifier of the processing node.
type SourceRoutingHeader struct {
	Hops     []NodeID
	HopIndex int
}

// MakeHeader constructs a header positioned at the first hop.
func MakeHeader(hops ...NodeID) SourceRoutingHeader {
	return SourceRoutingHeader{Hops: hops}
}

// CurrentHop returns the identifier under the cursor.
func (h SourceRoutingHeader) CurrentHop() (NodeID, bool) {
	if h.HopIndex < 0 || h.HopIndex >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[h.HopIndex], true
}

// NextHop returns the identifier immediately after the cursor.
func (h SourceRoutingHeader) NextHop() (NodeID, bool) {
	if h.HopIndex+1 >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[h.HopIndex+1], true
}

// IsLastHop reports whether the cursor sits on the final entry of the route.
func (h SourceRoutingHeader) IsLastHop() bool {
	return h.HopIndex == len(h.Hops)-1
}

// Destination returns the final entry of the route.
func (h SourceRoutingHeader) Destination() (NodeID, bool) {
	if len(h.Hops) == 0 {
		return 0, false
	}
	return h.Hops[len(h.Hops)-1], true
}

// Advanced returns a copy of the header with the cursor moved one hop forward.
func (h SourceRoutingHeader) Advanced() SourceRoutingHeader {
	return SourceRoutingHeader{Hops: h.Hops, HopIndex: h.HopIndex + 1}
}

// ReversedPrefix builds the return route for error replies: the traversed
// prefix up to and including position `upto`, reversed, with the cursor reset
// to the generating node.
func (h SourceRoutingHeader) ReversedPrefix(upto int) SourceRoutingHeader {
	if upto >= len(h.Hops) {
		upto = len(h.Hops) - 1
	}
	hops := make([]NodeID, 0, upto+1)
	for i := upto; i >= 0; i-- {
		hops = append(hops, h.Hops[i])
	}
	return SourceRoutingHeader{Hops: hops}
}

func (h SourceRoutingHeader) String() string {
	parts := make([]string, len(h.Hops))
	for i, hop := range h.Hops {
		if i == h.HopIndex {
			parts[i] = fmt.Sprintf("[%d]", hop)
		} else {
			parts[i] = fmt.Sprintf("%d", hop)
		}
	}
	return strings.Join(parts, "->")
}
