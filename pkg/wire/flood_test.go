package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloodRequestSender(t *testing.T) {
	req := FloodRequest{FloodID: 1, Initiator: 10}
	assert.Equal(t, NodeID(10), req.Sender())

	req = req.WithHop(10, NodeTypeClient).WithHop(1, NodeTypeDrone)
	assert.Equal(t, NodeID(1), req.Sender())
}

func TestFloodRequestWithHopDoesNotAlias(t *testing.T) {
	base := FloodRequest{
		FloodID:   1,
		Initiator: 10,
		PathTrace: make([]PathEntry, 1, 4),
	}
	base.PathTrace[0] = PathEntry{ID: 10, Type: NodeTypeClient}

	a := base.WithHop(1, NodeTypeDrone)
	b := base.WithHop(2, NodeTypeDrone)

	assert.Equal(t, NodeID(1), a.PathTrace[1].ID)
	assert.Equal(t, NodeID(2), b.PathTrace[1].ID)
	assert.Equal(t, NodeID(10), base.PathTrace[0].ID)
}

func TestFloodRequestResponse(t *testing.T) {
	req := FloodRequest{FloodID: 7, Initiator: 10}
	req = req.WithHop(10, NodeTypeClient).WithHop(1, NodeTypeDrone).WithHop(2, NodeTypeDrone)

	p := req.Response(42)
	require.IsType(t, FloodResponse{}, p.Payload)

	resp := p.Payload.(FloodResponse)
	assert.Equal(t, FloodID(7), resp.FloodID)
	assert.Equal(t, req.PathTrace, resp.PathTrace)

	// The response unwinds the trace: from the responding node back to the
	// initiator.
	assert.Equal(t, []NodeID{2, 1, 10}, p.Header.Hops)
	assert.Equal(t, 0, p.Header.HopIndex)
	assert.Equal(t, SessionID(42), p.Session)
}

func TestFloodRequestResponseWithoutTrace(t *testing.T) {
	req := FloodRequest{FloodID: 7, Initiator: 10}

	p := req.Response(1)
	assert.Equal(t, []NodeID{10}, p.Header.Hops)
}

func TestPacketFragmentIndex(t *testing.T) {
	hdr := MakeHeader(1, 2)

	assert.Equal(t, uint64(3), MakeFragment(hdr, 1, Fragment{Index: 3, Total: 5}).FragmentIndex())
	assert.Equal(t, uint64(4), MakeAck(hdr, 1, 4).FragmentIndex())
	assert.Equal(t, uint64(5), MakeNack(hdr, 1, Nack{FragmentIndex: 5, NackType: NackDropped}).FragmentIndex())
	assert.Equal(t, uint64(0), MakeFloodRequest(hdr, 1, FloodRequest{}).FragmentIndex())
}
