package drone

import (
	stdlog "log"
	"os"
	"testing"
	"time"

	"github.com/skycoin/skycoin/src/util/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/getdroned/drone/internal/testhelpers"
	"github.com/getdroned/drone/pkg/controller"
	"github.com/getdroned/drone/pkg/wire"
)

func TestMain(m *testing.M) {
	loggingLevel, ok := os.LookupEnv("TEST_LOGGING_LEVEL")
	if ok {
		lvl, err := logging.LevelFromString(loggingLevel)
		if err != nil {
			stdlog.Fatal(err)
		}
		logging.SetLevel(lvl)
	} else {
		logging.Disable()
	}

	os.Exit(m.Run())
}

// testDrone runs one drone in its own goroutine and exposes all of its
// channels, with one capture channel per neighbor.
type testDrone struct {
	packetIn  chan wire.Packet
	commands  chan controller.Command
	events    chan controller.Event
	neighbors map[wire.NodeID]chan wire.Packet
	done      chan struct{}
}

func startDrone(t *testing.T, id wire.NodeID, neighborIDs []wire.NodeID, dropRate float64, rnd func() float64) *testDrone {
	t.Helper()

	td := &testDrone{
		packetIn:  make(chan wire.Packet, 64),
		commands:  make(chan controller.Command, 8),
		events:    make(chan controller.Event, 64),
		neighbors: make(map[wire.NodeID]chan wire.Packet),
		done:      make(chan struct{}),
	}

	neighbors := make(map[wire.NodeID]chan<- wire.Packet)
	for _, nid := range neighborIDs {
		ch := make(chan wire.Packet, 64)
		td.neighbors[nid] = ch
		neighbors[nid] = ch
	}

	d, err := New(Config{
		ID:        id,
		PacketIn:  td.packetIn,
		Commands:  td.commands,
		Events:    td.events,
		Neighbors: neighbors,
		DropRate:  dropRate,
		Rand:      rnd,
	})
	require.NoError(t, err)

	go func() {
		d.Run()
		close(td.done)
	}()

	return td
}

func (td *testDrone) stop(t *testing.T) {
	t.Helper()

	close(td.commands)
	close(td.packetIn)
	select {
	case <-td.done:
	case <-time.After(5 * time.Second):
		t.Fatal("drone did not terminate")
	}
}

func (td *testDrone) readEvent(t *testing.T) controller.Event {
	t.Helper()

	select {
	case ev := <-td.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event received within timeout")
		return nil
	}
}

func testFragment(hops []wire.NodeID, hopIndex int) wire.Packet {
	frag := wire.Fragment{Index: 0, Total: 1, Length: 3}
	copy(frag.Data[:], "abc")
	return wire.MakeFragment(wire.SourceRoutingHeader{Hops: hops, HopIndex: hopIndex}, 42, frag)
}

func TestForwardFragment(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{2, 3}, 0, nil)
	defer td.stop(t)

	sent := testFragment([]wire.NodeID{10, 1, 2, 20}, 1)
	td.packetIn <- sent

	got := th.ReadPacket(t, td.neighbors[2])
	assert.Equal(t, sent.Payload, got.Payload)
	assert.Equal(t, sent.Session, got.Session)
	assert.Equal(t, sent.Header.Hops, got.Header.Hops)
	assert.Equal(t, 2, got.Header.HopIndex)

	ev := td.readEvent(t)
	require.IsType(t, controller.PacketSent{}, ev)
	assert.Equal(t, got, ev.(controller.PacketSent).Packet)

	th.NoPacket(t, td.neighbors[3])
}

func TestForwardUnknownNextHop(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10}, 0, nil)
	defer td.stop(t)

	td.packetIn <- testFragment([]wire.NodeID{10, 1, 2, 20}, 1)

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.Nack{}, got.Payload)

	nack := got.Payload.(wire.Nack)
	assert.Equal(t, wire.NackErrorInRouting, nack.NackType)
	assert.Equal(t, wire.NodeID(2), nack.Hop)

	// The return route is the reverse of the traversed prefix, cursor on the
	// receiving hop.
	assert.Equal(t, []wire.NodeID{1, 10}, got.Header.Hops)
	assert.Equal(t, 1, got.Header.HopIndex)
}

func TestNoNeighborsShortcut(t *testing.T) {
	td := startDrone(t, 1, nil, 0, nil)
	defer td.stop(t)

	td.packetIn <- testFragment([]wire.NodeID{10, 1, 2}, 1)

	// The Nack cannot be sent anywhere, so it surfaces as a controller
	// shortcut instead of disappearing.
	ev := td.readEvent(t)
	require.IsType(t, controller.ControllerShortcut{}, ev)

	p := ev.(controller.ControllerShortcut).Packet
	require.IsType(t, wire.Nack{}, p.Payload)
	assert.Equal(t, wire.NackErrorInRouting, p.Payload.(wire.Nack).NackType)
	assert.Equal(t, wire.NodeID(2), p.Payload.(wire.Nack).Hop)
}

func TestUnexpectedRecipient(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10}, 0, nil)
	defer td.stop(t)

	td.packetIn <- testFragment([]wire.NodeID{10, 5, 20}, 1)

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.Nack{}, got.Payload)

	nack := got.Payload.(wire.Nack)
	assert.Equal(t, wire.NackUnexpectedRecipient, nack.NackType)
	assert.Equal(t, wire.NodeID(1), nack.Hop)
}

func TestDestinationIsDrone(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10}, 0, nil)
	defer td.stop(t)

	td.packetIn <- testFragment([]wire.NodeID{10, 1}, 1)

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.Nack{}, got.Payload)
	assert.Equal(t, wire.NackDestinationIsDrone, got.Payload.(wire.Nack).NackType)
}

func TestDropSimulation(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10, 2}, 1.0, func() float64 { return 0.5 })
	defer td.stop(t)

	sent := testFragment([]wire.NodeID{10, 1, 2}, 1)
	td.packetIn <- sent

	ev := td.readEvent(t)
	require.IsType(t, controller.PacketDropped{}, ev)
	assert.Equal(t, sent, ev.(controller.PacketDropped).Packet)

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.Nack{}, got.Payload)
	assert.Equal(t, wire.NackDropped, got.Payload.(wire.Nack).NackType)

	th.NoPacket(t, td.neighbors[2])
}

func TestDropRateZeroNeverDrops(t *testing.T) {
	rndCalls := 0
	td := startDrone(t, 1, []wire.NodeID{10, 2}, 0, func() float64 { rndCalls++; return 0 })
	defer td.stop(t)

	const n = 50
	for i := 0; i < n; i++ {
		td.packetIn <- testFragment([]wire.NodeID{10, 1, 2}, 1)
	}
	for i := 0; i < n; i++ {
		got := th.ReadPacket(t, td.neighbors[2])
		require.IsType(t, wire.Fragment{}, got.Payload)
	}
	assert.Zero(t, rndCalls)
}

func TestDropRateOneAlwaysDrops(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10, 2}, 1.0, func() float64 { return 0.999999 })
	defer td.stop(t)

	const n = 50
	for i := 0; i < n; i++ {
		td.packetIn <- testFragment([]wire.NodeID{10, 1, 2}, 1)
	}
	for i := 0; i < n; i++ {
		got := th.ReadPacket(t, td.neighbors[10])
		require.IsType(t, wire.Nack{}, got.Payload)
		assert.Equal(t, wire.NackDropped, got.Payload.(wire.Nack).NackType)
	}
	th.NoPacket(t, td.neighbors[2])
}

func TestAckNeverDropped(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10, 2}, 1.0, func() float64 { return 0 })
	defer td.stop(t)

	td.packetIn <- wire.MakeAck(wire.SourceRoutingHeader{Hops: []wire.NodeID{10, 1, 2}, HopIndex: 1}, 42, 0)

	got := th.ReadPacket(t, td.neighbors[2])
	require.IsType(t, wire.Ack{}, got.Payload)
}

func TestFloodRebroadcast(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10, 2, 3}, 0, nil)
	defer td.stop(t)

	req := wire.FloodRequest{
		FloodID:   7,
		Initiator: 10,
		PathTrace: []wire.PathEntry{{ID: 10, Type: wire.NodeTypeClient}},
	}
	td.packetIn <- wire.MakeFloodRequest(wire.MakeHeader(10), 42, req)

	wantTrace := []wire.PathEntry{
		{ID: 10, Type: wire.NodeTypeClient},
		{ID: 1, Type: wire.NodeTypeDrone},
	}
	for _, nid := range []wire.NodeID{2, 3} {
		got := th.ReadPacket(t, td.neighbors[nid])
		require.IsType(t, wire.FloodRequest{}, got.Payload)
		assert.Equal(t, wantTrace, got.Payload.(wire.FloodRequest).PathTrace)
	}

	// Never back to the sender.
	th.NoPacket(t, td.neighbors[10])
}

func TestFloodDuplicateAnswered(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10, 2, 3}, 0, nil)
	defer td.stop(t)

	req := wire.FloodRequest{
		FloodID:   7,
		Initiator: 10,
		PathTrace: []wire.PathEntry{{ID: 10, Type: wire.NodeTypeClient}},
	}
	p := wire.MakeFloodRequest(wire.MakeHeader(10), 42, req)

	td.packetIn <- p
	th.ReadPacket(t, td.neighbors[2])
	th.ReadPacket(t, td.neighbors[3])

	// Same (initiator, flood ID) again: a response, never a rebroadcast.
	td.packetIn <- p

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.FloodResponse{}, got.Payload)
	assert.Equal(t, wire.FloodID(7), got.Payload.(wire.FloodResponse).FloodID)

	th.NoPacket(t, td.neighbors[2])
	th.NoPacket(t, td.neighbors[3])
}

func TestFloodLeafAnswersFirstSight(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{10}, 0, nil)
	defer td.stop(t)

	req := wire.FloodRequest{
		FloodID:   7,
		Initiator: 10,
		PathTrace: []wire.PathEntry{{ID: 10, Type: wire.NodeTypeClient}},
	}
	td.packetIn <- wire.MakeFloodRequest(wire.MakeHeader(10), 42, req)

	got := th.ReadPacket(t, td.neighbors[10])
	require.IsType(t, wire.FloodResponse{}, got.Payload)
}

func TestRunTerminatesWhenSourcesClose(t *testing.T) {
	td := startDrone(t, 1, []wire.NodeID{2}, 0, nil)

	close(td.commands)
	close(td.packetIn)

	select {
	case <-td.done:
	case <-time.After(5 * time.Second):
		t.Fatal("drone did not terminate after both sources closed")
	}
}
