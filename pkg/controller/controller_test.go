package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/getdroned/drone/internal/testhelpers"
	"github.com/getdroned/drone/pkg/wire"
)

func runController(store EventStore) (chan Event, *Controller, chan struct{}) {
	events := make(chan Event, 16)
	c := New(events, store)
	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	return events, c, done
}

func waitCounts(t *testing.T, c *Controller, want map[string]int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		counts := c.Counts()
		match := true
		for kind, n := range want {
			if counts[kind] != n {
				match = false
				break
			}
		}
		if match {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, want, c.Counts())
}

func TestControllerCountsAndStores(t *testing.T) {
	store := InMemoryEventStore()
	defer store.Close() //nolint:errcheck

	events, c, done := runController(store)

	p := wire.MakeAck(wire.MakeHeader(1, 10), 42, 0)
	events <- PacketSent{Node: 1, Packet: p}
	events <- PacketSent{Node: 2, Packet: p}
	events <- CommandReceived{Node: 1, Command: Crash{}}

	waitCounts(t, c, map[string]int{"PacketSent": 2, "CommandReceived": 1})

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	close(events)
	<-done
}

func TestControllerShortcutDelivery(t *testing.T) {
	events, c, done := runController(nil)

	inbound := make(chan wire.Packet, 4)
	c.AttachNode(10, inbound)

	// Nack 1 -> 10, stranded at node 1.
	p := wire.MakeNack(wire.MakeHeader(1, 10), 42, wire.Nack{NackType: wire.NackErrorInRouting, Hop: 2})
	events <- ControllerShortcut{Node: 1, Packet: p}

	got := th.ReadPacket(t, inbound)
	assert.Equal(t, p.Payload, got.Payload)
	assert.Equal(t, p.Session, got.Session)

	// Delivered with the cursor already on the destination.
	cur, ok := got.Header.CurrentHop()
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(10), cur)

	close(events)
	<-done
}

func TestControllerShortcutToSelfIsDiscarded(t *testing.T) {
	events, c, done := runController(nil)

	inbound := make(chan wire.Packet, 4)
	c.AttachNode(1, inbound)

	p := wire.MakeNack(wire.MakeHeader(10, 1), 42, wire.Nack{NackType: wire.NackDropped})
	events <- ControllerShortcut{Node: 1, Packet: p}

	waitCounts(t, c, map[string]int{"ControllerShortcut": 1})
	th.NoPacket(t, inbound)

	close(events)
	<-done
}

func TestControllerDetachAll(t *testing.T) {
	events, c, done := runController(nil)

	inbound := make(chan wire.Packet, 4)
	c.AttachNode(10, inbound)
	c.DetachAll()

	p := wire.MakeNack(wire.MakeHeader(1, 10), 42, wire.Nack{NackType: wire.NackDropped})
	events <- ControllerShortcut{Node: 1, Packet: p}

	waitCounts(t, c, map[string]int{"ControllerShortcut": 1})
	th.NoPacket(t, inbound)

	close(events)
	<-done
}
