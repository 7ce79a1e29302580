package controller

import (
	"sync"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/getdroned/drone/pkg/wire"
)

var log = logging.MustGetLogger("controller")

// Controller collects events from all supervised nodes on one channel. It
// keeps per-kind counts, mirrors events to the package log, optionally
// records them to an EventStore, and completes shortcut control packets by
// delivering them straight to their destination's inbound channel.
type Controller struct {
	events <-chan Event
	store  EventStore

	mu      sync.RWMutex
	inbound map[wire.NodeID]chan<- wire.Packet
	counts  map[string]int
}

// New constructs a Controller reading from the given event channel. The
// store may be nil, in which case events are only counted and logged.
func New(events <-chan Event, store EventStore) *Controller {
	return &Controller{
		events:  events,
		store:   store,
		inbound: make(map[wire.NodeID]chan<- wire.Packet),
		counts:  make(map[string]int),
	}
}

// AttachNode registers a node's inbound packet channel so shortcut packets
// addressed to it can be delivered out of band.
func (c *Controller) AttachNode(id wire.NodeID, inbound chan<- wire.Packet) {
	c.mu.Lock()
	c.inbound[id] = inbound
	c.mu.Unlock()
}

// DetachAll forgets every registered inbound channel. Used during network
// teardown, after which shortcut packets are only logged.
func (c *Controller) DetachAll() {
	c.mu.Lock()
	c.inbound = make(map[wire.NodeID]chan<- wire.Packet)
	c.mu.Unlock()
}

// Run consumes events until the event channel is closed. It is intended to
// run in its own goroutine alongside the nodes.
func (c *Controller) Run() {
	for ev := range c.events {
		c.handleEvent(ev)
	}
}

// Counts returns a snapshot of per-kind event counts.
func (c *Controller) Counts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int, len(c.counts))
	for kind, n := range c.counts {
		counts[kind] = n
	}
	return counts
}

func (c *Controller) handleEvent(ev Event) {
	c.mu.Lock()
	c.counts[ev.Kind()]++
	c.mu.Unlock()

	log.Debugf("event: %v", ev)

	if c.store != nil {
		if err := c.store.Append(MakeRecord(ev)); err != nil {
			log.Warnf("failed to store event: %v", err)
		}
	}

	if shortcut, ok := ev.(ControllerShortcut); ok {
		c.deliverShortcut(shortcut)
	}
}

// deliverShortcut completes a control packet the network could not route by
// pushing it to the destination's inbound channel with the cursor already on
// the destination.
func (c *Controller) deliverShortcut(ev ControllerShortcut) {
	dest, ok := ev.Packet.Header.Destination()
	if !ok {
		log.Warnf("shortcut packet without destination from node %d: %v", ev.Node, ev.Packet)
		return
	}
	if dest == ev.Node {
		// Re-delivering to the emitter would bounce the packet forever.
		log.Warnf("shortcut packet from node %d addressed to itself: %v", ev.Node, ev.Packet)
		return
	}

	c.mu.RLock()
	inbound, ok := c.inbound[dest]
	c.mu.RUnlock()
	if !ok {
		log.Warnf("shortcut destination %d is not attached: %v", dest, ev.Packet)
		return
	}

	p := ev.Packet
	p.Header.HopIndex = len(p.Header.Hops) - 1

	select {
	case inbound <- p:
	default:
		log.Warnf("shortcut destination %d is not accepting packets: %v", dest, ev.Packet)
	}
}
