package drone

import (
	"github.com/getdroned/drone/pkg/controller"
	"github.com/getdroned/drone/pkg/wire"
)

// processPacket is the packet processing engine. Every branch either
// forwards the packet, answers it with a Nack or FloodResponse, or reports a
// terminal event; a structurally valid packet is never silently discarded.
func (d *Drone) processPacket(p wire.Packet) {
	d.log.Debugf("drone %d: received %v", d.id, p)

	switch payload := p.Payload.(type) {
	case wire.Fragment:
		d.processFragment(p)
	case wire.FloodRequest:
		d.processFloodRequest(p, payload)
	default:
		// Ack, Nack and FloodResponse are control traffic: routed like
		// fragments, never dropped, unroutable copies go to the controller.
		d.processControl(p)
	}
}

// processFragment validates and forwards one message fragment, in priority
// order: recipient check, destination check, crashed check, next hop
// resolution, drop simulation, forward.
func (d *Drone) processFragment(p wire.Packet) {
	if cur, ok := p.Header.CurrentHop(); !ok || cur != d.id {
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackUnexpectedRecipient,
			Hop:           d.id,
		})
		return
	}

	if p.Header.IsLastHop() {
		// Drones are never final destinations for fragments.
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackDestinationIsDrone,
		})
		return
	}

	if d.crashed {
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackErrorInRouting,
			Hop:           d.id,
		})
		return
	}

	next, _ := p.Header.NextHop()
	if _, ok := d.neighbors.lookup(next); !ok {
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackErrorInRouting,
			Hop:           next,
		})
		return
	}

	if d.drop.decide() {
		d.metrics.Dropped()
		d.sendEvent(controller.PacketDropped{Node: d.id, Packet: p})
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackDropped,
		})
		return
	}

	d.forward(p)
}

// processControl routes an Ack, Nack or FloodResponse. Control traffic is
// forwarded even by a crashed drone, so in-flight bookkeeping completes; a
// copy that cannot be routed is handed to the controller instead of a Nack.
func (d *Drone) processControl(p wire.Packet) {
	cur, ok := p.Header.CurrentHop()
	if !ok || cur != d.id || p.Header.IsLastHop() {
		d.shortcut(p)
		return
	}
	d.forward(p)
}

// processFloodRequest implements topology discovery. The first sight of an
// (initiator, flood ID) pair is rebroadcast to every neighbor except the
// sender; repeats and graph leaves answer with a FloodResponse tracing the
// accumulated path back to the initiator.
func (d *Drone) processFloodRequest(p wire.Packet, req wire.FloodRequest) {
	if d.crashed {
		// A crashed drone originates no new flood work.
		d.metrics.Dropped()
		d.sendEvent(controller.PacketDropped{Node: d.id, Packet: p})
		return
	}

	sender := req.Sender()
	req = req.WithHop(d.id, wire.NodeTypeDrone)

	if d.floods.seen(req.Initiator, req.FloodID) || len(d.neighbors) <= 1 {
		d.forward(req.Response(p.Session))
		return
	}

	d.floods.record(req.Initiator, req.FloodID)
	d.broadcast(wire.MakeFloodRequest(p.Header, p.Session, req), sender)
}

// forward sends the packet to the neighbor named immediately after the
// cursor, advancing the cursor onto the receiver. Outbound sends never block:
// a full or missing neighbor channel is a routing failure.
func (d *Drone) forward(p wire.Packet) {
	next, ok := p.Header.NextHop()
	if !ok {
		d.routingFailure(p, d.id)
		return
	}

	out, ok := d.neighbors.lookup(next)
	if !ok {
		d.routingFailure(p, next)
		return
	}

	fwd := p
	fwd.Header = p.Header.Advanced()

	select {
	case out <- fwd:
		d.metrics.Forwarded()
		d.sendEvent(controller.PacketSent{Node: d.id, Packet: fwd})
	default:
		d.routingFailure(p, next)
	}
}

// routingFailure resolves an unreachable next hop: fragments are nacked back
// toward the originator, control traffic is handed to the controller so it is
// never lost.
func (d *Drone) routingFailure(p wire.Packet, next wire.NodeID) {
	switch p.Payload.(type) {
	case wire.Fragment, wire.FloodRequest:
		d.sendNack(p, wire.Nack{
			FragmentIndex: p.FragmentIndex(),
			NackType:      wire.NackErrorInRouting,
			Hop:           next,
		})
	default:
		d.shortcut(p)
	}
}

// sendNack routes a negative acknowledgment back toward the originator along
// the reverse of the path traveled so far.
func (d *Drone) sendNack(orig wire.Packet, nack wire.Nack) {
	d.metrics.Nacked()

	var hdr wire.SourceRoutingHeader
	if nack.NackType == wire.NackUnexpectedRecipient {
		hdr = d.detourHeader(orig.Header)
	} else {
		hdr = orig.Header.ReversedPrefix(orig.Header.HopIndex)
	}

	d.forward(wire.MakeNack(hdr, orig.Session, nack))
}

// detourHeader builds the return route for a packet that never should have
// arrived here. This node is not on the packet's route, so the reply
// re-enters the route at the closest traversed hop this node can actually
// reach, falling back to the originator (and the controller shortcut) when
// none is reachable.
func (d *Drone) detourHeader(h wire.SourceRoutingHeader) wire.SourceRoutingHeader {
	upto := 0
	for i, hop := range h.Hops {
		if _, ok := d.neighbors.lookup(hop); ok {
			upto = i
			break
		}
	}

	rev := h.ReversedPrefix(upto)
	hops := append([]wire.NodeID{d.id}, rev.Hops...)
	return wire.MakeHeader(hops...)
}

// broadcast rebroadcasts a flood request to every neighbor except the one it
// arrived from. Each copy shares the appended path trace; an unreceptive
// neighbor is skipped, flood coverage is best effort.
func (d *Drone) broadcast(p wire.Packet, except wire.NodeID) {
	for _, id := range d.neighbors.ids() {
		if id == except {
			continue
		}
		out, _ := d.neighbors.lookup(id)

		select {
		case out <- p:
			d.metrics.Forwarded()
			d.sendEvent(controller.PacketSent{Node: d.id, Packet: p})
		default:
			d.log.Warnf("drone %d: neighbor %d is not accepting flood traffic", d.id, id)
		}
	}
}

// shortcut hands a control packet the network cannot route to the controller
// for out-of-band delivery.
func (d *Drone) shortcut(p wire.Packet) {
	d.metrics.Shortcut()
	d.sendEvent(controller.ControllerShortcut{Node: d.id, Packet: p})
}
