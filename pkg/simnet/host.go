package simnet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getdroned/drone/pkg/wire"
)

// Errors returned by host operations.
var (
	ErrNoRoute        = errors.New("no known route to destination")
	ErrUnknownSession = errors.New("no such session")
	ErrDeliveryFailed = errors.New("message delivery failed")
	ErrTimedOut       = errors.New("timed out waiting for delivery")
)

// Host is a minimal endpoint actor, just enough behavior to exercise drones
// end to end: it discovers routes by flooding, fragments and sends messages
// along source routes, acknowledges received fragments, reassembles complete
// messages and retransmits fragments reported dropped. It is not a full
// application node.
type Host struct {
	id  wire.NodeID
	typ wire.NodeType
	in  <-chan wire.Packet
	out map[wire.NodeID]chan<- wire.Packet

	mu         sync.Mutex
	routes     map[wire.NodeID][]wire.NodeID
	pending    map[wire.SessionID]*pendingMessage
	inbox      map[wire.SessionID]*incomingMessage
	floodSeq   wire.FloodID
	sessionSeq uint32

	messages chan []byte
}

// pendingMessage tracks an outbound fragmented message until every fragment
// is acknowledged or the route fails.
type pendingMessage struct {
	route     []wire.NodeID
	frags     []wire.Fragment
	acked     []bool
	remaining int
	err       error
	done      chan struct{}
}

// incomingMessage collects fragments of one inbound session.
type incomingMessage struct {
	frags map[uint64]wire.Fragment
	total uint64
}

func newHost(id wire.NodeID, typ wire.NodeType, in <-chan wire.Packet, out map[wire.NodeID]chan<- wire.Packet) *Host {
	return &Host{
		id:       id,
		typ:      typ,
		in:       in,
		out:      out,
		routes:   make(map[wire.NodeID][]wire.NodeID),
		pending:  make(map[wire.SessionID]*pendingMessage),
		inbox:    make(map[wire.SessionID]*incomingMessage),
		messages: make(chan []byte, 16),
	}
}

// ID returns the host's node identifier.
func (h *Host) ID() wire.NodeID { return h.id }

// Run consumes inbound packets until the host's packet channel is closed.
func (h *Host) Run() {
	log.Infof("host %d (%v): started", h.id, h.typ)

	for p := range h.in {
		h.handle(p)
	}

	close(h.messages)
	log.Infof("host %d: finished", h.id)
}

// Messages yields fully reassembled inbound messages. The channel is closed
// when the host stops.
func (h *Host) Messages() <-chan []byte { return h.messages }

// DiscoverRoutes floods the network and collects responses for the given
// duration, then returns a snapshot of everything reachable so far.
func (h *Host) DiscoverRoutes(wait time.Duration) map[wire.NodeID][]wire.NodeID {
	h.mu.Lock()
	h.floodSeq++
	req := wire.FloodRequest{
		FloodID:   h.floodSeq,
		Initiator: h.id,
		PathTrace: []wire.PathEntry{{ID: h.id, Type: h.typ}},
	}
	session := h.nextSession()
	h.mu.Unlock()

	p := wire.MakeFloodRequest(wire.MakeHeader(h.id), session, req)
	for id, out := range h.out {
		select {
		case out <- p:
		default:
			log.Warnf("host %d: neighbor %d is not accepting flood traffic", h.id, id)
		}
	}

	time.Sleep(wait)
	return h.Routes()
}

// Routes returns a copy of the route table discovered so far.
func (h *Host) Routes() map[wire.NodeID][]wire.NodeID {
	h.mu.Lock()
	defer h.mu.Unlock()

	routes := make(map[wire.NodeID][]wire.NodeID, len(h.routes))
	for dest, route := range h.routes {
		cp := make([]wire.NodeID, len(route))
		copy(cp, route)
		routes[dest] = cp
	}
	return routes
}

// SendMessage fragments the message and sends it to dest along a discovered
// route. It returns the session identifier tracking the transfer.
func (h *Host) SendMessage(dest wire.NodeID, msg []byte) (wire.SessionID, error) {
	h.mu.Lock()
	route, ok := h.routes[dest]
	if !ok {
		h.mu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrNoRoute, dest)
	}

	session := h.nextSession()
	frags := wire.Split(msg)
	pm := &pendingMessage{
		route:     route,
		frags:     frags,
		acked:     make([]bool, len(frags)),
		remaining: len(frags),
		done:      make(chan struct{}),
	}
	h.pending[session] = pm
	h.mu.Unlock()

	for _, frag := range frags {
		h.sendFragment(session, route, frag)
	}
	return session, nil
}

// WaitDelivered blocks until every fragment of the session is acknowledged,
// the transfer fails, or the timeout expires.
func (h *Host) WaitDelivered(session wire.SessionID, timeout time.Duration) error {
	h.mu.Lock()
	pm, ok := h.pending[session]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}

	select {
	case <-pm.done:
		h.mu.Lock()
		err := pm.err
		h.mu.Unlock()
		return err
	case <-time.After(timeout):
		return ErrTimedOut
	}
}

func (h *Host) handle(p wire.Packet) {
	switch payload := p.Payload.(type) {
	case wire.Fragment:
		h.handleFragment(p, payload)
	case wire.Ack:
		h.handleAck(p, payload)
	case wire.Nack:
		h.handleNack(p, payload)
	case wire.FloodRequest:
		// Endpoints never rebroadcast: append self and answer the sender.
		h.send(payload.WithHop(h.id, h.typ).Response(p.Session))
	case wire.FloodResponse:
		h.recordRoutes(payload)
	}
}

// handleFragment acks the fragment along the reverse of its traversed route
// and reassembles the session once complete.
func (h *Host) handleFragment(p wire.Packet, frag wire.Fragment) {
	h.send(wire.MakeAck(p.Header.ReversedPrefix(p.Header.HopIndex), p.Session, frag.Index))

	h.mu.Lock()
	im, ok := h.inbox[p.Session]
	if !ok {
		im = &incomingMessage{frags: make(map[uint64]wire.Fragment), total: frag.Total}
		h.inbox[p.Session] = im
	}
	im.frags[frag.Index] = frag
	complete := uint64(len(im.frags)) == im.total
	if complete {
		delete(h.inbox, p.Session)
	}
	h.mu.Unlock()

	if !complete {
		return
	}

	frags := make([]wire.Fragment, 0, im.total)
	for _, f := range im.frags {
		frags = append(frags, f)
	}
	msg, err := wire.Reassemble(frags)
	if err != nil {
		log.Warnf("host %d: session %d reassembly failed: %v", h.id, p.Session, err)
		return
	}

	select {
	case h.messages <- msg:
	default:
		log.Warnf("host %d: message buffer full, discarding session %d", h.id, p.Session)
	}
}

func (h *Host) handleAck(p wire.Packet, ack wire.Ack) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pm, ok := h.pending[p.Session]
	if !ok || pm.err != nil || pm.remaining == 0 ||
		ack.FragmentIndex >= uint64(len(pm.acked)) || pm.acked[ack.FragmentIndex] {
		return
	}
	pm.acked[ack.FragmentIndex] = true
	pm.remaining--
	if pm.remaining == 0 {
		close(pm.done)
	}
}

// handleNack retransmits fragments reported dropped; any other Nack fails the
// session, since the route itself is broken.
func (h *Host) handleNack(p wire.Packet, nack wire.Nack) {
	h.mu.Lock()
	pm, ok := h.pending[p.Session]
	if !ok || pm.err != nil || pm.remaining == 0 || nack.FragmentIndex >= uint64(len(pm.frags)) {
		h.mu.Unlock()
		return
	}

	if nack.NackType != wire.NackDropped {
		pm.err = fmt.Errorf("%w: %v", ErrDeliveryFailed, nack)
		close(pm.done)
		h.mu.Unlock()
		return
	}

	route := pm.route
	frag := pm.frags[nack.FragmentIndex]
	h.mu.Unlock()

	log.Debugf("host %d: session %d fragment %d dropped, retransmitting", h.id, p.Session, frag.Index)
	h.sendFragment(p.Session, route, frag)
}

func (h *Host) recordRoutes(resp wire.FloodResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Every prefix of the trace is a usable route; the trace starts at this
	// host, so the first entry is skipped.
	route := make([]wire.NodeID, 0, len(resp.PathTrace))
	for _, entry := range resp.PathTrace {
		route = append(route, entry.ID)
		if entry.ID == h.id {
			continue
		}
		cp := make([]wire.NodeID, len(route))
		copy(cp, route)
		h.routes[entry.ID] = cp
	}
}

func (h *Host) sendFragment(session wire.SessionID, route []wire.NodeID, frag wire.Fragment) {
	h.send(wire.MakeFragment(wire.MakeHeader(route...), session, frag))
}

// send pushes a packet to the neighbor after the route cursor, advancing the
// cursor onto the receiver. Hosts, like drones, never block on a send.
func (h *Host) send(p wire.Packet) {
	next, ok := p.Header.NextHop()
	if !ok {
		log.Warnf("host %d: no next hop for %v", h.id, p)
		return
	}
	out, ok := h.out[next]
	if !ok {
		log.Warnf("host %d: %d is not a neighbor, cannot send %v", h.id, next, p)
		return
	}

	fwd := p
	fwd.Header = p.Header.Advanced()

	select {
	case out <- fwd:
	default:
		log.Warnf("host %d: neighbor %d is not accepting packets", h.id, next)
	}
}

// nextSession mints a session identifier unique across hosts: the high bits
// carry the host identifier so two clients never collide at one server.
// Callers must hold h.mu.
func (h *Host) nextSession() wire.SessionID {
	h.sessionSeq++
	return wire.SessionID(h.id)<<32 | wire.SessionID(h.sessionSeq)
}
