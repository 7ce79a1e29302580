// Package drone implements a forwarding-only node of the simulated overlay
// network. A drone receives source-routed packets from its neighbors,
// forwards, drops or answers them according to the wire protocol, applies
// runtime commands from a supervising controller and reports outcomes back
// as events. One drone is one goroutine; all of its state is owned by that
// goroutine, so packet processing and reconfiguration are never concurrent.
package drone

import (
	"errors"
	"math/rand"
	"time"

	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/getdroned/drone/internal/metrics"
	"github.com/getdroned/drone/pkg/controller"
	"github.com/getdroned/drone/pkg/wire"
)

var log = logging.MustGetLogger("drone")

var (
	// ErrDuplicateNeighbor is returned when adding a neighbor whose identifier is already present.
	ErrDuplicateNeighbor = errors.New("neighbor identifier already exists")
	// ErrUnknownNeighbor is returned when removing a neighbor that is not present.
	ErrUnknownNeighbor = errors.New("no such neighbor")
	// ErrInvalidDropRate is returned when a drop rate lies outside [0, 1].
	ErrInvalidDropRate = errors.New("drop rate must be within [0, 1]")
	// ErrCrashed is returned for commands sent to a node that has already crashed.
	ErrCrashed = errors.New("node has crashed")
)

// Config collects everything needed to construct a Drone. PacketIn, Commands
// and Events are supplied by the host environment; neighbor channels are
// expected to be buffered, since a drone never blocks on an outbound send.
type Config struct {
	ID        wire.NodeID
	PacketIn  <-chan wire.Packet
	Commands  <-chan controller.Command
	Events    chan<- controller.Event
	Neighbors map[wire.NodeID]chan<- wire.Packet
	DropRate  float64

	// Rand overrides the uniform [0, 1) source used by the drop simulation.
	// Leave nil outside of tests.
	Rand func() float64

	// Metrics defaults to a no-op recorder when nil.
	Metrics metrics.Recorder
}

// Drone is one node of the overlay. Run drives it until both inbound
// channels are closed.
type Drone struct {
	id       wire.NodeID
	packetIn <-chan wire.Packet
	commands <-chan controller.Command
	events   chan<- controller.Event

	neighbors neighborTable
	drop      dropPolicy
	floods    floodCache
	crashed   bool

	metrics metrics.Recorder
	log     *logging.Logger
}

// New constructs a Drone from a Config. The neighbor map is copied; the
// caller keeps no handle on the drone's table.
func New(cfg Config) (*Drone, error) {
	d := &Drone{
		id:        cfg.ID,
		packetIn:  cfg.PacketIn,
		commands:  cfg.Commands,
		events:    cfg.Events,
		neighbors: makeNeighborTable(cfg.Neighbors),
		floods:    makeFloodCache(),
		metrics:   cfg.Metrics,
		log:       log,
	}

	d.drop.rand = cfg.Rand
	if d.drop.rand == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		d.drop.rand = rng.Float64
	}
	if err := d.drop.set(cfg.DropRate); err != nil {
		return nil, err
	}

	if d.metrics == nil {
		d.metrics = metrics.NewDummy()
	}

	return d, nil
}

// Run executes the drone loop: it blocks on whichever inbound source is
// ready first, preferring pending commands so that topology changes and
// Crash land before the next packet is processed. It returns once both the
// packet and command channels are closed; a crashed drone keeps draining
// already-queued packets until then.
func (d *Drone) Run() {
	d.log.Infof("drone %d: started, neighbors=%v drop_rate=%v", d.id, d.neighbors.ids(), d.drop.rate)

	packets := d.packetIn
	commands := d.commands

	for packets != nil || commands != nil {
		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			d.applyCommand(cmd)
			continue
		default:
		}

		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			d.applyCommand(cmd)
		case p, ok := <-packets:
			if !ok {
				packets = nil
				continue
			}
			d.processPacket(p)
		}
	}

	d.log.Infof("drone %d: finished", d.id)
}

// sendEvent reports an outcome to the controller. The event channel is never
// allowed to block or stop the protocol; a controller that cannot keep up
// only loses observability.
func (d *Drone) sendEvent(ev controller.Event) {
	if d.events == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.log.Warnf("drone %d: event channel full, dropping %v", d.id, ev)
	}
}
