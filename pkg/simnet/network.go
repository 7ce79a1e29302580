package simnet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skycoin/skycoin/src/util/logging"

	"github.com/getdroned/drone/internal/metrics"
	"github.com/getdroned/drone/pkg/controller"
	"github.com/getdroned/drone/pkg/drone"
	"github.com/getdroned/drone/pkg/wire"
)

var log = logging.MustGetLogger("simnet")

const (
	packetBufSize  = 512
	commandBufSize = 16
	eventBufSize   = 1024
)

// ErrUnknownNode is returned when addressing a node the network was not built with.
var ErrUnknownNode = errors.New("no such node in the network")

// Link is one bidirectional edge of the built network, tagged with a UUID
// for logging and bookkeeping.
type Link struct {
	ID uuid.UUID
	A  wire.NodeID
	B  wire.NodeID
}

// Network is a built simulation: drones, endpoint hosts, their channels and
// the supervising controller.
type Network struct {
	ctrl     *controller.Controller
	events   chan controller.Event
	packetIn map[wire.NodeID]chan wire.Packet
	commands map[wire.NodeID]chan controller.Command
	drones   map[wire.NodeID]*drone.Drone
	hosts    map[wire.NodeID]*Host
	links    []Link

	droneWG sync.WaitGroup
	hostWG  sync.WaitGroup
	ctrlWG  sync.WaitGroup
}

// Build materializes a validated config: one buffered inbound packet channel
// per node, one command channel per drone, one shared event channel, and the
// channel cross-wiring described by the edges. The store may be nil;
// recorder defaults to a no-op.
func Build(conf *Config, store controller.EventStore, recorder metrics.Recorder) (*Network, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.NewDummy()
	}

	n := &Network{
		events:   make(chan controller.Event, eventBufSize),
		packetIn: make(map[wire.NodeID]chan wire.Packet),
		commands: make(map[wire.NodeID]chan controller.Command),
		drones:   make(map[wire.NodeID]*drone.Drone),
		hosts:    make(map[wire.NodeID]*Host),
	}
	n.ctrl = controller.New(n.events, store)

	hostType := make(map[wire.NodeID]wire.NodeType)
	for _, dc := range conf.Drones {
		n.packetIn[wire.NodeID(dc.ID)] = make(chan wire.Packet, packetBufSize)
	}
	for _, ec := range conf.Clients {
		n.packetIn[wire.NodeID(ec.ID)] = make(chan wire.Packet, packetBufSize)
		hostType[wire.NodeID(ec.ID)] = wire.NodeTypeClient
	}
	for _, ec := range conf.Servers {
		n.packetIn[wire.NodeID(ec.ID)] = make(chan wire.Packet, packetBufSize)
		hostType[wire.NodeID(ec.ID)] = wire.NodeTypeServer
	}

	adjacency := make(map[wire.NodeID]map[wire.NodeID]chan<- wire.Packet)
	for id := range n.packetIn {
		adjacency[id] = make(map[wire.NodeID]chan<- wire.Packet)
	}
	for _, edge := range conf.Edges {
		a, b := wire.NodeID(edge[0]), wire.NodeID(edge[1])
		adjacency[a][b] = n.packetIn[b]
		adjacency[b][a] = n.packetIn[a]

		link := Link{ID: uuid.New(), A: a, B: b}
		n.links = append(n.links, link)
		log.Debugf("link %s: %d <-> %d", link.ID, a, b)
	}

	for _, dc := range conf.Drones {
		id := wire.NodeID(dc.ID)
		commands := make(chan controller.Command, commandBufSize)
		n.commands[id] = commands

		d, err := drone.New(drone.Config{
			ID:        id,
			PacketIn:  n.packetIn[id],
			Commands:  commands,
			Events:    n.events,
			Neighbors: adjacency[id],
			DropRate:  dc.DropRate,
			Metrics:   recorder,
		})
		if err != nil {
			return nil, fmt.Errorf("drone %d: %s", id, err)
		}
		n.drones[id] = d
	}

	for id, typ := range hostType {
		n.hosts[id] = newHost(id, typ, n.packetIn[id], adjacency[id])
	}

	for id, inbound := range n.packetIn {
		n.ctrl.AttachNode(id, inbound)
	}

	return n, nil
}

// Start launches the controller, every drone and every endpoint host in
// their own goroutines.
func (n *Network) Start() {
	n.ctrlWG.Add(1)
	go func() {
		defer n.ctrlWG.Done()
		n.ctrl.Run()
	}()

	for _, d := range n.drones {
		n.droneWG.Add(1)
		go func(d *drone.Drone) {
			defer n.droneWG.Done()
			d.Run()
		}(d)
	}

	for _, h := range n.hosts {
		n.hostWG.Add(1)
		go func(h *Host) {
			defer n.hostWG.Done()
			h.Run()
		}(h)
	}

	log.Infof("network started: %d drones, %d hosts, %d links",
		len(n.drones), len(n.hosts), len(n.links))
}

// Command delivers a controller command to the given drone.
func (n *Network) Command(id wire.NodeID, cmd controller.Command) error {
	commands, ok := n.commands[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	commands <- cmd
	return nil
}

// Host returns the endpoint host with the given identifier.
func (n *Network) Host(id wire.NodeID) (*Host, error) {
	h, ok := n.hosts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return h, nil
}

// Controller returns the network's supervising controller.
func (n *Network) Controller() *controller.Controller {
	return n.ctrl
}

// Links returns the tagged edges of the built network.
func (n *Network) Links() []Link {
	links := make([]Link, len(n.links))
	copy(links, n.links)
	return links
}

// Shutdown tears the network down. The caller must have stopped injecting
// traffic: command channels are closed first, the settle duration lets
// in-flight packets drain, and only then are the packet channels closed so
// that no node forwards into a closed channel. Shutdown returns after every
// goroutine has exited.
func (n *Network) Shutdown(settle time.Duration) {
	for _, commands := range n.commands {
		close(commands)
	}

	time.Sleep(settle)

	// Shortcut packets can no longer be delivered once inbound channels
	// start closing.
	n.ctrl.DetachAll()

	for _, inbound := range n.packetIn {
		close(inbound)
	}
	n.droneWG.Wait()
	n.hostWG.Wait()

	close(n.events)
	n.ctrlWG.Wait()

	log.Info("network stopped")
}
