// Package simnet materializes the host environment the drones run in: a
// JSON-described topology of drones and endpoint hosts wired together with
// buffered channels, supervised by a controller.
package simnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Errors returned by config validation.
var (
	ErrDuplicateNodeID = errors.New("duplicate node identifier")
	ErrUnknownEdgeNode = errors.New("edge references unknown node")
	ErrSelfEdge        = errors.New("edge connects a node to itself")
	ErrEndpointPair    = errors.New("endpoints may only connect to drones")
	ErrBadDropRate     = errors.New("drop rate must be within [0, 1]")
	ErrNoNodes         = errors.New("config declares no nodes")
)

// DroneConfig declares one forwarding node.
type DroneConfig struct {
	ID       uint8   `json:"id"`
	DropRate float64 `json:"drop_rate"`
}

// EndpointConfig declares one client or server host.
type EndpointConfig struct {
	ID uint8 `json:"id"`
}

// Config describes a whole simulated network. Edges are bidirectional.
type Config struct {
	Drones  []DroneConfig    `json:"drones"`
	Clients []EndpointConfig `json:"clients"`
	Servers []EndpointConfig `json:"servers"`
	Edges   [][2]uint8       `json:"edges"`
}

// ParseConfig reads and validates a network config from a JSON file.
func ParseConfig(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %s", err)
	}
	defer f.Close() //nolint:errcheck

	conf := &Config{}
	if err := json.NewDecoder(f).Decode(conf); err != nil {
		return nil, fmt.Errorf("json: %s", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks identifier uniqueness, edge wellformedness, drop rate
// bounds and the endpoint wiring rule (clients and servers hang off drones,
// never off each other).
func (c *Config) Validate() error {
	if len(c.Drones)+len(c.Clients)+len(c.Servers) == 0 {
		return ErrNoNodes
	}

	isDrone := make(map[uint8]bool)
	known := make(map[uint8]bool)

	track := func(id uint8) error {
		if known[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateNodeID, id)
		}
		known[id] = true
		return nil
	}

	for _, dc := range c.Drones {
		if err := track(dc.ID); err != nil {
			return err
		}
		isDrone[dc.ID] = true
		if dc.DropRate < 0 || dc.DropRate > 1 {
			return fmt.Errorf("%w: drone %d has %v", ErrBadDropRate, dc.ID, dc.DropRate)
		}
	}
	for _, ec := range append(append([]EndpointConfig{}, c.Clients...), c.Servers...) {
		if err := track(ec.ID); err != nil {
			return err
		}
	}

	for _, edge := range c.Edges {
		a, b := edge[0], edge[1]
		if a == b {
			return fmt.Errorf("%w: %d", ErrSelfEdge, a)
		}
		if !known[a] || !known[b] {
			return fmt.Errorf("%w: %d-%d", ErrUnknownEdgeNode, a, b)
		}
		if !isDrone[a] && !isDrone[b] {
			return fmt.Errorf("%w: %d-%d", ErrEndpointPair, a, b)
		}
	}

	return nil
}
