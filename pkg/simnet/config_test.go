package simnet

import (
	"errors"
	"io/ioutil"
	stdlog "log"
	"os"
	"path/filepath"
	"testing"

	"github.com/skycoin/skycoin/src/util/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func lineConfig() *Config {
	return &Config{
		Drones:  []DroneConfig{{ID: 1}, {ID: 2}},
		Clients: []EndpointConfig{{ID: 10}},
		Servers: []EndpointConfig{{ID: 20}},
		Edges:   [][2]uint8{{10, 1}, {1, 2}, {2, 20}},
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty", func(c *Config) { *c = Config{} }, ErrNoNodes},
		{"duplicate drone", func(c *Config) { c.Drones = append(c.Drones, DroneConfig{ID: 1}) }, ErrDuplicateNodeID},
		{"duplicate across kinds", func(c *Config) { c.Clients = append(c.Clients, EndpointConfig{ID: 2}) }, ErrDuplicateNodeID},
		{"bad drop rate", func(c *Config) { c.Drones[0].DropRate = 1.5 }, ErrBadDropRate},
		{"unknown edge node", func(c *Config) { c.Edges = append(c.Edges, [2]uint8{1, 99}) }, ErrUnknownEdgeNode},
		{"self edge", func(c *Config) { c.Edges = append(c.Edges, [2]uint8{1, 1}) }, ErrSelfEdge},
		{"endpoint pair", func(c *Config) { c.Edges = append(c.Edges, [2]uint8{10, 20}) }, ErrEndpointPair},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := lineConfig()
			tc.mutate(conf)

			err := conf.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tc.err), "got %v, want %v", err, tc.err)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "simnet")
	require.NoError(t, err)
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, "config.json")
	data := `{
		"drones":  [{"id": 1, "drop_rate": 0.1}, {"id": 2}],
		"clients": [{"id": 10}],
		"servers": [{"id": 20}],
		"edges":   [[10, 1], [1, 2], [2, 20]]
	}`
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0600))

	conf, err := ParseConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, conf.Drones[0].DropRate)
	assert.Len(t, conf.Edges, 3)

	_, err = ParseConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
