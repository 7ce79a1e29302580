// Package testhelpers provides helpers for testing.
package testhelpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getdroned/drone/pkg/wire"
)

const timeout = 5 * time.Second

// ReadPacket reads one packet from the channel within the timeout and fails
// the test otherwise.
func ReadPacket(t *testing.T, ch <-chan wire.Packet) wire.Packet {
	t.Helper()

	select {
	case p, ok := <-ch:
		require.True(t, ok, "packet channel closed")
		return p
	case <-time.After(timeout):
		require.FailNow(t, "no packet received within timeout")
		return wire.Packet{}
	}
}

// NoPacket asserts that nothing arrives on the channel for a short while.
func NoPacket(t *testing.T, ch <-chan wire.Packet) {
	t.Helper()

	select {
	case p := <-ch:
		require.FailNowf(t, "unexpected packet", "%v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

// WithinTimeout tries to read an error from error channel within timeout and returns it.
// If timeout exceeds, nil value is returned.
func WithinTimeout(ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return nil
	}
}

// NoErrorN performs require.NoError on multiple errors
func NoErrorN(t *testing.T, errs ...error) {
	for _, err := range errs {
		require.NoError(t, err)
	}
}
