//go:build unix

package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenProbe(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	busyPort := busy.Addr().(*net.TCPAddr).Port

	t.Run("Probing disabled", func(t *testing.T) {
		_, err := listenProbe(context.Background(), busy.Addr().String(), 0)
		require.Error(t, err)
		assert.True(t, isAddrInUse(err))
	})

	t.Run("Next free port", func(t *testing.T) {
		ln, err := listenProbe(context.Background(), busy.Addr().String(), 20)
		require.NoError(t, err)
		defer ln.Close()

		port := ln.Addr().(*net.TCPAddr).Port
		assert.Greater(t, port, busyPort)
		assert.LessOrEqual(t, port, busyPort+20)
	})

	t.Run("Ephemeral port", func(t *testing.T) {
		ln, err := listenProbe(context.Background(), "127.0.0.1:0", 5)
		require.NoError(t, err)
		defer ln.Close()

		assert.NotZero(t, ln.Addr().(*net.TCPAddr).Port)
	})

	t.Run("Bad address", func(t *testing.T) {
		_, err := listenProbe(context.Background(), "no-port", 5)
		assert.Error(t, err)
	})
}

func TestServerListenUsesProbe(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.Address = busy.Addr().String()
	cfg.PortProbe = 20

	ln, err := New(cfg, nil, nil).Listen(context.Background())
	require.NoError(t, err)
	defer ln.Close()

	assert.NotEqual(t, busy.Addr().String(), ln.Addr().String())
}
