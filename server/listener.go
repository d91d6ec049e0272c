package server

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Listen opens the configured listener. When the address is busy and
// Config.PortProbe is positive, up to that many following ports are tried.
// A positive Config.MaxConnections caps concurrently accepted connections.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	ln, err := listenProbe(ctx, s.Config.Address, s.Config.PortProbe)
	if err != nil {
		return nil, err
	}

	if ln.Addr().String() != s.Config.Address {
		s.Logger.Debug("listening on probed address",
			zap.String("requested", s.Config.Address),
			zap.String("address", ln.Addr().String()),
		)
	}

	if s.Config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.Config.MaxConnections)
	}

	return ln, nil
}

// listenProbe listens on address, moving on to the next port while the
// current one is in use, at most probe times. Port 0 is never probed.
func listenProbe(ctx context.Context, address string, probe int) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", address, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("listen %q: bad port: %w", address, err)
	}

	lc := net.ListenConfig{Control: reuseAddrControl}

	for i := 0; ; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))

		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			return ln, nil
		}

		if port == 0 || i >= probe || port+i >= 65535 || !isAddrInUse(err) {
			return nil, fmt.Errorf("listen %q: %w", addr, err)
		}
	}
}
