// Package server accepts TCP connections and serves HTTP/1.1 requests on
// them, handing connections that ask for a WebSocket upgrade to a
// websocket.Session for the rest of their life.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitalvas/wire/config"
	"github.com/vitalvas/wire/handlers"
	"github.com/vitalvas/wire/httpwire"
	"github.com/vitalvas/wire/websocket"
)

const (
	defaultWriteTimeout   = 10 * time.Second
	defaultReadBufferSize = 4096
)

// aLongTimeAgo is a deadline in the past used to unblock pending reads.
var aLongTimeAgo = time.Unix(1, 0)

// Server serves connections with a shared read-only configuration. Its
// fields must not change once serving has started.
type Server struct {
	Config *config.Config

	// Handler answers plain HTTP requests. Required.
	Handler handlers.Handler

	// MessageHandler answers WebSocket data frames. Defaults to
	// websocket.EchoHandler.
	MessageHandler websocket.MessageHandler

	// WriteTimeout bounds every response write.
	WriteTimeout time.Duration

	Logger *zap.Logger

	active atomic.Int64
}

// New returns a Server for cfg. A nil logger disables logging.
func New(cfg *config.Config, h handlers.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		Config:       cfg,
		Handler:      h,
		WriteTimeout: defaultWriteTimeout,
		Logger:       logger,
	}
}

// ActiveConnections reports the number of connections being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}

	s.Logger.Info("server listening",
		zap.String("address", ln.Addr().String()),
		zap.String("static_dir", s.Config.StaticDir),
		zap.Int("max_connections", s.Config.MaxConnections),
	)

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and serves each on its own goroutine.
// When ctx is cancelled the listener is closed and Serve waits for every
// connection to finish. Serve always closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		var backoff time.Duration

		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				if errors.Is(err, net.ErrClosed) {
					return net.ErrClosed
				}

				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					backoff = nextBackoff(backoff)
					s.Logger.Warn("accept failed, retrying", zap.Error(err), zap.Duration("backoff", backoff))
					time.Sleep(backoff)
					continue
				}

				return fmt.Errorf("accept: %w", err)
			}
			backoff = 0

			g.Go(func() error {
				_ = s.ServeConn(gctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// ServeConn serves one connection until the peer goes away, the
// connection stops being persistent, ctx is cancelled or an error occurs.
// The connection is closed on return. Errors are logged with the peer
// address and a connection ID before being returned.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	s.active.Add(1)
	defer s.active.Add(-1)

	log := s.Logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("peer", conn.RemoteAddr().String()),
	)
	log.Debug("connection accepted")

	err := s.serveConn(ctx, conn, log)
	conn.Close()

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		log = log.With(zap.Int("close_code", closeErr.Code))
	}

	switch {
	case err == nil:
		log.Debug("connection closed")
	case isProtocolError(err):
		log.Warn("connection closed on protocol error", zap.Error(err))
	default:
		log.Error("connection failed", zap.Error(err))
	}

	return err
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, log *zap.Logger) error {
	cfg := s.Config
	limits := cfg.Limits()
	opts := cfg.WriteOptions()
	br := bufio.NewReaderSize(conn, defaultReadBufferSize)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	for served := 0; ; served++ {
		if served > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(cfg.KeepAliveTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}

		req, err := httpwire.ReadRequest(br, limits)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil:
				return nil
			case served > 0 && isTimeout(err):
				log.Debug("keep-alive timeout", zap.Int("requests", served))
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("clear read deadline: %w", err)
		}

		if key, ok := websocket.UpgradeKey(req.Header); ok {
			if !stop() {
				return nil
			}
			return s.serveWebSocket(ctx, conn, br, key, req, log)
		}

		resp, err := s.Handler.ServeWire(ctx, req)
		if err != nil {
			return fmt.Errorf("handle %s %s: %w", req.Method, req.Path, err)
		}
		if resp == nil {
			resp = httpwire.InternalServerError()
		}

		if req.WantsClose() || served+1 >= cfg.KeepAliveMax {
			resp.CloseConnection()
		}

		if err := s.writeResponse(conn, resp, opts); err != nil {
			return err
		}

		if !resp.Persistent() {
			return nil
		}
	}
}

func (s *Server) serveWebSocket(ctx context.Context, conn net.Conn, br *bufio.Reader, key string, req *httpwire.Request, log *zap.Logger) error {
	log = log.With(zap.String("path", req.Path))

	sess := websocket.NewSession(conn, websocket.SessionConfig{
		Reader:        br,
		PingInterval:  s.Config.PingInterval,
		WriteTimeout:  s.WriteTimeout,
		MaxFrameBytes: s.Config.MaxFrameBytes,
		Handler:       s.MessageHandler,
		WriteOptions:  s.Config.WriteOptions(),
		Logger:        log,
	})

	if err := sess.Handshake(key); err != nil {
		return fmt.Errorf("websocket handshake: %w", err)
	}

	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("websocket session: %w", err)
	}

	return nil
}

func (s *Server) writeResponse(conn net.Conn, resp *httpwire.Response, opts httpwire.WriteOptions) error {
	if s.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	if _, err := conn.Write(resp.AppendTo(nil, opts)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isProtocolError reports whether err was caused by the peer sending
// malformed data rather than by a local or network failure.
func isProtocolError(err error) bool {
	switch {
	case errors.Is(err, httpwire.ErrMalformedRequest),
		errors.Is(err, websocket.ErrBadHandshake),
		errors.Is(err, websocket.ErrPingTimeout),
		errors.Is(err, io.ErrUnexpectedEOF),
		websocket.IsDecodeError(err):
		return true
	}
	return false
}
