package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vitalvas/wire/httpwire"
)

// Session defaults.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	defaultReadBufferSize = 4096
)

// Session errors.
var (
	ErrPingTimeout   = errors.New("websocket: ping timeout")
	ErrSessionClosed = errors.New("websocket: session closed")
	ErrNotOpen       = errors.New("websocket: session not open")
)

// State is the lifecycle state of a Session.
type State int32

// Session states, in lifecycle order.
const (
	StateHandshaking State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MessageHandler reacts to data frames. A nil reply sends nothing.
type MessageHandler interface {
	HandleMessage(ctx context.Context, f Frame) (Frame, error)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, f Frame) (Frame, error)

// HandleMessage calls fn(ctx, f).
func (fn MessageHandlerFunc) HandleMessage(ctx context.Context, f Frame) (Frame, error) {
	return fn(ctx, f)
}

// EchoHandler answers a text frame with the same text prefixed by "Echo: "
// and a binary frame with the same bytes.
var EchoHandler MessageHandler = MessageHandlerFunc(func(_ context.Context, f Frame) (Frame, error) {
	switch f := f.(type) {
	case TextFrame:
		return TextFrame{Text: "Echo: " + f.Text}, nil
	case BinaryFrame:
		return BinaryFrame{Data: f.Data}, nil
	default:
		return nil, nil
	}
})

// SessionConfig configures a Session. Zero values select defaults.
type SessionConfig struct {
	// Reader supplies inbound bytes. It must drain anything buffered while
	// reading the handshake request before reading the connection. Defaults
	// to the connection itself.
	Reader io.Reader

	// PingInterval is the keep-alive period. A ping left unanswered for a
	// whole period closes the session.
	PingInterval time.Duration

	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration

	// MaxFrameBytes bounds the payload of a single inbound frame.
	MaxFrameBytes int64

	// ReadBufferSize is the size of each socket read.
	ReadBufferSize int

	// Handler receives text and binary frames. Defaults to EchoHandler.
	Handler MessageHandler

	// WriteOptions control the handshake response header defaults.
	WriteOptions httpwire.WriteOptions

	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Session runs the post-handshake WebSocket loop for one connection. All
// session state is owned by the goroutine calling Run.
type Session struct {
	conn   net.Conn
	reader io.Reader
	cfg    SessionConfig
	log    *zap.Logger

	state        atomic.Int32
	buf          []byte
	awaitingPong bool
}

// NewSession prepares a session on conn. The session starts in
// StateHandshaking; call Handshake and then Run.
func NewSession(conn net.Conn, cfg SessionConfig) *Session {
	if cfg.Reader == nil {
		cfg.Reader = conn
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.Handler == nil {
		cfg.Handler = EchoHandler
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Session{
		conn:   conn,
		reader: cfg.Reader,
		cfg:    cfg,
		log:    cfg.Logger,
	}
	s.state.Store(int32(StateHandshaking))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Handshake writes the 101 Switching Protocols response for challengeKey
// and moves the session to StateOpen.
func (s *Session) Handshake(challengeKey string) error {
	if s.State() != StateHandshaking {
		return ErrBadHandshake
	}

	resp := HandshakeResponse(challengeKey)
	if err := s.write(resp.AppendTo(nil, s.cfg.WriteOptions)); err != nil {
		s.setState(StateClosed)
		return err
	}

	s.setState(StateOpen)
	s.log.Debug("websocket connection established")
	return nil
}

type readResult struct {
	data []byte
	err  error
}

// Run drives the session until it is closed: by a close frame from the
// peer, a ping timeout, a protocol violation, an I/O error, end of stream or
// cancellation of ctx. The connection is closed when Run returns. A nil
// error means an orderly end. When the session sends a close frame because
// of a failure, the error is a *CloseError with the code sent, wrapping the
// cause.
func (s *Session) Run(ctx context.Context) error {
	if s.State() != StateOpen {
		return ErrNotOpen
	}
	defer s.conn.Close()

	reads := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go s.readLoop(reads, done)

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("websocket session shutting down")
			s.closeWith(CloseGoingAway, "Going away")
			return nil

		case <-ticker.C:
			if err := s.onTick(); err != nil {
				return err
			}

		case r := <-reads:
			if r.err != nil {
				return s.onReadError(r.err)
			}
			closed, err := s.onData(ctx, r.data)
			if closed || err != nil {
				return err
			}
		}
	}
}

// readLoop reads the socket and hands each chunk to Run. It exits on the
// first read error or when done is closed.
func (s *Session) readLoop(reads chan<- readResult, done <-chan struct{}) {
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := s.reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case reads <- readResult{data: chunk}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case reads <- readResult{err: err}:
			case <-done:
			}
			return
		}
	}
}

func (s *Session) onTick() error {
	if s.awaitingPong {
		s.log.Warn("client did not respond to ping, closing connection")
		return s.fail(CloseProtocolError, "Ping timeout", ErrPingTimeout)
	}

	if err := s.writeFrame(PingFrame{}); err != nil {
		s.log.Debug("failed to send ping", zap.Error(err))
		s.setState(StateClosed)
		return err
	}
	s.awaitingPong = true
	return nil
}

func (s *Session) onReadError(err error) error {
	s.setState(StateClosed)
	if errors.Is(err, io.EOF) {
		if len(s.buf) == 0 {
			s.log.Debug("peer closed connection")
			return nil
		}
		return io.ErrUnexpectedEOF
	}
	return err
}

// onData buffers chunk and handles every complete frame in arrival order.
// It reports whether the session reached StateClosed.
func (s *Session) onData(ctx context.Context, chunk []byte) (bool, error) {
	s.buf = append(s.buf, chunk...)

	for len(s.buf) > 0 {
		frame, n, err := DecodeFrameLimit(s.buf, s.cfg.MaxFrameBytes)
		if errors.Is(err, ErrIncomplete) {
			return false, nil
		}
		if err != nil {
			s.log.Debug("frame decode failed", zap.Error(err))
			return true, s.fail(closeCodeFor(err), "", err)
		}
		s.buf = append(s.buf[:0], s.buf[n:]...)

		closed, err := s.handleFrame(ctx, frame)
		if closed || err != nil {
			return true, err
		}
	}
	return false, nil
}

func (s *Session) handleFrame(ctx context.Context, frame Frame) (bool, error) {
	switch f := frame.(type) {
	case PingFrame:
		if err := s.writeFrame(PongFrame{Data: f.Data}); err != nil {
			s.setState(StateClosed)
			return true, err
		}

	case PongFrame:
		s.awaitingPong = false

	case CloseFrame:
		s.log.Debug("received close frame", zap.Uint16("code", f.Code), zap.String("reason", f.Reason))
		s.closeWith(0, "")
		return true, nil

	default:
		reply, err := s.cfg.Handler.HandleMessage(ctx, frame)
		if err != nil {
			return true, s.fail(CloseInternalServerErr, "", err)
		}
		if reply == nil {
			return false, nil
		}
		if err := s.writeFrame(reply); err != nil {
			s.setState(StateClosed)
			return true, err
		}
	}
	return false, nil
}

// closeWith sends a best-effort close frame and moves to StateClosed. A
// zero code sends an empty close frame.
func (s *Session) closeWith(code uint16, reason string) {
	s.setState(StateClosing)
	if err := s.writeFrame(CloseFrame{Code: code, Reason: reason}); err != nil {
		s.log.Debug("failed to send close frame", zap.Error(err))
	}
	s.setState(StateClosed)
}

// fail closes the session with code and returns the matching CloseError.
func (s *Session) fail(code uint16, reason string, cause error) error {
	s.closeWith(code, reason)
	return &CloseError{Code: int(code), Text: reason, Err: cause}
}

func (s *Session) writeFrame(f Frame) error {
	return s.write(EncodeFrame(f))
}

func (s *Session) write(b []byte) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_, err := s.conn.Write(b)
	return err
}

func closeCodeFor(err error) uint16 {
	switch {
	case errors.Is(err, ErrInvalidUTF8):
		return CloseInvalidFramePayloadData
	case errors.Is(err, ErrFrameTooLarge):
		return CloseMessageTooBig
	default:
		return CloseProtocolError
	}
}
