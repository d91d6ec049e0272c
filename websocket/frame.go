package websocket

// Opcode identifies the purpose of a frame per RFC 6455, section 5.2.
type Opcode byte

// Opcodes defined in RFC 6455, section 11.8.
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xa
)

// IsControl reports whether op is a control opcode (close, ping, pong).
func (op Opcode) IsControl() bool {
	return op == OpClose || op == OpPing || op == OpPong
}

func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return "unknown"
	}
}

// toOpcode maps the low nibble of the first header byte to an Opcode.
// Reserved opcodes are treated as close.
func toOpcode(b byte) Opcode {
	switch op := Opcode(b & opcodeMask); op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return op
	default:
		return OpClose
	}
}

// Frame is a decoded WebSocket frame. The concrete type is one of
// TextFrame, BinaryFrame, CloseFrame, PingFrame or PongFrame.
type Frame interface {
	Opcode() Opcode
	payload() []byte
}

// TextFrame carries a UTF-8 text payload.
type TextFrame struct {
	Text string
}

// BinaryFrame carries arbitrary bytes.
type BinaryFrame struct {
	Data []byte
}

// CloseFrame starts or answers the closing handshake. A zero Code means
// the frame carries no status (empty payload).
type CloseFrame struct {
	Code   uint16
	Reason string
}

// PingFrame is a keep-alive probe; the peer answers with a PongFrame
// carrying the same data.
type PingFrame struct {
	Data []byte
}

// PongFrame answers a PingFrame.
type PongFrame struct {
	Data []byte
}

func (TextFrame) Opcode() Opcode   { return OpText }
func (BinaryFrame) Opcode() Opcode { return OpBinary }
func (CloseFrame) Opcode() Opcode  { return OpClose }
func (PingFrame) Opcode() Opcode   { return OpPing }
func (PongFrame) Opcode() Opcode   { return OpPong }

func (f TextFrame) payload() []byte   { return []byte(f.Text) }
func (f BinaryFrame) payload() []byte { return f.Data }
func (f CloseFrame) payload() []byte  { return FormatCloseMessage(f.Code, f.Reason) }
func (f PingFrame) payload() []byte   { return f.Data }
func (f PongFrame) payload() []byte   { return f.Data }

// HasStatus reports whether the close frame carries a status code.
func (f CloseFrame) HasStatus() bool {
	return f.Code != 0
}
