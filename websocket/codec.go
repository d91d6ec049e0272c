package websocket

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

// Frame header constants per RFC 6455, section 5.2.
const (
	maxFrameHeaderSize         = 14  // 2 bytes base + 8 bytes extended length + 4 bytes mask
	maxControlFramePayloadSize = 125 // RFC 6455, section 5.5: control frame payload <= 125 bytes

	// First byte bits.
	finalBit = 1 << 7

	// Second byte bits.
	maskBit = 1 << 7

	opcodeMask     = 0x0f
	payloadLenMask = 0x7f
	payloadLen16   = 126 // 16-bit extended payload length follows
	payloadLen64   = 127 // 64-bit extended payload length follows
)

// DefaultMaxFrameBytes bounds the payload of a single frame accepted by a
// Session.
const DefaultMaxFrameBytes = 10 << 20

// Frame decoding errors. ErrIncomplete is not fatal: the caller should
// buffer more bytes and retry.
var (
	ErrIncomplete               = errors.New("websocket: incomplete frame")
	ErrInvalidUTF8              = errors.New("websocket: invalid utf-8 in text frame")
	ErrControlFrameTooLarge     = errors.New("websocket: control frame payload too big")
	ErrUnmaskedClientFrame      = errors.New("websocket: unmasked client frame")
	ErrInvalidCloseCode         = errors.New("websocket: invalid close code")
	ErrFragmentationUnsupported = errors.New("websocket: fragmented messages are not supported")
	ErrFrameTooLarge            = errors.New("websocket: frame payload too big")
)

// IsDecodeError reports whether err is a fatal frame decoding error.
func IsDecodeError(err error) bool {
	for _, target := range []error{
		ErrInvalidUTF8,
		ErrControlFrameTooLarge,
		ErrUnmaskedClientFrame,
		ErrInvalidCloseCode,
		ErrFragmentationUnsupported,
		ErrFrameTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DecodeFrame parses one client-to-server frame from the start of data and
// returns it with the number of bytes consumed. It never limits the payload
// size beyond the 63-bit range of RFC 6455; see DecodeFrameLimit.
func DecodeFrame(data []byte) (Frame, int, error) {
	return DecodeFrameLimit(data, 0)
}

// DecodeFrameLimit is like DecodeFrame but fails with ErrFrameTooLarge when
// the declared payload exceeds limit. A limit <= 0 disables the check.
func DecodeFrameLimit(data []byte, limit int64) (Frame, int, error) {
	return decodeFrame(data, limit, true)
}

// decodeFrame implements RFC 6455, section 5.2. When requireMask is set,
// frames without the mask bit are rejected, as a server must do.
func decodeFrame(data []byte, limit int64, requireMask bool) (Frame, int, error) {
	if len(data) < 2 {
		return nil, 0, ErrIncomplete
	}

	// The FIN bit is not inspected; continuation frames are rejected below.
	opcode := toOpcode(data[0])
	masked := data[1]&maskBit != 0
	if requireMask && !masked {
		return nil, 0, ErrUnmaskedClientFrame
	}
	if opcode == OpContinuation {
		return nil, 0, ErrFragmentationUnsupported
	}

	length := uint64(data[1] & payloadLenMask)
	offset := 2

	switch length {
	case payloadLen16:
		if len(data) < offset+2 {
			return nil, 0, ErrIncomplete
		}
		length = uint64(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
	case payloadLen64:
		if len(data) < offset+8 {
			return nil, 0, ErrIncomplete
		}
		length = binary.BigEndian.Uint64(data[offset:])
		offset += 8
	}

	if opcode.IsControl() && length > maxControlFramePayloadSize {
		return nil, 0, ErrControlFrameTooLarge
	}
	if length > math.MaxInt64 || (limit > 0 && length > uint64(limit)) {
		return nil, 0, ErrFrameTooLarge
	}

	var mask []byte
	if masked {
		if len(data) < offset+4 {
			return nil, 0, ErrIncomplete
		}
		mask = data[offset : offset+4]
		offset += 4
	}

	if uint64(len(data)-offset) < length {
		return nil, 0, ErrIncomplete
	}
	end := offset + int(length)

	payload := make([]byte, length)
	copy(payload, data[offset:end])
	if masked {
		maskBytes(mask, 0, payload)
	}

	frame, err := buildFrame(opcode, payload)
	if err != nil {
		return nil, 0, err
	}
	return frame, end, nil
}

func buildFrame(opcode Opcode, payload []byte) (Frame, error) {
	switch opcode {
	case OpText:
		if !utf8.Valid(payload) {
			return nil, ErrInvalidUTF8
		}
		return TextFrame{Text: string(payload)}, nil
	case OpBinary:
		return BinaryFrame{Data: payload}, nil
	case OpPing:
		return PingFrame{Data: payload}, nil
	case OpPong:
		return PongFrame{Data: payload}, nil
	default:
		if len(payload) < 2 {
			return CloseFrame{}, nil
		}
		code := binary.BigEndian.Uint16(payload)
		if !IsValidCloseCode(code) {
			return nil, ErrInvalidCloseCode
		}
		return CloseFrame{
			Code:   code,
			Reason: strings.ToValidUTF8(string(payload[2:]), "\uFFFD"),
		}, nil
	}
}

// EncodeFrame serializes f as a server-to-client frame: FIN set, RSV bits
// clear, payload unmasked.
func EncodeFrame(f Frame) []byte {
	return appendFrame(nil, f.Opcode(), f.payload(), nil)
}

// EncodeMaskedFrame serializes f as a client-to-server frame masked with
// key per RFC 6455, section 5.3.
func EncodeMaskedFrame(f Frame, key [4]byte) []byte {
	return appendFrame(nil, f.Opcode(), f.payload(), key[:])
}

func appendFrame(dst []byte, opcode Opcode, data []byte, mask []byte) []byte {
	var header [maxFrameHeaderSize]byte
	header[0] = finalBit | byte(opcode)
	headerLen := 2

	payloadLen := len(data)
	switch {
	case payloadLen <= 125:
		header[1] = byte(payloadLen)
	case payloadLen <= 65535:
		header[1] = payloadLen16
		binary.BigEndian.PutUint16(header[2:], uint16(payloadLen))
		headerLen = 4
	default:
		header[1] = payloadLen64
		binary.BigEndian.PutUint64(header[2:], uint64(payloadLen))
		headerLen = 10
	}

	if mask != nil {
		header[1] |= maskBit
		copy(header[headerLen:], mask)
		headerLen += 4
	}

	dst = append(dst, header[:headerLen]...)
	start := len(dst)
	dst = append(dst, data...)
	if mask != nil {
		maskBytes(mask, 0, dst[start:])
	}
	return dst
}

// maskBytes applies XOR masking to data per RFC 6455, section 5.3.
// Client-to-server frames must be masked; server-to-client frames must not.
// The mask is a 4-byte value, applied cyclically to each byte of the payload.
func maskBytes(mask []byte, pos int, data []byte) int {
	for i := range data {
		data[i] ^= mask[(pos+i)%4]
	}
	return (pos + len(data)) % 4
}
