package websocket

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMaskKey = [4]byte{0x37, 0xfa, 0x21, 0x3d}

func maskedFrame(opcode Opcode, payload []byte) []byte {
	return appendFrame(nil, opcode, payload, testMaskKey[:])
}

func TestDecodeFrameRFCExample(t *testing.T) {
	// RFC 6455, section 5.7: a single-frame masked text message "Hello".
	data := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}

	frame, n, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, TextFrame{Text: "Hello"}, frame)
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "Text", frame: TextFrame{Text: "Hello, world"}},
		{name: "Empty text", frame: TextFrame{Text: ""}},
		{name: "Multibyte text", frame: TextFrame{Text: "привет"}},
		{name: "Binary", frame: BinaryFrame{Data: []byte{0x00, 0x01, 0xfe, 0xff}}},
		{name: "Ping", frame: PingFrame{Data: []byte("ping")}},
		{name: "Pong", frame: PongFrame{Data: []byte("pong")}},
		{name: "Close with status", frame: CloseFrame{Code: CloseNormalClosure, Reason: "bye"}},
		{name: "Close without reason", frame: CloseFrame{Code: CloseGoingAway}},
		{name: "Close without status", frame: CloseFrame{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := EncodeMaskedFrame(tt.frame, testMaskKey)

			frame, n, err := DecodeFrame(data)
			require.NoError(t, err)
			assert.Equal(t, len(data), n)
			assert.Equal(t, tt.frame, frame)
		})
	}
}

func TestDecodeFramePayloadLengths(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		lengthByte byte
		headerSize int
	}{
		{name: "7-bit maximum", size: 125, lengthByte: 125, headerSize: 2},
		{name: "16-bit minimum", size: 126, lengthByte: payloadLen16, headerSize: 4},
		{name: "16-bit maximum", size: 65535, lengthByte: payloadLen16, headerSize: 4},
		{name: "64-bit minimum", size: 65536, lengthByte: payloadLen64, headerSize: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0xab}, tt.size)

			encoded := EncodeFrame(BinaryFrame{Data: payload})
			assert.Equal(t, byte(0x82), encoded[0])
			assert.Equal(t, tt.lengthByte, encoded[1])
			assert.Len(t, encoded, tt.headerSize+tt.size)

			masked := EncodeMaskedFrame(BinaryFrame{Data: payload}, testMaskKey)
			assert.Len(t, masked, tt.headerSize+4+tt.size)

			frame, n, err := DecodeFrame(masked)
			require.NoError(t, err)
			assert.Equal(t, len(masked), n)
			assert.Equal(t, BinaryFrame{Data: payload}, frame)
		})
	}
}

func TestDecodeFrameConsumesOneFrame(t *testing.T) {
	first := EncodeMaskedFrame(TextFrame{Text: "one"}, testMaskKey)
	second := EncodeMaskedFrame(TextFrame{Text: "two"}, testMaskKey)
	data := append(append([]byte{}, first...), second...)

	frame, n, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, TextFrame{Text: "one"}, frame)
	assert.Equal(t, len(first), n)

	frame, n, err = DecodeFrame(data[n:])
	require.NoError(t, err)
	assert.Equal(t, TextFrame{Text: "two"}, frame)
	assert.Equal(t, len(second), n)
}

func TestDecodeFrameIncomplete(t *testing.T) {
	full := EncodeMaskedFrame(BinaryFrame{Data: bytes.Repeat([]byte{1}, 300)}, testMaskKey)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty", data: nil},
		{name: "One byte", data: []byte{0x81}},
		{name: "Truncated 16-bit length", data: []byte{0x82, 0x80 | payloadLen16, 0x01}},
		{name: "Truncated 64-bit length", data: []byte{0x82, 0x80 | payloadLen64, 0, 0, 0, 0}},
		{name: "Truncated mask key", data: []byte{0x81, 0x85, 0x37, 0xfa}},
		{name: "Truncated payload", data: full[:len(full)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, n, err := DecodeFrame(tt.data)
			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Nil(t, frame)
			assert.Zero(t, n)
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{
			name: "Unmasked frame",
			data: []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'},
			err:  ErrUnmaskedClientFrame,
		},
		{
			name: "Unmasked continuation",
			data: []byte{0x00, 0x00},
			err:  ErrUnmaskedClientFrame,
		},
		{
			name: "Continuation frame",
			data: maskedFrame(OpContinuation, []byte("more")),
			err:  ErrFragmentationUnsupported,
		},
		{
			name: "Invalid UTF-8 text",
			data: maskedFrame(OpText, []byte{0xff, 0xfe, 0xfd}),
			err:  ErrInvalidUTF8,
		},
		{
			name: "Oversized ping",
			data: maskedFrame(OpPing, make([]byte, 126)),
			err:  ErrControlFrameTooLarge,
		},
		{
			name: "Oversized close",
			data: maskedFrame(OpClose, make([]byte, 200)),
			err:  ErrControlFrameTooLarge,
		},
		{
			name: "Length with high bit set",
			data: []byte{0x82, 0x80 | payloadLen64, 0x80, 0, 0, 0, 0, 0, 0, 0},
			err:  ErrFrameTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, n, err := DecodeFrame(tt.data)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, IsDecodeError(err))
			assert.Nil(t, frame)
			assert.Zero(t, n)
		})
	}

	assert.False(t, IsDecodeError(ErrIncomplete))
	assert.False(t, IsDecodeError(nil))
}

func TestDecodeFrameControlPayloadBoundary(t *testing.T) {
	data := maskedFrame(OpPing, bytes.Repeat([]byte{'p'}, 125))

	frame, _, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Len(t, frame.(PingFrame).Data, 125)
}

func TestDecodeFrameLimit(t *testing.T) {
	data := maskedFrame(OpBinary, make([]byte, 11))

	_, _, err := DecodeFrameLimit(data, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	frame, _, err := DecodeFrameLimit(data, 11)
	require.NoError(t, err)
	assert.Len(t, frame.(BinaryFrame).Data, 11)

	t.Run("Checked before payload arrives", func(t *testing.T) {
		header := []byte{0x82, 0x80 | payloadLen64, 0, 0, 0, 0, 0x10, 0, 0, 0}
		_, _, err := DecodeFrameLimit(header, DefaultMaxFrameBytes)
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})
}

func TestDecodeFrameCloseCodes(t *testing.T) {
	tests := []struct {
		code  uint16
		valid bool
	}{
		{code: 1000, valid: true},
		{code: 1001, valid: true},
		{code: 1003, valid: true},
		{code: 1004, valid: false},
		{code: 1005, valid: false},
		{code: 1006, valid: false},
		{code: 1007, valid: true},
		{code: 1011, valid: true},
		{code: 1012, valid: false},
		{code: 1015, valid: false},
		{code: 2999, valid: false},
		{code: 3000, valid: true},
		{code: 4999, valid: true},
		{code: 5000, valid: false},
	}

	for _, tt := range tests {
		t.Run(closeCodeString(int(tt.code)), func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidCloseCode(tt.code))

			frame, _, err := DecodeFrame(EncodeMaskedFrame(CloseFrame{Code: tt.code}, testMaskKey))
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, CloseFrame{Code: tt.code}, frame)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCloseCode)
			}
		})
	}
}

func TestDecodeFrameClosePayloads(t *testing.T) {
	tests := []struct {
		name     string
		opcode   Opcode
		payload  []byte
		expected CloseFrame
	}{
		{
			name:     "Single byte payload",
			opcode:   OpClose,
			payload:  []byte{0x03},
			expected: CloseFrame{},
		},
		{
			name:     "Invalid UTF-8 reason is replaced",
			opcode:   OpClose,
			payload:  []byte{0x03, 0xe8, 'o', 'k', 0xff},
			expected: CloseFrame{Code: 1000, Reason: "ok\uFFFD"},
		},
		{
			name:     "Reserved opcode treated as close",
			opcode:   Opcode(0x3),
			payload:  nil,
			expected: CloseFrame{},
		},
		{
			name:     "Reserved control opcode with status",
			opcode:   Opcode(0xb),
			payload:  []byte{0x03, 0xe9},
			expected: CloseFrame{Code: CloseGoingAway},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, _, err := DecodeFrame(maskedFrame(tt.opcode, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, frame)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    Frame
		expected []byte
	}{
		{
			name:     "Text",
			frame:    TextFrame{Text: "Echo: Hello"},
			expected: append([]byte{0x81, 11}, "Echo: Hello"...),
		},
		{
			name:     "Binary",
			frame:    BinaryFrame{Data: []byte{1, 2, 3}},
			expected: []byte{0x82, 3, 1, 2, 3},
		},
		{
			name:     "Empty ping",
			frame:    PingFrame{},
			expected: []byte{0x89, 0x00},
		},
		{
			name:     "Pong",
			frame:    PongFrame{Data: []byte("hi")},
			expected: []byte{0x8a, 2, 'h', 'i'},
		},
		{
			name:     "Close with status",
			frame:    CloseFrame{Code: CloseProtocolError, Reason: "Ping timeout"},
			expected: append([]byte{0x88, 14, 0x03, 0xea}, "Ping timeout"...),
		},
		{
			name:     "Close without status",
			frame:    CloseFrame{},
			expected: []byte{0x88, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeFrame(tt.frame))
		})
	}
}

func TestEncodeMaskedFrame(t *testing.T) {
	data := EncodeMaskedFrame(TextFrame{Text: "Hello"}, testMaskKey)
	assert.Equal(t, []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}, data)
}

func TestMaskBytes(t *testing.T) {
	mask := []byte{0x12, 0x34, 0x56, 0x78}

	for _, size := range []int{0, 1, 3, 4, 5, 8, 13, 1024} {
		original := make([]byte, size)
		for i := range original {
			original[i] = byte(i * 7)
		}
		data := append([]byte{}, original...)

		pos := maskBytes(mask, 0, data)
		assert.Equal(t, size%4, pos)
		if size > 0 {
			assert.NotEqual(t, original, data)
		}

		maskBytes(mask, 0, data)
		assert.Equal(t, original, data)
	}

	t.Run("Position carries across calls", func(t *testing.T) {
		whole := []byte("abcdefghij")
		maskBytes(mask, 0, whole)

		split := []byte("abcdefghij")
		pos := maskBytes(mask, 0, split[:3])
		maskBytes(mask, pos, split[3:])

		assert.Equal(t, whole, split)
	})
}

func TestOpcode(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		control bool
	}{
		{op: OpContinuation, name: "continuation"},
		{op: OpText, name: "text"},
		{op: OpBinary, name: "binary"},
		{op: OpClose, name: "close", control: true},
		{op: OpPing, name: "ping", control: true},
		{op: OpPong, name: "pong", control: true},
		{op: Opcode(0x5), name: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.op.String())
			assert.Equal(t, tt.control, tt.op.IsControl())
		})
	}
}
