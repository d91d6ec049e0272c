package websocket

import (
	"fmt"
	"testing"
)

func BenchmarkEncodeFrame(b *testing.B) {
	data := make([]byte, 1024)

	b.Run("Server", func(b *testing.B) {
		for b.Loop() {
			_ = EncodeFrame(BinaryFrame{Data: data})
		}
	})

	b.Run("Client", func(b *testing.B) {
		for b.Loop() {
			_ = EncodeMaskedFrame(BinaryFrame{Data: data}, testMaskKey)
		}
	})
}

func BenchmarkDecodeFrame(b *testing.B) {
	for _, size := range []int{16, 1024, 64 * 1024} {
		frame := EncodeMaskedFrame(BinaryFrame{Data: make([]byte, size)}, testMaskKey)

		b.Run(fmt.Sprintf("%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			for b.Loop() {
				_, _, _ = DecodeFrame(frame)
			}
		})
	}
}

func BenchmarkMaskBytes(b *testing.B) {
	for _, size := range []int{64, 1024, 64 * 1024} {
		data := make([]byte, size)

		b.Run(fmt.Sprintf("%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			for b.Loop() {
				maskBytes(testMaskKey[:], 0, data)
			}
		})
	}
}

func BenchmarkComputeAcceptKey(b *testing.B) {
	key := "dGhlIHNhbXBsZSBub25jZQ=="

	for b.Loop() {
		_ = ComputeAcceptKey(key)
	}
}

func FuzzDecodeFrame(f *testing.F) {
	f.Add(EncodeMaskedFrame(TextFrame{Text: "Hello"}, testMaskKey))
	f.Add(EncodeMaskedFrame(CloseFrame{Code: CloseNormalClosure, Reason: "bye"}, testMaskKey))
	f.Add(EncodeMaskedFrame(BinaryFrame{Data: make([]byte, 300)}, testMaskKey))
	f.Add([]byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'})
	f.Add([]byte{0x88, 0x80 | payloadLen64})

	f.Fuzz(func(t *testing.T, data []byte) {
		frame, n, err := DecodeFrameLimit(data, 1<<20)
		if err != nil {
			if frame != nil || n != 0 {
				t.Fatalf("error %v returned frame %v and %d bytes", err, frame, n)
			}
			return
		}

		if n <= 0 || n > len(data) {
			t.Fatalf("consumed %d of %d bytes", n, len(data))
		}

		// A decoded frame must survive a round trip.
		again, m, err := DecodeFrame(EncodeMaskedFrame(frame, testMaskKey))
		if err != nil {
			t.Fatalf("re-decode: %v", err)
		}
		if m == 0 || fmt.Sprint(again) != fmt.Sprint(frame) {
			t.Fatalf("round trip changed %v into %v", frame, again)
		}
	})
}
