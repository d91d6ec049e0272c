package httpwire

import (
	"io"
	"strconv"
	"strings"
)

// maxChunkSizeLine bounds a chunk-size line (hex size plus any extension)
// so a peer cannot make the reader scan forever for a line terminator.
const maxChunkSizeLine = 20

// BodyReader is the source a body is read from. *bufio.Reader and
// *bytes.Reader satisfy it.
type BodyReader interface {
	io.Reader
	io.ByteReader
}

// ReadBody reads the message body announced by h per RFC 9112, section 6.
// Content-Length takes precedence over a chunked Transfer-Encoding; with
// neither the body is empty. Bodies over limit fail with ErrBodyTooLarge.
func ReadBody(r BodyReader, h Header, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	if v, ok := h.Lookup("content-length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return nil, ErrInvalidContentLength
		}
		if n > limit {
			return nil, ErrBodyTooLarge
		}
		body := make([]byte, n)
		if err := readFull(r, body); err != nil {
			return nil, err
		}
		return body, nil
	}

	if strings.Contains(strings.ToLower(h.Get("transfer-encoding")), "chunked") {
		return ReadChunked(r, limit)
	}

	return []byte{}, nil
}

// ReadChunked decodes a chunked body per RFC 9112, section 7.1. Chunk
// extensions are ignored. After the last (zero-size) chunk a fixed two bytes
// are consumed for the final CRLF; trailer fields are not supported.
func ReadChunked(r BodyReader, limit int64) ([]byte, error) {
	body := []byte{}
	for {
		size, err := readChunkSize(r)
		if err != nil {
			return nil, err
		}

		if size == 0 {
			var crlf [2]byte
			if err := readFull(r, crlf[:]); err != nil {
				return nil, err
			}
			return body, nil
		}

		if size > uint64(limit) || uint64(len(body))+size > uint64(limit) {
			return nil, ErrBodyTooLarge
		}

		start := len(body)
		body = append(body, make([]byte, size)...)
		if err := readFull(r, body[start:]); err != nil {
			return nil, err
		}

		var crlf [2]byte
		if err := readFull(r, crlf[:]); err != nil {
			return nil, err
		}
		if crlf != [2]byte{'\r', '\n'} {
			return nil, ErrInvalidChunk
		}
	}
}

// readFull fills buf from r. Once a head has been read the body is owed, so
// an end of stream before the first byte is io.ErrUnexpectedEOF as well.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// readChunkSize reads one chunk-size line and returns the decoded size.
func readChunkSize(r io.ByteReader) (uint64, error) {
	line := make([]byte, 0, maxChunkSizeLine)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if b == '\n' {
			break
		}
		line = append(line, b)
		if len(line) > maxChunkSizeLine+1 || (len(line) > maxChunkSizeLine && b != '\r') {
			return 0, ErrChunkSizeLineTooLong
		}
	}

	token := strings.TrimSuffix(string(line), "\r")
	if len(token) > maxChunkSizeLine {
		return 0, ErrChunkSizeLineTooLong
	}
	if i := strings.IndexByte(token, ';'); i >= 0 {
		token = token[:i]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidChunkSize
	}

	size, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return 0, ErrInvalidChunkSize
	}
	return size, nil
}
