package httpwire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// Default framing limits.
const (
	DefaultMaxHeaderBytes = 16 << 10 // 16 KiB of accumulated head bytes
	DefaultMaxBodyBytes   = 10 << 20 // 10 MiB of body, fixed or chunked
)

var headerEnd = []byte("\r\n\r\n")

// Header maps lowercased field names to values. The last occurrence of a
// field wins.
type Header map[string]string

// Get returns the value for name, matched case-insensitively.
func (h Header) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Lookup is like Get but also reports whether the field was present.
func (h Header) Lookup(name string) (string, bool) {
	v, ok := h[strings.ToLower(name)]
	return v, ok
}

// Set stores value under the lowercased name.
func (h Header) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Request is a parsed HTTP/1.1 request. The path is kept raw, without
// percent-decoding or normalization.
type Request struct {
	Method  Method
	Path    string
	Version string
	Header  Header
	Body    []byte
}

// WantsClose reports whether the client asked for the connection to be
// closed after this exchange.
func (r *Request) WantsClose() bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("connection")), "close")
}

// Limits bounds the resources a single request may consume.
type Limits struct {
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return l
}

// ReadRequest reads one request head from r, parses it and reads the body
// it announces. Bytes past the end of the request stay buffered in r.
// It returns io.EOF when the stream ends before the first byte.
func ReadRequest(r *bufio.Reader, limits Limits) (*Request, error) {
	limits = limits.withDefaults()

	head, err := ReadHead(r, limits.MaxHeaderBytes)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest(head)
	if err != nil {
		return nil, err
	}

	req.Body, err = ReadBody(r, req.Header, limits.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	return req, nil
}

// ReadHead accumulates bytes from r until the head terminator (an empty line
// after CRLF) and returns the head including the terminator. When more than
// limit bytes accumulate without a terminator it fails with
// ErrHeadersTooLarge.
func ReadHead(r *bufio.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxHeaderBytes
	}

	var head []byte
	for {
		line, err := r.ReadSlice('\n')
		head = append(head, line...)
		if len(head) > limit {
			return nil, ErrHeadersTooLarge
		}

		switch {
		case err == nil:
			if bytes.HasSuffix(head, headerEnd) {
				return head, nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			if len(head) == 0 {
				return nil, io.EOF
			}
			return nil, ErrIncompleteRequest
		default:
			return nil, err
		}
	}
}

// ParseRequest parses a request line and header block. Header lines without
// a colon are skipped. The returned request has an empty body; see ReadBody.
func ParseRequest(head []byte) (*Request, error) {
	lines := splitLines(string(head))
	if len(lines) == 0 {
		return nil, ErrEmptyRequest
	}

	parts := strings.Fields(lines[0])
	switch len(parts) {
	case 0:
		return nil, ErrEmptyRequest
	case 3:
	default:
		return nil, ErrInvalidRequestLine
	}

	method, err := ParseMethod(parts[0])
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		Path:    parts[1],
		Version: parts[2],
		Header:  make(Header),
	}

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Header[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	return req, nil
}

// splitLines splits on LF and drops a trailing CR from each line. A final
// empty segment after the last LF is not returned.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
