package httpwire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Method
		wantErr  bool
	}{
		{name: "GET", input: "GET", expected: MethodGet},
		{name: "POST", input: "POST", expected: MethodPost},
		{name: "Lowercase put", input: "put", expected: MethodPut},
		{name: "Mixed case options", input: "OpTiOnS", expected: MethodOptions},
		{name: "CONNECT", input: "CONNECT", expected: MethodConnect},
		{name: "Unknown", input: "INVALID", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMethod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMethod)
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestMethodString(t *testing.T) {
	assert.Equal(t, "GET", MethodGet.String())
	assert.Equal(t, "TRACE", MethodTrace.String())
	assert.Equal(t, "UNKNOWN", Method(0).String())
	assert.Equal(t, "UNKNOWN", Method(42).String())
}

func TestParseRequest(t *testing.T) {
	t.Run("Simple GET", func(t *testing.T) {
		head := "GET /index.html HTTP/1.1\r\nHost: localhost:8080\r\nConnection: keep-alive\r\n\r\n"
		req, err := ParseRequest([]byte(head))
		require.NoError(t, err)

		assert.Equal(t, MethodGet, req.Method)
		assert.Equal(t, "/index.html", req.Path)
		assert.Equal(t, "HTTP/1.1", req.Version)
		assert.Equal(t, "localhost:8080", req.Header.Get("host"))
		assert.Equal(t, "keep-alive", req.Header.Get("connection"))
		assert.False(t, req.WantsClose())
	})

	t.Run("WebSocket upgrade headers", func(t *testing.T) {
		head := "GET / HTTP/1.1\r\nHost: localhost:8080\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n" +
			"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\nSec-WebSocket-Version: 13\r\n\r\n"
		req, err := ParseRequest([]byte(head))
		require.NoError(t, err)

		assert.Equal(t, "websocket", req.Header.Get("upgrade"))
		assert.Equal(t, "Upgrade", req.Header.Get("connection"))
		assert.Equal(t, "dGhlIHNhbXBsZSBub25jZQ==", req.Header.Get("sec-websocket-key"))
		assert.Equal(t, "13", req.Header.Get("Sec-WebSocket-Version"))
	})

	t.Run("Header names are case-insensitive", func(t *testing.T) {
		upper, err := ParseRequest([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
		require.NoError(t, err)
		lower, err := ParseRequest([]byte("GET / HTTP/1.1\r\nhost: example.com\r\n\r\n"))
		require.NoError(t, err)

		assert.Equal(t, "example.com", upper.Header.Get("host"))
		assert.Equal(t, upper.Header.Get("host"), lower.Header.Get("host"))
		assert.Equal(t, upper.Header, lower.Header)
	})

	t.Run("Last occurrence wins", func(t *testing.T) {
		req, err := ParseRequest([]byte("GET / HTTP/1.1\r\nX-Test: one\r\nx-test: two\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "two", req.Header.Get("x-test"))
	})

	t.Run("Value keeps inner colons", func(t *testing.T) {
		req, err := ParseRequest([]byte("GET / HTTP/1.1\r\nHost:  localhost:8080  \r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", req.Header.Get("host"))
	})

	t.Run("Lines without colon are skipped", func(t *testing.T) {
		req, err := ParseRequest([]byte("GET / HTTP/1.1\r\nbogus line\r\nAccept: */*\r\n\r\n"))
		require.NoError(t, err)
		assert.Len(t, req.Header, 1)
		assert.Equal(t, "*/*", req.Header.Get("accept"))
	})

	t.Run("Path is not decoded", func(t *testing.T) {
		req, err := ParseRequest([]byte("GET /a%20b/../c?x=1 HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "/a%20b/../c?x=1", req.Path)
	})

	t.Run("Connection close", func(t *testing.T) {
		req, err := ParseRequest([]byte("GET / HTTP/1.1\r\nConnection: Close\r\n\r\n"))
		require.NoError(t, err)
		assert.True(t, req.WantsClose())
	})
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		head string
		err  error
	}{
		{name: "Empty input", head: "", err: ErrEmptyRequest},
		{name: "Blank request line", head: "\r\n\r\n", err: ErrEmptyRequest},
		{name: "Whitespace request line", head: "   \r\n\r\n", err: ErrEmptyRequest},
		{name: "Two tokens", head: "GET /\r\n\r\n", err: ErrInvalidRequestLine},
		{name: "Four tokens", head: "GET / HTTP/1.1 extra\r\n\r\n", err: ErrInvalidRequestLine},
		{name: "Unknown method", head: "BREW /pot HTTP/1.1\r\n\r\n", err: ErrUnsupportedMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.head))
			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, ErrMalformedRequest)
		})
	}
}

func TestReadHead(t *testing.T) {
	t.Run("Stops at terminator", func(t *testing.T) {
		input := "GET / HTTP/1.1\r\nHost: x\r\n\r\nGET /next HTTP/1.1\r\n\r\n"
		br := bufio.NewReader(strings.NewReader(input))

		head, err := ReadHead(br, DefaultMaxHeaderBytes)
		require.NoError(t, err)
		assert.Equal(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n", string(head))

		head, err = ReadHead(br, DefaultMaxHeaderBytes)
		require.NoError(t, err)
		assert.Equal(t, "GET /next HTTP/1.1\r\n\r\n", string(head))

		_, err = ReadHead(br, DefaultMaxHeaderBytes)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Clean EOF before first byte", func(t *testing.T) {
		_, err := ReadHead(bufio.NewReader(strings.NewReader("")), DefaultMaxHeaderBytes)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("EOF mid head", func(t *testing.T) {
		_, err := ReadHead(bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost")), DefaultMaxHeaderBytes)
		assert.ErrorIs(t, err, ErrIncompleteRequest)
	})

	t.Run("Headers too large", func(t *testing.T) {
		input := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", DefaultMaxHeaderBytes) + "\r\n\r\n"
		_, err := ReadHead(bufio.NewReader(strings.NewReader(input)), DefaultMaxHeaderBytes)
		assert.ErrorIs(t, err, ErrHeadersTooLarge)
	})

	t.Run("Many small lines exceed the cap", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("GET / HTTP/1.1\r\n")
		for b.Len() <= DefaultMaxHeaderBytes {
			b.WriteString("X-Pad: 0123456789\r\n")
		}
		_, err := ReadHead(bufio.NewReader(strings.NewReader(b.String())), DefaultMaxHeaderBytes)
		assert.ErrorIs(t, err, ErrHeadersTooLarge)
	})

	t.Run("Line longer than the bufio buffer", func(t *testing.T) {
		long := strings.Repeat("b", 6000)
		input := "GET / HTTP/1.1\r\nX-Long: " + long + "\r\n\r\n"
		head, err := ReadHead(bufio.NewReaderSize(strings.NewReader(input), 16), DefaultMaxHeaderBytes)
		require.NoError(t, err)

		req, err := ParseRequest(head)
		require.NoError(t, err)
		assert.Equal(t, long, req.Header.Get("x-long"))
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestReadHeadPropagatesReadError(t *testing.T) {
	_, err := ReadHead(bufio.NewReader(failingReader{}), DefaultMaxHeaderBytes)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedRequest)
}

func TestReadRequest(t *testing.T) {
	t.Run("Keep-alive sequence", func(t *testing.T) {
		input := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello" +
			"GET /index.html HTTP/1.1\r\nHost: localhost:8080\r\nConnection: keep-alive\r\n\r\n"
		br := bufio.NewReader(strings.NewReader(input))

		first, err := ReadRequest(br, Limits{})
		require.NoError(t, err)
		assert.Equal(t, MethodPost, first.Method)
		assert.Equal(t, []byte("hello"), first.Body)

		second, err := ReadRequest(br, Limits{})
		require.NoError(t, err)
		assert.Equal(t, MethodGet, second.Method)
		assert.Equal(t, "/index.html", second.Path)
		assert.Empty(t, second.Body)

		_, err = ReadRequest(br, Limits{})
		assert.Equal(t, io.EOF, err)
	})

	t.Run("Chunked body", func(t *testing.T) {
		input := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
		req, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), Limits{})
		require.NoError(t, err)
		assert.Equal(t, "Wikipedia", string(req.Body))
	})

	t.Run("Custom header limit", func(t *testing.T) {
		input := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
		_, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), Limits{MaxHeaderBytes: 10})
		assert.ErrorIs(t, err, ErrHeadersTooLarge)
	})

	t.Run("Custom body limit", func(t *testing.T) {
		input := "POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world"
		_, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), Limits{MaxBodyBytes: 10})
		assert.ErrorIs(t, err, ErrBodyTooLarge)
	})

	t.Run("Head without announced body", func(t *testing.T) {
		input := "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\n"
		_, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), Limits{})
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.NotErrorIs(t, err, io.EOF)
	})

	t.Run("Short body", func(t *testing.T) {
		input := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"
		_, err := ReadRequest(bufio.NewReader(bytes.NewReader([]byte(input))), Limits{})
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
