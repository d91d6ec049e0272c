package httpwire

import "errors"

// ErrMalformedRequest is the class of every request framing error returned by
// this package. Use errors.Is to test for it.
var ErrMalformedRequest = errors.New("httpwire: malformed request")

// Request framing errors.
var (
	ErrEmptyRequest         = malformed("empty request")
	ErrInvalidRequestLine   = malformed("invalid request line")
	ErrUnsupportedMethod    = malformed("unsupported method")
	ErrInvalidContentLength = malformed("invalid content-length")
	ErrBodyTooLarge         = malformed("body too large")
	ErrHeadersTooLarge      = malformed("headers too large")
	ErrChunkSizeLineTooLong = malformed("chunk size line too long")
	ErrInvalidChunkSize     = malformed("invalid chunk size")
	ErrInvalidChunk         = malformed("invalid chunk framing")
	ErrIncompleteRequest    = malformed("incomplete request")
)

type requestError struct {
	msg string
}

func malformed(msg string) error {
	return &requestError{msg: msg}
}

func (e *requestError) Error() string {
	return "httpwire: " + e.msg
}

func (e *requestError) Is(target error) bool {
	return target == ErrMalformedRequest
}
