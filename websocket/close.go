package websocket

import (
	"encoding/binary"
	"errors"
	"slices"
	"strconv"
)

// Close codes defined in RFC 6455, section 7.4.1.
const (
	CloseNormalClosure           = 1000
	CloseGoingAway               = 1001
	CloseProtocolError           = 1002
	CloseUnsupportedData         = 1003
	CloseNoStatusReceived        = 1005
	CloseAbnormalClosure         = 1006
	CloseInvalidFramePayloadData = 1007
	ClosePolicyViolation         = 1008
	CloseMessageTooBig           = 1009
	CloseMandatoryExtension      = 1010
	CloseInternalServerErr       = 1011
	CloseServiceRestart          = 1012
	CloseTryAgainLater           = 1013
	CloseTLSHandshake            = 1015
)

// CloseError describes a close frame received from or sent to the peer.
// A Session that closes the connection itself returns a CloseError carrying
// the code it sent and the error that caused it.
type CloseError struct {
	Code int
	Text string

	// Err is the cause of a locally initiated close, if any.
	Err error
}

func (e *CloseError) Error() string {
	s := "websocket: close " + closeCodeString(e.Code)
	if e.Text != "" {
		s += " " + e.Text
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the cause of the close.
func (e *CloseError) Unwrap() error {
	return e.Err
}

func closeCodeString(code int) string {
	switch code {
	case CloseNormalClosure:
		return "1000 (normal)"
	case CloseGoingAway:
		return "1001 (going away)"
	case CloseProtocolError:
		return "1002 (protocol error)"
	case CloseUnsupportedData:
		return "1003 (unsupported data)"
	case CloseNoStatusReceived:
		return "1005 (no status)"
	case CloseAbnormalClosure:
		return "1006 (abnormal closure)"
	case CloseInvalidFramePayloadData:
		return "1007 (invalid payload)"
	case ClosePolicyViolation:
		return "1008 (policy violation)"
	case CloseMessageTooBig:
		return "1009 (message too big)"
	case CloseMandatoryExtension:
		return "1010 (mandatory extension)"
	case CloseInternalServerErr:
		return "1011 (internal server error)"
	default:
		return strconv.Itoa(code)
	}
}

// IsValidCloseCode reports whether code may appear in a close frame sent by
// a peer: 1000-1003, 1007-1011 and the registered/private range 3000-4999.
func IsValidCloseCode(code uint16) bool {
	switch {
	case code >= 1000 && code <= 1003:
		return true
	case code >= 1007 && code <= 1011:
		return true
	case code >= 3000 && code <= 4999:
		return true
	default:
		return false
	}
}

// FormatCloseMessage formats a close frame body per RFC 6455, section 5.5.1:
// a 2-byte big-endian status code followed by the UTF-8 reason. A zero code
// yields an empty body.
func FormatCloseMessage(code uint16, reason string) []byte {
	if code == 0 {
		return []byte{}
	}
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf, code)
	copy(buf[2:], reason)
	return buf
}

// IsCloseError returns true if the error is a CloseError with one of the specified codes.
func IsCloseError(err error, codes ...int) bool {
	var closeErr *CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return slices.Contains(codes, closeErr.Code)
}
