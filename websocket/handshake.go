package websocket

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/vitalvas/wire/httpwire"
)

// WebSocket protocol constants per RFC 6455.
const (
	// websocketGUID is the globally unique identifier for WebSocket handshake
	// per RFC 6455, section 4.2.2, item 5.4.
	websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// websocketVersion is the WebSocket protocol version per RFC 6455, section 4.2.1, item 6.
	websocketVersion = "13"
)

// Handshake errors. All of them match ErrBadHandshake with errors.Is.
var (
	ErrBadHandshake = errors.New("websocket: bad handshake")
	ErrNotUpgrade   = handshakeError("not a websocket upgrade request")
	ErrBadVersion   = handshakeError("unsupported version")
	ErrMissingKey   = handshakeError("missing Sec-WebSocket-Key")
)

type handshakeErr struct {
	msg string
}

func handshakeError(msg string) error {
	return &handshakeErr{msg: msg}
}

func (e *handshakeErr) Error() string {
	return "websocket: " + e.msg
}

func (e *handshakeErr) Is(target error) bool {
	return target == ErrBadHandshake
}

// CheckUpgrade validates the opening handshake fields of a client request
// per RFC 6455, section 4.2.1.
func CheckUpgrade(h httpwire.Header) error {
	if !strings.EqualFold(strings.TrimSpace(h.Get("upgrade")), "websocket") {
		return ErrNotUpgrade
	}
	if !strings.Contains(strings.ToLower(h.Get("connection")), "upgrade") {
		return ErrNotUpgrade
	}
	if h.Get("sec-websocket-version") != websocketVersion {
		return ErrBadVersion
	}
	if !h.Has("sec-websocket-key") {
		return ErrMissingKey
	}
	return nil
}

// UpgradeKey returns the client's Sec-WebSocket-Key when h describes a
// valid WebSocket upgrade. A false result means the request should be
// served as plain HTTP.
func UpgradeKey(h httpwire.Header) (string, bool) {
	if CheckUpgrade(h) != nil {
		return "", false
	}
	return h.Get("sec-websocket-key"), true
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value per RFC 6455, section 4.2.2, item 5.4.
// The accept key is the base64-encoded SHA-1 hash of the challenge key concatenated with the GUID.
func ComputeAcceptKey(challengeKey string) string {
	h := sha1.New()
	h.Write([]byte(challengeKey))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// HandshakeResponse builds the server's 101 response for challengeKey.
func HandshakeResponse(challengeKey string) *httpwire.Response {
	return httpwire.SwitchingProtocols().
		WithHeader("upgrade", "websocket").
		WithHeader("connection", "Upgrade").
		WithHeader("sec-websocket-accept", ComputeAcceptKey(challengeKey))
}
