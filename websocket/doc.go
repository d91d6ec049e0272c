// Package websocket implements the server side of the WebSocket protocol
// defined in RFC 6455 for connections accepted by the wire server.
//
// This package provides:
//   - Opening handshake validation and the 101 response (CheckUpgrade, HandshakeResponse)
//   - A stateless frame codec (DecodeFrame, EncodeFrame)
//   - A Session that runs the post-handshake loop with ping/pong keep-alive
//   - A minimal masking client (Dialer, ClientConn) for tests and tooling
//
// Only single-frame messages are supported. A continuation frame fails
// decoding with ErrFragmentationUnsupported and the session closes with
// status 1002. Extensions and subprotocols are not negotiated.
//
// Server Example:
//
//	key, ok := websocket.UpgradeKey(req.Header)
//	if !ok {
//	    return
//	}
//
//	sess := websocket.NewSession(conn, websocket.SessionConfig{
//	    Reader:       br,
//	    PingInterval: 30 * time.Second,
//	})
//	if err := sess.Handshake(key); err != nil {
//	    return
//	}
//	err := sess.Run(ctx)
//
// Keep-alive:
//
// The session sends an empty ping every PingInterval. Any pong clears the
// pending flag; if a ping is still unanswered at the next tick the session
// sends close 1002 "Ping timeout" and Run returns ErrPingTimeout.
//
// Concurrency:
//
// Run owns the session state. A helper goroutine only reads the socket and
// forwards the bytes, so ticks and inbound frames are handled sequentially.
package websocket
