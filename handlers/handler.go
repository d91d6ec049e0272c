package handlers

import (
	"context"

	"github.com/vitalvas/wire/httpwire"
)

// Handler produces the response for one parsed HTTP request. An error means
// the connection should be dropped without a response.
type Handler interface {
	ServeWire(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error)

// ServeWire calls f(ctx, req).
func (f HandlerFunc) ServeWire(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error) {
	return f(ctx, req)
}

// MiddlewareFunc wraps a Handler with additional behaviour.
type MiddlewareFunc func(next Handler) Handler

// Chain wraps h with mws. The first middleware is the outermost.
func Chain(h Handler, mws ...MiddlewareFunc) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
