package handlers

import (
	"context"

	"github.com/vitalvas/wire/httpwire"
)

// DispatcherConfig configures the method dispatcher.
type DispatcherConfig struct {
	// StaticDir is the root served to GET requests. Required.
	StaticDir string

	// CORS configures the OPTIONS preflight response.
	CORS CORSConfig

	// Get, Post and Options override the default handler for that method.
	Get     Handler
	Post    Handler
	Options Handler
}

// Dispatcher routes requests by method: GET to static files, POST to the
// JSON echo, OPTIONS to the CORS preflight. Other methods get 405.
type Dispatcher struct {
	get     Handler
	post    Handler
	options Handler
}

// NewDispatcher builds a Dispatcher, filling in default handlers.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	d := &Dispatcher{
		get:     cfg.Get,
		post:    cfg.Post,
		options: cfg.Options,
	}

	if d.get == nil {
		static, err := NewStaticFiles(StaticFilesConfig{Root: cfg.StaticDir})
		if err != nil {
			return nil, err
		}
		d.get = static
	}

	if d.post == nil {
		d.post = Echo
	}

	if d.options == nil {
		cors, err := CORSPreflight(cfg.CORS)
		if err != nil {
			return nil, err
		}
		d.options = cors
	}

	return d, nil
}

// ServeWire implements Handler.
func (d *Dispatcher) ServeWire(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error) {
	switch req.Method {
	case httpwire.MethodGet:
		return d.get.ServeWire(ctx, req)
	case httpwire.MethodPost:
		return d.post.ServeWire(ctx, req)
	case httpwire.MethodOptions:
		return d.options.ServeWire(ctx, req)
	default:
		return MethodNotAllowed(), nil
	}
}

// MethodNotAllowed returns the 405 response sent for unsupported methods.
func MethodNotAllowed() *httpwire.Response {
	return httpwire.NewResponse(httpwire.StatusMethodNotAllowed).WithText("Method not allowed")
}
