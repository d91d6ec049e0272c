package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitalvas/wire/httpwire"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored in the context by
// RequestIDMiddleware. Returns an empty string if no ID is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// RequestIDConfig configures the Request ID middleware behaviour.
type RequestIDConfig struct {
	// HeaderName overrides the header used to propagate the request ID.
	// Defaults to "x-request-id" when empty.
	HeaderName string

	// GenerateFunc is an optional callback that returns a new unique ID.
	// Defaults to GenerateUUIDv4.
	GenerateFunc func(req *httpwire.Request) string

	// TrustIncoming, when true, reuses an existing request ID from the
	// incoming request header instead of generating a new one.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that generates or propagates a
// request ID header. The ID is set on both the request (for downstream
// handlers) and the response (for the caller).
func RequestIDMiddleware(cfg RequestIDConfig) MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "x-request-id"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error) {
			id := ""
			if cfg.TrustIncoming {
				id = req.Header.Get(headerName)
			}

			if id == "" {
				id = generate(req)
			}

			if id != "" {
				req.Header.Set(headerName, id)
				ctx = context.WithValue(ctx, requestIDKey{}, id)
			}

			resp, err := next.ServeWire(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}

			if id != "" {
				resp.Header.Set(headerName, id)
			}

			return resp, nil
		})
	}
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4(_ *httpwire.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7(_ *httpwire.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
