package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/vitalvas/wire/httpwire"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives recovered panics. When nil, nothing is logged.
	Logger *zap.Logger
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers and answers with 500 Internal Server Error, closing
// the connection afterwards.
func RecoveryMiddleware(cfg RecoveryConfig) MiddlewareFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *httpwire.Request) (resp *httpwire.Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic",
						zap.String("method", req.Method.String()),
						zap.String("path", req.Path),
						zap.Any("panic", rec),
					)

					resp = httpwire.InternalServerError().
						WithText("Internal Server Error").
						CloseConnection()
					err = nil
				}
			}()

			return next.ServeWire(ctx, req)
		})
	}
}
