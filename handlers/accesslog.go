package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitalvas/wire/httpwire"
)

// AccessLogConfig configures the access log middleware.
type AccessLogConfig struct {
	// Logger receives one entry per request. Required.
	Logger *zap.Logger

	// ExcludePaths are not logged.
	ExcludePaths []string
}

// AccessLogMiddleware logs method, path, status and latency of every
// request. Server errors are logged at error level, client errors at warn
// and everything else at info.
func AccessLogMiddleware(cfg AccessLogConfig) MiddlewareFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	skip := make(map[string]bool, len(cfg.ExcludePaths))
	for _, p := range cfg.ExcludePaths {
		skip[p] = true
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error) {
			if skip[req.Path] {
				return next.ServeWire(ctx, req)
			}

			start := time.Now()
			resp, err := next.ServeWire(ctx, req)
			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method.String()),
				zap.String("path", req.Path),
				zap.Duration("latency", latency),
			}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			if err != nil {
				log.Error("request failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			if resp == nil {
				return nil, nil
			}

			status := resp.Status.Code()
			fields = append(fields, zap.Int("status", status))

			switch {
			case status >= 500:
				log.Error("request completed", fields...)
			case status >= 400:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}

			return resp, nil
		})
	}
}
