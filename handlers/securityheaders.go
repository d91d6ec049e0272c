package handlers

import (
	"context"
	"errors"

	"github.com/vitalvas/wire/httpwire"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption is
// not one of "DENY", "SAMEORIGIN" or empty.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// SecurityHeadersConfig configures the security headers middleware.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff drops "x-content-type-options: nosniff".
	DisableContentTypeNosniff bool

	// FrameOption is the x-frame-options value. Defaults to "DENY".
	FrameOption string

	// ReferrerPolicy defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// ContentSecurityPolicy is only sent when set.
	ContentSecurityPolicy string
}

// SecurityHeadersMiddleware sets common security headers on every response
// that does not already carry them.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (MiddlewareFunc, error) {
	switch cfg.FrameOption {
	case "":
		cfg.FrameOption = "DENY"
	case "DENY", "SAMEORIGIN":
	default:
		return nil, ErrInvalidFrameOption
	}

	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = "strict-origin-when-cross-origin"
	}

	headers := map[string]string{
		"x-frame-options": cfg.FrameOption,
		"referrer-policy": cfg.ReferrerPolicy,
	}
	if !cfg.DisableContentTypeNosniff {
		headers["x-content-type-options"] = "nosniff"
	}
	if cfg.ContentSecurityPolicy != "" {
		headers["content-security-policy"] = cfg.ContentSecurityPolicy
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *httpwire.Request) (*httpwire.Response, error) {
			resp, err := next.ServeWire(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}

			for name, value := range headers {
				if !resp.Header.Has(name) {
					resp.Header.Set(name, value)
				}
			}
			return resp, nil
		})
	}, nil
}
