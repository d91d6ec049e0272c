package handlers

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/wire/httpwire"
)

// Default CORS preflight values.
var (
	DefaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	DefaultCORSHeaders = []string{"Content-Type", "Authorization"}
)

// CORSConfig configures the preflight handler.
//
// Spec references:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
type CORSConfig struct {
	// AllowedOrigins is a list of exact origin strings, "*" for wildcard,
	// or subdomain wildcard patterns like "https://*.example.com".
	// Defaults to "*".
	AllowedOrigins []string

	// AllowedMethods is advertised in Access-Control-Allow-Methods.
	// Defaults to DefaultCORSMethods.
	AllowedMethods []string

	// AllowedHeaders is advertised in Access-Control-Allow-Headers.
	// Defaults to DefaultCORSHeaders.
	AllowedHeaders []string

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Zero omits the header.
	MaxAge int

	// OptionsStatus overrides the preflight status. Defaults to 200.
	OptionsStatus httpwire.Status
}

// wildcardPattern represents a subdomain wildcard pattern split at the "*".
type wildcardPattern struct {
	prefix string
	suffix string
}

// parseOrigins normalizes AllowedOrigins to lowercase and splits them into
// exact matches and wildcard patterns. Returns an error if a pattern contains
// multiple wildcards.
func parseOrigins(origins []string) ([]string, []wildcardPattern, error) {
	var exact []string
	var patterns []wildcardPattern

	for _, o := range origins {
		if o == "*" {
			exact = append(exact, o)
			continue
		}

		lower := strings.ToLower(o)

		if strings.Contains(lower, "*") {
			parts := strings.SplitN(lower, "*", 2)
			if strings.Contains(parts[1], "*") {
				return nil, nil, errors.New("origin pattern contains multiple wildcards: " + o)
			}

			patterns = append(patterns, wildcardPattern{prefix: parts[0], suffix: parts[1]})
		} else {
			exact = append(exact, lower)
		}
	}

	return exact, patterns, nil
}

// matchOrigin reports whether originLower matches any exact origin or wildcard pattern.
func matchOrigin(originLower string, exactOrigins []string, patterns []wildcardPattern) bool {
	for _, o := range exactOrigins {
		if o == originLower {
			return true
		}
	}

	for _, wp := range patterns {
		if len(originLower) >= len(wp.prefix)+len(wp.suffix) &&
			strings.HasPrefix(originLower, wp.prefix) &&
			strings.HasSuffix(originLower, wp.suffix) {
			return true
		}
	}

	return false
}

// CORSPreflight returns a handler answering OPTIONS preflight requests.
// With a wildcard origin every response allows "*"; otherwise a matching
// Origin is reflected and a non-matching one gets no allow-origin header.
func CORSPreflight(cfg CORSConfig) (Handler, error) {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	exactOrigins, wildcardPatterns, err := parseOrigins(origins)
	if err != nil {
		return nil, err
	}
	wildcard := slices.Contains(exactOrigins, "*")

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = DefaultCORSMethods
	}
	allowMethods := strings.Join(methods, ", ")

	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = DefaultCORSHeaders
	}
	allowHeaders := strings.Join(headers, ", ")

	status := cfg.OptionsStatus
	if status == 0 {
		status = httpwire.StatusOK
	}

	return HandlerFunc(func(_ context.Context, req *httpwire.Request) (*httpwire.Response, error) {
		resp := httpwire.NewResponse(status)

		if wildcard {
			resp.WithHeader("access-control-allow-origin", "*")
		} else if origin := req.Header.Get("origin"); origin != "" {
			if matchOrigin(strings.ToLower(origin), exactOrigins, wildcardPatterns) {
				resp.WithHeader("access-control-allow-origin", origin).
					WithHeader("vary", "Origin")
			}
		}

		resp.WithHeader("access-control-allow-methods", allowMethods).
			WithHeader("access-control-allow-headers", allowHeaders)

		if cfg.MaxAge > 0 {
			resp.WithHeader("access-control-max-age", strconv.Itoa(cfg.MaxAge))
		}

		return resp.WithBody(nil), nil
	}), nil
}
