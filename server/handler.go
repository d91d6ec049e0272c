package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vitalvas/wire/config"
	"github.com/vitalvas/wire/handlers"
)

// NewHandler builds the default request handler for cfg: the method
// dispatcher wrapped with panic recovery, request IDs, server
// identification, security headers and access logging.
func NewHandler(cfg *config.Config, logger *zap.Logger) (handlers.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dispatcher, err := handlers.NewDispatcher(handlers.DispatcherConfig{
		StaticDir: cfg.StaticDir,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	serverMW, err := handlers.ServerMiddleware(handlers.ServerConfig{
		HostnameEnv: []string{"WIRE_HOSTNAME", "HOSTNAME"},
	})
	if err != nil {
		return nil, fmt.Errorf("server middleware: %w", err)
	}

	securityMW, err := handlers.SecurityHeadersMiddleware(handlers.SecurityHeadersConfig{})
	if err != nil {
		return nil, fmt.Errorf("security headers middleware: %w", err)
	}

	requestID := handlers.RequestIDConfig{TrustIncoming: cfg.TrustRequestID}
	if cfg.RequestIDVersion == "v7" {
		requestID.GenerateFunc = handlers.GenerateUUIDv7
	}

	return handlers.Chain(dispatcher,
		handlers.RecoveryMiddleware(handlers.RecoveryConfig{Logger: logger}),
		handlers.RequestIDMiddleware(requestID),
		serverMW,
		securityMW,
		handlers.AccessLogMiddleware(handlers.AccessLogConfig{Logger: logger}),
	), nil
}
