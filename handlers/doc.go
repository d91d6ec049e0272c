// Package handlers provides the plain HTTP side of the wire server: a
// method dispatcher and the middleware around it.
//
// # Dispatcher
//
// Dispatcher routes by method only. GET serves files from a static root,
// POST echoes the body as JSON, OPTIONS answers a CORS preflight and any
// other method receives 405.
//
//	d, err := handlers.NewDispatcher(handlers.DispatcherConfig{
//	    StaticDir: "./static",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h := handlers.Chain(d,
//	    handlers.RecoveryMiddleware(handlers.RecoveryConfig{Logger: logger}),
//	    handlers.RequestIDMiddleware(handlers.RequestIDConfig{}),
//	)
//
// # Static Files
//
// StaticFiles resolves the request path under the root, follows symlinks and
// rejects any file that ends up outside the root with 400 "Invalid path".
// Missing files and directories yield 404 "File not found".
//
// # Request ID Middleware
//
// RequestIDMiddleware sets an "x-request-id" response header, generating a
// UUID unless a trusted incoming value is present. The ID is also stored in
// the request context (see RequestIDFromContext).
package handlers
