// Package app provides application initialization and lifecycle management
// for the BRFSS analytics service. It handles the orchestration of all major
// components including configuration loading, service initialization, and
// graceful shutdown procedures.
//
// # Architecture
//
// The app package follows a dependency injection pattern where all components
// are wired together at startup. This ensures loose coupling and testability.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Start the WebSocket hub
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//	7. Set up graceful shutdown handlers
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed
//	- WebSocket connections are closed cleanly
//	- Telemetry providers are flushed
//
// # Middleware Stack
//
// Requests flow through RequestID and RealIP first, then the full group
// adds tracing, business metrics, structured logging, panic recovery,
// security headers, CORS and rate limiting. The /ws route takes only the
// minimal stack so the upgrade sees an unwrapped ResponseWriter, and
// /metrics is served outside the group entirely.
package app
