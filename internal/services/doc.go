// Package services implements the business logic layer between the HTTP
// handlers and the pipeline. It keeps the latest analytical result in
// memory, orchestrates pipeline runs over survey source files, and answers
// the read queries the dashboard API exposes.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate business rules
//
// # Available Services
//
//	- AnalyticsService: runs the pipeline and serves the latest result
//	- HealthService: liveness, readiness and system statistics
//
// # Error Handling
//
// Services return domain sentinel errors (ErrNoResult, ErrRunInProgress,
// ErrSourceNotFound) that handlers transform into API problem responses.
// Pipeline errors pass through untouched so the transport layer can map
// them by type.
package services
