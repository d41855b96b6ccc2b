// Package backend provides the Pinlens engagement API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/engagement: Optimistic engagement engine (cache, dedup, poller)
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Bearer token verification
// - internal/store: Authoritative aggregate store for counts and reactions
// - internal/pubsub: Redis pub/sub for invalidation and notification fan-out
// - internal/websocket: WebSocket server for real-time updates
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (logging, metrics, tracing)
// - internal/metrics: Prometheus metrics
// - internal/telemetry: OpenTelemetry tracing setup

// See the individual package documentation for detailed API reference.
package backend
