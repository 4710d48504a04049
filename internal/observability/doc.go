// Package observability provides structured logging and metrics for VoiceMe.
//
// This package implements:
//   - zap logger construction (json or console)
//   - Request-scoped loggers carried on the context
//   - Prometheus collectors for provider attempts and orchestrations
package observability
