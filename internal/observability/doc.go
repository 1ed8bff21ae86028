// Package observability provides logging and tracing for the session gateway.
//
// Logging is built on zap behind the Logger interface so packages accept a
// Logger and tests pass NopLogger(). Tracing installs an OpenTelemetry tracer
// provider with an optional OTLP gRPC exporter; the session repositories
// start their spans from the global provider.
package observability
