// Package observability provides logging, metrics, and context helpers for
// the research analytics service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for store requests, pipeline stages, use cases, and HTTP
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("use_case", "field_overview").Msg("request served")
//
// Derive a request-scoped logger:
//
//	logger = observability.FromContext(ctx, logger)
//
// # Metrics
//
// Initialize metrics once per process:
//
//	metrics := observability.NewMetrics("research_analytics")
//	metrics.RecordUseCase("country_fields", elapsed, err)
//
// *Metrics satisfies store.Recorder and pipeline.Recorder.
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: chi request identifier
//   - correlation_id: caller supplied or generated correlation identifier
//   - use_case: analytics use case name
//   - backend: store backend (postgres, postgrest)
//   - table: store table
//   - trace_id, span_id: OpenTelemetry identifiers
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
