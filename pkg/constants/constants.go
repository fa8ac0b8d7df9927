// Package constants defines system-wide constants for the item service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ServiceName identifies the service in logs, traces and the X-Service response header.
const ServiceName = "itemsvc"

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode is the machine-readable error code returned in error response bodies
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates malformed client input (ValidationError)
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeNotFound indicates that no matching record exists
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeServiceUnavailable indicates that the data store is unreachable or timed out
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"

	// ErrCodeInternal indicates an unexpected handler fault
	ErrCodeInternal ErrorCode = "internal_error"

	// ErrCodeInvalidConfig indicates invalid startup configuration
	ErrCodeInvalidConfig ErrorCode = "invalid_config"
)

// ================================================================================
// HTTP Constants
// ================================================================================

const (
	// HeaderRequestID carries the per-request correlation identifier
	HeaderRequestID = "X-Request-ID"

	// HeaderService names the service that produced a response
	HeaderService = "X-Service"
)

// Route templates registered with the router.
const (
	RouteHealth  = "/health"
	RouteReady   = "/ready"
	RouteMetrics = "/metrics"
	RouteItem    = "/api/item/:id"

	// RoutePprofPrefix prefixes the optional profiling routes
	RoutePprofPrefix = "/debug/pprof"
)

// ================================================================================
// Metric Constants
// ================================================================================

const (
	MetricRequestsTotal    = "http_requests_received_total"
	MetricRequestDuration  = "http_request_duration_seconds"
	MetricRequestsInFlight = "http_requests_in_progress"

	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"

	// UnmatchedRouteLabel is reported for requests that did not match any registered route
	UnmatchedRouteLabel = "unmatched"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is used for values stored on request contexts
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyOutcome   ContextKey = "request_outcome"
	ContextKeyRoute     ContextKey = "route_label"
)

// ================================================================================
// Default Values
// ================================================================================

const (
	DefaultHTTPPort        = 8080
	DefaultRequestTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPoolMaxConns    = 10
	DefaultConnectTimeout  = 5 * time.Second
	DefaultAcquireTimeout  = 2 * time.Second
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxConnIdleTime = 30 * time.Second
	DefaultPingTimeout     = 2 * time.Second
)
