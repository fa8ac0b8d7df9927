package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/infrastructure/monitoring"
	"github.com/turtacn/itemsvc/pkg/constants"
)

// Outcome is the terminal state of an instrumented request.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// RequestRecorder receives the per-request metric transitions.
type RequestRecorder interface {
	ObserveRequest(key monitoring.MetricKey, duration time.Duration)
	AdjustInFlight(route string, delta int)
}

// SkipFunc reports whether requests on route are left out of the request metrics.
type SkipFunc func(route string) bool

// SkipOperationalRoutes excludes liveness, readiness, scrape and profiling traffic.
func SkipOperationalRoutes(route string) bool {
	switch route {
	case constants.RouteHealth, constants.RouteReady, constants.RouteMetrics:
		return true
	}
	return strings.HasPrefix(route, constants.RoutePprofPrefix)
}

// InstrumentationMiddleware counts, times and tracks every request as in flight.
//
// The in-flight increment happens before the rest of the chain runs. The matching decrement and
// the duration/status observation run in a deferred block, so they fire exactly once whether the
// handler returns, panics, times out or loses its client. A panic is recorded as a 500 and then
// re-raised for RecoveryMiddleware.
func InstrumentationMiddleware(recorder RequestRecorder, labeler *RouteLabeler, skip SkipFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := labeler.Label(c)
		c.Set(string(constants.ContextKeyRoute), route)

		if skip != nil && skip(route) {
			c.Next()
			return
		}

		method := monitoring.NormalizeMethod(c.Request.Method)
		recorder.AdjustInFlight(route, 1)
		start := time.Now()

		defer func() {
			rec := recover()
			panicked := rec != nil

			status := c.Writer.Status()
			if panicked && !c.Writer.Written() {
				status = http.StatusInternalServerError
			}

			recorder.ObserveRequest(monitoring.MetricKey{
				Method:      method,
				Route:       route,
				StatusClass: monitoring.StatusClass(status),
			}, time.Since(start))
			recorder.AdjustInFlight(route, -1)

			c.Set(string(constants.ContextKeyOutcome), classifyOutcome(c.Request.Context(), status, panicked))

			if panicked {
				panic(rec)
			}
		}()

		c.Next()
	}
}

func classifyOutcome(ctx context.Context, status int, panicked bool) Outcome {
	if panicked {
		return OutcomeFailed
	}
	switch err := ctx.Err(); {
	case stderrors.Is(err, context.DeadlineExceeded):
		return OutcomeTimedOut
	case stderrors.Is(err, context.Canceled):
		return OutcomeCancelled
	}
	if status >= http.StatusInternalServerError {
		return OutcomeFailed
	}
	return OutcomeCompleted
}
