package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/turtacn/itemsvc/internal/application/dto"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

const maxRequestIDLength = 128

// RequestIDMiddleware propagates X-Request-ID, generating one when the client sent none.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Set(string(constants.ContextKeyRequestID), requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID))
		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}

// ServiceHeaderMiddleware stamps every response with the service name.
func ServiceHeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(constants.HeaderService, constants.ServiceName)
		c.Next()
	}
}

// RecoveryMiddleware recovers from panics and answers with a generic 500.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", rec), logger.Fields{
				"path":  c.Request.URL.Path,
				"stack": string(debug.Stack()),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.SendError(c, errors.ErrInternalFault("internal server error"))
		}()
		c.Next()
	}
}

// TimeoutMiddleware bounds the request context. Handlers observe the deadline through
// c.Request.Context(); the data store call is the only place expected to block on it.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggingMiddleware logs each request once it has completed.
func LoggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logger.Fields{
			"method":     c.Request.Method,
			"route":      c.GetString(string(constants.ContextKeyRoute)),
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if outcome, ok := c.Value(string(constants.ContextKeyOutcome)).(Outcome); ok {
			fields["outcome"] = string(outcome)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn(c.Request.Context(), "Request failed", fields)
			return
		}
		log.Info(c.Request.Context(), "Request processed", fields)
	}
}
