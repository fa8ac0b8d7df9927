package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/infrastructure/monitoring"
	"github.com/turtacn/itemsvc/pkg/constants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request, named after the route label so span names
// stay as bounded as the metric labels. Incoming trace context is honoured.
// TracingMiddleware 为每个请求启动一个服务端 span，span 名称使用路由标签。
func TracingMiddleware(tracer trace.Tracer, labeler *RouteLabeler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := labeler.Label(c)
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if traceID := monitoring.TraceID(ctx); traceID != "" {
			ctx = context.WithValue(ctx, constants.ContextKeyTraceID, traceID)
			c.Set(string(constants.ContextKeyTraceID), traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
			attribute.String("client.address", c.ClientIP()),
		)
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
