package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/disputeops/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const dashboardPrefix = "/api/dashboard/"

// GinMiddleware opens a server span per request and names it after the
// matched route once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("disputeops/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		ctx = withRequestBaggage(ctx, span)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, RouteAttributes(route)...)
		if actorType, _ := obscontext.ActorFromContext(c.Request.Context()); actorType != "" {
			attrs = append(attrs, attribute.String("actor.type", actorType))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

// RouteAttributes labels a route with the dashboard operation or the record
// category it serves. Other routes carry no extra attributes.
func RouteAttributes(route string) []attribute.KeyValue {
	if op, ok := strings.CutPrefix(route, dashboardPrefix); ok && op != "" {
		return []attribute.KeyValue{attribute.String("dashboard.operation", op)}
	}
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok || rest == "" || strings.HasPrefix(rest, "audit-logs") {
		return nil
	}
	category, _, _ := strings.Cut(rest, "/")
	return []attribute.KeyValue{attribute.String("dashboard.category", category)}
}

func withRequestBaggage(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))

	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
