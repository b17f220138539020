package tracing

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

var allowedAttributeKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"dashboard.operation":     {},
	"dashboard.category":      {},
	"dashboard.date":          {},
	"dashboard.year":          {},
	"dashboard.mode":          {},
	"dashboard.limit":         {},
	"db.table":                {},
	"actor.type":              {},
}

// SafeAttributes keeps only attributes known to carry no cardholder data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	safe := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedAttributeKeys[attr.Key]; ok {
			safe = append(safe, attr)
		}
	}
	return safe
}

// SafeError returns an error suitable for span recording. Only the outermost
// message segment is kept so wrapped driver errors do not leak SQL values.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.Index(msg, ":"); idx > 0 {
		msg = msg[:idx]
	}
	return errors.New(strings.TrimSpace(msg))
}
