package tracing

import (
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/dashboard/today-cases"),
		attribute.String("card_number", "4970****1234"),
		attribute.String("dashboard.category", "received_chargeback"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "card_number" {
			t.Fatalf("expected card_number to be dropped")
		}
	}
}

func TestSafeErrorKeepsOutermostSegment(t *testing.T) {
	err := fmt.Errorf("storage_unavailable: %w", errors.New("pq: relation does not exist"))
	if got := SafeError(err).Error(); got != "storage_unavailable" {
		t.Fatalf("expected storage_unavailable, got %q", got)
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestRouteAttributes(t *testing.T) {
	cases := map[string]attribute.KeyValue{
		"/api/dashboard/top-issuers":         attribute.String("dashboard.operation", "top-issuers"),
		"/api/received-chargebacks/:id/link": attribute.String("dashboard.category", "received-chargebacks"),
		"/api/issued-representments":         attribute.String("dashboard.category", "issued-representments"),
	}
	for route, want := range cases {
		got := RouteAttributes(route)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s: expected %v, got %v", route, want, got)
		}
	}
	for _, route := range []string{"/health", "/api/audit-logs", "/auth/login", "unknown"} {
		if got := RouteAttributes(route); len(got) != 0 {
			t.Fatalf("%s: expected no attributes, got %v", route, got)
		}
	}
}
