package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRegistryExposesCounters(t *testing.T) {
	r := New("salon-service")
	r.BookingsTotal.WithLabelValues("create").Inc()
	r.BookingConflicts.Inc()
	r.ObserveHTTP(http.MethodPost, "POST /api/v1/bookings", http.StatusCreated, 15*time.Millisecond)

	rw := httptest.NewRecorder()
	r.Handler().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rw.Body.String()
	for _, want := range []string{`salon_booking_operations_total{operation="create",service="salon-service"} 1`, "salon_booking_conflicts_total", "http_request_duration_seconds_bucket", `service="salon-service"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
