// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a private prometheus registry so tests can build as many as
// they like without colliding on the default one.
type Registry struct {
	reg *prometheus.Registry

	HTTPDuration        *prometheus.HistogramVec
	BookingsTotal       *prometheus.CounterVec
	BookingConflicts    prometheus.Counter
	NotificationsTotal  *prometheus.CounterVec
	NotificationDropped prometheus.Counter
}

func New(service string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	constLabels := prometheus.Labels{"service": service}

	r := &Registry{
		reg: reg,
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by route and status.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salon_booking_operations_total",
			Help:        "Successful booking mutations by operation.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		BookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salon_booking_conflicts_total",
			Help:        "Create or reschedule attempts rejected because of an overlap.",
			ConstLabels: constLabels,
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salon_notifications_total",
			Help:        "Notification dispatch attempts by event type and result.",
			ConstLabels: constLabels,
		}, []string{"event_type", "result"}),
		NotificationDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salon_notifications_dropped_total",
			Help:        "Notifications dropped because the dispatch queue was full.",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(r.HTTPDuration, r.BookingsTotal, r.BookingConflicts, r.NotificationsTotal, r.NotificationDropped)
	return r
}

// ObserveHTTP matches httpx.RequestObserver.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
