// Package metrics declares the Prometheus collectors of the CRM service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm"

// Metrics holds every collector the service updates.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ImportRows      *prometheus.CounterVec
	ActivityWrites  *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	RateLimited     prometheus.Counter
}

// New registers the collectors on reg. Tests pass a fresh registry so the
// default one is never registered twice.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "import_rows_total",
			Help:      "Spreadsheet rows processed by the lead import, by result.",
		}, []string{"result"}), // result: imported, failed
		ActivityWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "writes_total",
			Help:      "Activity log writes by result.",
		}, []string{"result"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "events_published_total",
			Help:      "activity.recorded events sent to the broker, by result.",
		}, []string{"result"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Noop returns collectors registered nowhere, for callers that do not
// export metrics.
func Noop() *Metrics { return New(prometheus.NewRegistry()) }
