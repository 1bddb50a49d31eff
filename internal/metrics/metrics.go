package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsTotal counts finished print jobs by kind (pdf, image,
	// unsupported) and outcome (ok, failed, rejected).
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printagent",
			Name:      "jobs_total",
			Help:      "Total print jobs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// PagesPrinted counts pages that reached the backend successfully.
	PagesPrinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "printagent",
			Name:      "pages_printed_total",
			Help:      "Total pages submitted to a printer successfully",
		},
	)

	listingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "printagent",
			Name:      "printer_listing_duration_seconds",
			Help:      "Duration of printer directory queries",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "printagent",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(JobsTotal, PagesPrinted, listingDuration, httpRequests)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveListing records the duration of one printer directory query.
func ObserveListing(dur time.Duration) { listingDuration.Observe(dur.Seconds()) }

// IncHTTP counts one served request.
func IncHTTP(route, code string) { httpRequests.WithLabelValues(route, code).Inc() }
