package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhours",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Import rows by outcome (created, updated, skipped).",
	}, []string{"outcome"})
	parseFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhours",
		Subsystem: "import",
		Name:      "parse_fallbacks_total",
		Help:      "Import fields replaced by a default because they could not be parsed.",
	}, []string{"field"})
	groupsCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubhours",
		Subsystem: "batch",
		Name:      "groups_committed_total",
		Help:      "Atomic write groups committed.",
	})
	groupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubhours",
		Subsystem: "batch",
		Name:      "group_failures_total",
		Help:      "Atomic write groups that failed to commit.",
	})
	creditedHours = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhours",
		Subsystem: "session",
		Name:      "credited_hours_total",
		Help:      "Credited hours produced by check-outs, by activity kind.",
	}, []string{"kind"})
	lastCheckout = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clubhours",
		Subsystem: "session",
		Name:      "last_checkout_timestamp_seconds",
		Help:      "Unix timestamp of the most recent check-out.",
	})
)

func init() {
	prometheus.MustRegister(rowsImported, parseFallbacks, groupsCommitted, groupFailures, creditedHours, lastCheckout)
}

// RecordImportRows adds n rows with the given outcome.
func RecordImportRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	rowsImported.WithLabelValues(outcome).Add(float64(n))
}

func RecordParseFallback(field string) {
	parseFallbacks.WithLabelValues(field).Inc()
}

func RecordGroupCommitted() {
	groupsCommitted.Inc()
}

func RecordGroupFailed() {
	groupFailures.Inc()
}

// RecordCheckout tracks credited hours and the check-out watermark.
func RecordCheckout(kind string, credited float64, ts time.Time) {
	creditedHours.WithLabelValues(kind).Add(credited)
	if !ts.IsZero() {
		lastCheckout.Set(float64(ts.Unix()))
	}
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
