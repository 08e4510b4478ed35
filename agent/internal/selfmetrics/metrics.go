package selfmetrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "statsrelay"

// Metrics holds the agent's self-instrumentation.
type Metrics struct {
	reg *prometheus.Registry

	scrapeFailures *prometheus.CounterVec
	published      prometheus.Counter
	batchesSent    *prometheus.CounterVec
	sendFailures   *prometheus.CounterVec
	trimmed        *prometheus.CounterVec
	backlogDepth   *prometheus.GaugeVec
}

// New creates a Metrics with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		scrapeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_failures_total",
			Help:      "Scrape cycles of one target that produced no data, by error class.",
		}, []string{"section", "class"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_published_total",
			Help:      "Metrics handed to the publisher by the collector.",
		}),
		batchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_sent_total",
			Help:      "Serialized batches written to a destination.",
		}, []string{"destination"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Failed attempts to write a batch to a destination.",
		}, []string{"destination"}),
		trimmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backlog_trimmed_metrics_total",
			Help:      "Metrics dropped from the head of a destination backlog on overflow.",
		}, []string{"destination"}),
		backlogDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_metrics",
			Help:      "Metrics currently waiting in a destination backlog.",
		}, []string{"destination"}),
	}
	m.reg.MustRegister(m.scrapeFailures, m.published, m.batchesSent, m.sendFailures, m.trimmed, m.backlogDepth)
	return m
}

// ScrapeFailed counts one failed scrape of section.
func (m *Metrics) ScrapeFailed(section, class string) {
	if m == nil {
		return
	}
	m.scrapeFailures.WithLabelValues(section, class).Inc()
}

// Published counts n metrics handed to the publisher.
func (m *Metrics) Published(n int) {
	if m == nil {
		return
	}
	m.published.Add(float64(n))
}

// BatchSent counts one delivered batch.
func (m *Metrics) BatchSent(destination string) {
	if m == nil {
		return
	}
	m.batchesSent.WithLabelValues(destination).Inc()
}

// SendFailed counts one failed send attempt.
func (m *Metrics) SendFailed(destination string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(destination).Inc()
}

// Trimmed counts n metrics lost to a backlog trim.
func (m *Metrics) Trimmed(destination string, n int) {
	if m == nil {
		return
	}
	m.trimmed.WithLabelValues(destination).Add(float64(n))
}

// Backlog records the current backlog depth of destination.
func (m *Metrics) Backlog(destination string, n int) {
	if m == nil {
		return
	}
	m.backlogDepth.WithLabelValues(destination).Set(float64(n))
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.reg
}

// ServeHTTP writes every gathered family in the Prometheus text format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	mfs, err := m.reg.Gather()
	if err != nil {
		slog.Error("selfmetrics: gather failed", "err", err)
		http.Error(w, "gather failed", http.StatusInternalServerError)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("selfmetrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}
