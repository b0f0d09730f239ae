package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	PollTicks        *prometheus.CounterVec
	Reports          *prometheus.CounterVec
	ReportDuration   prometheus.Histogram
	QuoteFetches     *prometheus.CounterVec
	ActiveStreams    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdesk_upstream_requests_total",
				Help: "Requests sent to the agent orchestration service",
			},
			[]string{"op", "code"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockdesk_upstream_latency_seconds",
				Help:    "Latency of agent orchestration requests",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"op"},
		),
		PollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdesk_poll_ticks_total",
				Help: "Completion poller ticks",
			},
			[]string{"result"}, // pending|completed|failed|transient_error
		),
		Reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdesk_reports_total",
				Help: "Report workflow outcomes",
			},
			[]string{"mode", "outcome"},
		),
		ReportDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockdesk_report_duration_seconds",
				Help:    "Wall time from request to terminal state",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		QuoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdesk_quote_fetches_total",
				Help: "Per-symbol quote fetches",
			},
			[]string{"status"}, // ok|error|cached
		),
		ActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockdesk_active_streams",
				Help: "Open report progress streams",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.PollTicks,
		m.Reports,
		m.ReportDuration,
		m.QuoteFetches,
		m.ActiveStreams,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveUpstream(op, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(op, code).Inc()
	m.UpstreamLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePollTick(result string) {
	if m == nil {
		return
	}
	m.PollTicks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveReport(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(mode, outcome).Inc()
	m.ReportDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveQuote(status string) {
	if m == nil {
		return
	}
	m.QuoteFetches.WithLabelValues(status).Inc()
}

func (m *Metrics) StreamOpened() {
	if m != nil {
		m.ActiveStreams.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.ActiveStreams.Dec()
	}
}
