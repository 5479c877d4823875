// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the pipeline records into.
type Metrics struct {
	PagesFetched   *prometheus.CounterVec
	PageErrors     prometheus.Counter
	SitesCompleted *prometheus.CounterVec
	ActiveCrawls   prometheus.Gauge
	PagesAccepted  prometheus.Counter
	registry       *prometheus.Registry
}

// New registers all collectors on the given registry. Pass a fresh
// prometheus.NewRegistry in tests to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationscout",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, labelled by HTTP status class.",
		}, []string{"status_class"}),
		PageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "locationscout",
			Name:      "page_errors_total",
			Help:      "Pages that failed to render.",
		}),
		SitesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationscout",
			Name:      "sites_completed_total",
			Help:      "Sites finished, labelled by outcome.",
		}, []string{"outcome"}),
		ActiveCrawls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "locationscout",
			Name:      "active_crawls",
			Help:      "Sites currently being crawled.",
		}),
		PagesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "locationscout",
			Name:      "pages_accepted_total",
			Help:      "Pages the classifier accepted as location pages.",
		}),
		registry: reg,
	}
}

// Registry returns the registry the collectors are bound to, for wiring
// into an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePage records one fetched page by status class ("2xx", "4xx", ...).
func (m *Metrics) ObservePage(status int) {
	if m == nil {
		return
	}
	class := "unknown"
	if status >= 100 && status < 600 {
		class = strconv.Itoa(status/100) + "xx"
	}
	m.PagesFetched.WithLabelValues(class).Inc()
}

// ObservePageError records one failed fetch.
func (m *Metrics) ObservePageError() {
	if m == nil {
		return
	}
	m.PageErrors.Inc()
}

// ObserveSite records one finished site by outcome.
func (m *Metrics) ObserveSite(outcome string) {
	if m == nil {
		return
	}
	m.SitesCompleted.WithLabelValues(outcome).Inc()
}

// CrawlStarted and CrawlFinished bracket a site crawl for the gauge.
func (m *Metrics) CrawlStarted() {
	if m == nil {
		return
	}
	m.ActiveCrawls.Inc()
}

func (m *Metrics) CrawlFinished() {
	if m == nil {
		return
	}
	m.ActiveCrawls.Dec()
}

// ObserveAccepted records classifier-accepted pages.
func (m *Metrics) ObserveAccepted(n int) {
	if m == nil {
		return
	}
	m.PagesAccepted.Add(float64(n))
}
