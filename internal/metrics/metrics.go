// Package metrics exposes Prometheus collectors for the crawler pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registryPagesTotal    prometheus.Counter
	recordsEmittedTotal   prometheus.Counter
	recordsSkippedTotal   prometheus.Counter
	recordsDroppedTotal   *prometheus.CounterVec
	dimensionInsertsTotal *prometheus.CounterVec
	crawlStopsTotal       *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		registryPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "insider_registry_pages_fetched_total",
				Help: "Total number of registry pages fetched.",
			},
		)

		recordsEmittedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "insider_records_emitted_total",
				Help: "Total number of canonical records written downstream.",
			},
		)

		recordsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "insider_records_skipped_total",
				Help: "Total number of rows skipped as outside the crawl window.",
			},
		)

		recordsDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insider_records_dropped_total",
				Help: "Total number of rows dropped, labeled by failing stage.",
			},
			[]string{"stage"},
		)

		dimensionInsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insider_dimension_inserts_total",
				Help: "Total number of new dimension rows, labeled by table.",
			},
			[]string{"table"},
		)

		crawlStopsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insider_crawl_stops_total",
				Help: "Total number of clean crawl terminations, labeled by reason.",
			},
			[]string{"reason"},
		)
	})
}

// PageFetched counts one fetched registry page.
func PageFetched() {
	Init()
	registryPagesTotal.Inc()
}

// RecordEmitted counts one record written downstream.
func RecordEmitted() {
	Init()
	recordsEmittedTotal.Inc()
}

// RecordSkipped counts one row outside the crawl window.
func RecordSkipped() {
	Init()
	recordsSkippedTotal.Inc()
}

// RecordDropped counts one dropped row for the given pipeline stage.
func RecordDropped(stage string) {
	Init()
	recordsDroppedTotal.WithLabelValues(stage).Inc()
}

// DimensionInsert counts one new dimension row for the given table.
func DimensionInsert(table string) {
	Init()
	dimensionInsertsTotal.WithLabelValues(table).Inc()
}

// CrawlStopped counts one clean termination for the given reason.
func CrawlStopped(reason string) {
	Init()
	crawlStopsTotal.WithLabelValues(reason).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
