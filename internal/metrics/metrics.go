// Package metrics holds the Prometheus collectors for crawls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_crawls_total",
			Help: "Total number of finished crawls",
		},
		[]string{"type", "status"},
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_crawl_duration_seconds",
			Help:    "Crawl duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	ArticlesInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_articles_inserted_total",
			Help: "Total number of new articles stored by crawls",
		},
		[]string{"type"},
	)

	FaviconLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_favicon_lookups_total",
			Help: "Favicon resolutions by outcome",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_events_published_total",
			Help: "Crawl events published to NATS",
		},
		[]string{"status"},
	)
)
