// Package metrics exposes Prometheus counters for the harvest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SitemapsFetched tracks the number of sitemap documents downloaded and decoded.
	SitemapsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_sitemaps_fetched_total",
		Help: "The total number of sitemap documents fetched.",
	})
	// SitemapErrors tracks sitemaps that failed to download or parse.
	SitemapErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_sitemap_errors_total",
		Help: "The total number of sitemap fetch or parse failures.",
	})
	// ProfileURLsDiscovered tracks profile URLs found during sitemap expansion.
	ProfileURLsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_profile_urls_discovered_total",
		Help: "The total number of profile URLs discovered in sitemaps.",
	})
	// PagesFetched tracks profile pages fetched with a 2xx response.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_pages_fetched_total",
		Help: "The total number of profile pages fetched successfully.",
	})
	// FetchErrors tracks profile page fetches that yielded no record.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_errors_total",
		Help: "The total number of failed profile page fetches.",
	})
	// RecordsExtracted tracks records handed to the result collection.
	RecordsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_extracted_total",
		Help: "The total number of records extracted from profile pages.",
	})
	// EmptyRecords tracks records with no name, phone, or email.
	EmptyRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_empty_records_total",
		Help: "The total number of extracted records carrying no contact signal.",
	})
)
