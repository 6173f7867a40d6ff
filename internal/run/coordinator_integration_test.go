package run_test

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bergdata/advisor-harvester/internal/config"
	"github.com/bergdata/advisor-harvester/internal/export"
	"github.com/bergdata/advisor-harvester/internal/extract"
	"github.com/bergdata/advisor-harvester/internal/fetch"
	"github.com/bergdata/advisor-harvester/internal/profile"
	"github.com/bergdata/advisor-harvester/internal/run"
	"github.com/bergdata/advisor-harvester/internal/sitemap"
)

// TestHarvestEndToEnd drives the real walker, pipeline, extractor, and CSV
// exporter against a local fixture site.
func TestHarvestEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap-index.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/profiles.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/profiles.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/vermoegensberater/jane</loc></url>
  <url><loc>%[1]s/vermoegensberater/john</loc></url>
  <url><loc>%[1]s/vermoegensberater/missing</loc></url>
  <url><loc>%[1]s/kontakt</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/vermoegensberater/jane", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head>
<script type="application/ld+json">{"@type":"Person","name":"Jane Doe","telephone":"+49 1 2 3",
"address":{"streetAddress":"Main St 1","postalCode":"12345","addressLocality":"Berlin"}}</script>
</head><body></body></html>`)
	})
	mux.HandleFunc("/vermoegensberater/john", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<span itemprop="name">John Roe</span>
<span itemprop="telephone">+49 9 8 7</span>
</body></html>`)
	})
	mux.HandleFunc("/vermoegensberater/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	outPath := filepath.Join(t.TempDir(), "profiles.csv")
	cfg := config.Config{
		Harvester: config.HarvesterConfig{
			Sitemaps:      []string{srv.URL + "/sitemap-index.xml"},
			ProfileMarker: "/vermoegensberater/",
			Output:        outPath,
			Concurrency:   2,
			UserAgent:     "harvest-e2e/1.0",
		},
		HTTP: config.HTTPConfig{TimeoutSeconds: 5, SitemapTimeoutSeconds: 5},
	}

	logger := zaptest.NewLogger(t)
	fetcherFor := func(timeout time.Duration) fetch.FetcherFactory {
		return func() fetch.Fetcher {
			return fetch.NewHTTPFetcher(fetch.ClientConfig{
				UserAgent: cfg.Harvester.UserAgent,
				Timeout:   timeout,
			})
		}
	}

	walker := sitemap.NewWalker(fetcherFor(cfg.SitemapTimeout())(), cfg.Harvester.ProfileMarker, logger)
	pipeline := fetch.NewPipeline(
		fetch.PipelineConfig{Concurrency: cfg.Harvester.Concurrency},
		fetcherFor(cfg.RequestTimeout()),
		extract.Parse,
		logger,
	)
	coordinator := run.New(cfg, walker, pipeline, export.ForPath(outPath), logger)

	require.NoError(t, coordinator.Run(context.Background()))

	file, err := os.Open(outPath)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus the two reachable profiles")
	require.Equal(t, profile.Headers(), rows[0])

	byName := make(map[string][]string)
	for _, row := range rows[1:] {
		byName[row[0]] = row
	}
	require.Equal(t, []string{
		"Jane Doe", "+49 1 2 3", "", "12345", "Berlin", "Main St 1", "",
		srv.URL + "/vermoegensberater/jane",
	}, byName["Jane Doe"])
	require.Equal(t, []string{
		"John Roe", "+49 9 8 7", "", "", "", "", "",
		srv.URL + "/vermoegensberater/john",
	}, byName["John Roe"])
}
