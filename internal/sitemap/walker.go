// Package sitemap expands a sitemap tree into the flat set of profile URLs
// it references, guarding against reference cycles.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/bergdata/advisor-harvester/internal/fetch"
	"github.com/bergdata/advisor-harvester/internal/metrics"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Walker recursively expands sitemap documents. Expansion runs in a single
// goroutine; sitemap fetches are few and need no parallelism.
type Walker struct {
	fetcher fetch.Fetcher
	marker  string
	logger  *zap.Logger
}

// NewWalker constructs a Walker. marker is the URL-path substring that
// identifies an advisor profile page.
func NewWalker(fetcher fetch.Fetcher, marker string, logger *zap.Logger) *Walker {
	return &Walker{
		fetcher: fetcher,
		marker:  marker,
		logger:  logger,
	}
}

// Expand walks every seed sitemap and returns the union of discovered
// profile URLs, deduplicated and lexicographically sorted. A failure on one
// seed is logged and does not stop expansion of the remaining seeds.
func (w *Walker) Expand(ctx context.Context, seeds []string) []string {
	seen := make(map[string]struct{})
	found := make(map[string]struct{})

	for _, seed := range seeds {
		if err := w.expand(ctx, seed, seen, found); err != nil {
			metrics.SitemapErrors.Inc()
			w.logger.Warn("sitemap expansion failed", zap.String("url", seed), zap.Error(err))
		}
	}

	urls := make([]string, 0, len(found))
	for url := range found {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	metrics.ProfileURLsDiscovered.Add(float64(len(urls)))
	return urls
}

func (w *Walker) expand(ctx context.Context, url string, seen, found map[string]struct{}) error {
	if _, visited := seen[url]; visited {
		// Cycle guard: a sitemap referencing itself, or two sitemaps
		// referencing each other, is skipped rather than re-fetched.
		return nil
	}
	seen[url] = struct{}{}

	w.logger.Debug("fetching sitemap", zap.String("url", url))
	page, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch sitemap: %w", err)
	}

	body, err := decodeBody(page)
	if err != nil {
		return fmt.Errorf("decode sitemap body: %w", err)
	}
	metrics.SitemapsFetched.Inc()

	locs, err := locValues(body)
	if err != nil {
		// Malformed XML is a soft failure: this document contributes
		// nothing, siblings keep being processed.
		metrics.SitemapErrors.Inc()
		w.logger.Warn("unparsable sitemap", zap.String("url", url), zap.Error(err))
		return nil
	}

	for _, loc := range locs {
		switch {
		case isSitemapRef(loc):
			if err := w.expand(ctx, loc, seen, found); err != nil {
				return err
			}
		case strings.Contains(strings.ToLower(loc), strings.ToLower(w.marker)):
			found[loc] = struct{}{}
		}
	}
	return nil
}

// decodeBody gunzips the payload when the resource was served compressed,
// detected by URL suffix or by the gzip magic bytes.
func decodeBody(page fetch.Page) ([]byte, error) {
	compressed := strings.HasSuffix(strings.ToLower(page.URL), ".gz") ||
		strings.EqualFold(page.Header.Get("Content-Encoding"), "gzip") ||
		bytes.HasPrefix(page.Body, gzipMagic)
	if !compressed {
		return page.Body, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer reader.Close() //nolint:errcheck // read side only

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	return data, nil
}

// locValues extracts every <loc> leaf value in the document, tolerating both
// namespaced and non-namespaced sitemap markup.
func locValues(data []byte) ([]string, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap xml: %w", err)
	}

	var locs []string
	for _, node := range xmlquery.Find(doc, "//loc") {
		if text := strings.TrimSpace(node.InnerText()); text != "" {
			locs = append(locs, text)
		}
	}
	return locs, nil
}

// isSitemapRef reports whether a location points at a nested sitemap.
func isSitemapRef(loc string) bool {
	lowered := strings.ToLower(loc)
	return strings.HasSuffix(lowered, ".xml") || strings.HasSuffix(lowered, ".xml.gz")
}
