package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bergdata/advisor-harvester/internal/profile"
)

func testFactory(timeout time.Duration) FetcherFactory {
	return func() Fetcher {
		return NewHTTPFetcher(ClientConfig{UserAgent: "pipeline-test/1.0", Timeout: timeout})
	}
}

// nameParse derives a record whose name is the page body; good enough to
// trace which URLs produced results.
func nameParse(pageHTML, sourceURL string) profile.Record {
	rec := profile.New(sourceURL)
	rec.Name = strings.TrimSpace(pageHTML)
	return rec
}

func TestPipelinePartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var urls []string
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("/advisor-%d", i)
		urls = append(urls, srv.URL+path)
		failing := i < 3
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			if failing {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, "ok")
		})
	}

	pipeline := NewPipeline(
		PipelineConfig{Concurrency: 4},
		testFactory(5*time.Second),
		nameParse,
		zaptest.NewLogger(t),
	)
	records := pipeline.Run(context.Background(), urls)

	require.Len(t, records, 7, "3 of 10 URLs fail, 7 records remain")
	seen := make(map[string]int)
	for _, rec := range records {
		seen[rec.ProfileURL]++
	}
	for url, n := range seen {
		require.Equal(t, 1, n, "url %s must appear exactly once", url)
	}
}

func TestPipelineEmptyRecordsRetained(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	emptyParse := func(_, sourceURL string) profile.Record {
		return profile.New(sourceURL)
	}
	pipeline := NewPipeline(
		PipelineConfig{Concurrency: 2},
		testFactory(5*time.Second),
		emptyParse,
		zaptest.NewLogger(t),
	)
	records := pipeline.Run(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"})

	require.Len(t, records, 2, "sparse records are collected, not filtered")
	for _, rec := range records {
		require.True(t, rec.Empty())
	}
}

func TestPipelineContainsPanics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Path)
	}))
	defer srv.Close()

	parse := func(pageHTML, sourceURL string) profile.Record {
		if strings.Contains(sourceURL, "boom") {
			panic("extractor exploded")
		}
		return nameParse(pageHTML, sourceURL)
	}
	pipeline := NewPipeline(
		PipelineConfig{Concurrency: 2},
		testFactory(5*time.Second),
		parse,
		zaptest.NewLogger(t),
	)
	records := pipeline.Run(context.Background(), []string{
		srv.URL + "/ok-1",
		srv.URL + "/boom",
		srv.URL + "/ok-2",
	})

	require.Len(t, records, 2, "a panic on one URL must not lose sibling results")
	var names []string
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"/ok-1", "/ok-2"}, names)
}

func TestPipelineSkipsPacingWhenMaxDelayZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	var urls []string
	for i := 0; i < 20; i++ {
		urls = append(urls, fmt.Sprintf("%s/p-%d", srv.URL, i))
	}

	pipeline := NewPipeline(
		// MinDelay alone must not introduce pacing while MaxDelay is 0.
		PipelineConfig{Concurrency: 4, MinDelay: 2 * time.Second},
		testFactory(5*time.Second),
		nameParse,
		zaptest.NewLogger(t),
	)

	start := time.Now()
	records := pipeline.Run(context.Background(), urls)
	require.Len(t, records, 20)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestPipelineStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var urls []string
	for i := 0; i < 50; i++ {
		urls = append(urls, fmt.Sprintf("%s/p-%d", srv.URL, i))
	}
	pipeline := NewPipeline(
		PipelineConfig{Concurrency: 2},
		testFactory(5*time.Second),
		nameParse,
		zaptest.NewLogger(t),
	)

	records := pipeline.Run(ctx, urls)
	require.Empty(t, records, "a canceled context yields no records")
}

func TestJitterBounds(t *testing.T) {
	pipeline := NewPipeline(
		PipelineConfig{Concurrency: 1, MinDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond},
		nil,
		nil,
		zaptest.NewLogger(t),
	)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		d := pipeline.jitter(rng)
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 20*time.Millisecond)
	}
}
