package fetch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bergdata/advisor-harvester/internal/metrics"
	"github.com/bergdata/advisor-harvester/internal/profile"
)

// progressInterval controls how often the pipeline reports completion counts.
const progressInterval = 100

// FetcherFactory builds one Fetcher per worker. Workers never share a
// fetcher, so connection state stays confined to the owning worker.
type FetcherFactory func() Fetcher

// ParseFunc turns a fetched page body into a record.
type ParseFunc func(pageHTML string, sourceURL string) profile.Record

// PipelineConfig controls worker fan-out and pacing.
type PipelineConfig struct {
	Concurrency int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// Pipeline fans a URL list out to a fixed pool of workers. Each worker
// paces itself with a uniform random delay, fetches with its own client,
// runs extraction, and appends the record to the shared result collection.
type Pipeline struct {
	cfg        PipelineConfig
	newFetcher FetcherFactory
	parse      ParseFunc
	logger     *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cfg PipelineConfig, factory FetcherFactory, parse ParseFunc, logger *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		cfg:        cfg,
		newFetcher: factory,
		parse:      parse,
		logger:     logger,
	}
}

// Run processes every URL and returns the records in completion order.
// Failed fetches yield no record and never abort sibling workers.
func (p *Pipeline) Run(ctx context.Context, urls []string) []profile.Record {
	jobs := make(chan string)

	var (
		mu        sync.Mutex
		records   []profile.Record
		completed int
	)

	collect := func(rec profile.Record) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, rec)
	}
	markDone := func() {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if completed%progressInterval == 0 {
			p.logger.Info("pages processed", zap.Int("count", completed))
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			p.runWorker(ctx, index, jobs, collect, markDone)
		}(i)
	}

	for _, url := range urls {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return records
		case jobs <- url:
		}
	}
	close(jobs)
	wg.Wait()
	return records
}

func (p *Pipeline) runWorker(
	ctx context.Context,
	index int,
	jobs <-chan string,
	collect func(profile.Record),
	markDone func(),
) {
	fetcher := p.newFetcher()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(index)))
	logger := p.logger.With(zap.Int("worker", index))

	for url := range jobs {
		if ctx.Err() != nil {
			return
		}
		if rec, ok := p.processURL(ctx, fetcher, rng, logger, url); ok {
			collect(rec)
		}
		markDone()
	}
}

// processURL is the per-URL unit of work. Every failure, including a panic
// inside extraction, is contained here so one bad page never takes down the
// pool or loses other workers' results.
func (p *Pipeline) processURL(
	ctx context.Context,
	fetcher Fetcher,
	rng *rand.Rand,
	logger *zap.Logger,
	url string,
) (rec profile.Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FetchErrors.Inc()
			logger.Warn("unexpected failure while processing page",
				zap.String("url", url),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	pause(ctx, p.jitter(rng))
	if ctx.Err() != nil {
		return profile.Record{}, false
	}

	page, err := fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.FetchErrors.Inc()
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			logger.Warn("http error response",
				zap.String("url", url),
				zap.Int("status_code", statusErr.StatusCode),
			)
		} else {
			logger.Warn("network failure", zap.String("url", url), zap.Error(err))
		}
		return profile.Record{}, false
	}
	metrics.PagesFetched.Inc()

	rec = p.parse(string(page.Body), url)
	metrics.RecordsExtracted.Inc()
	if rec.Empty() {
		metrics.EmptyRecords.Inc()
		logger.Debug("empty profile", zap.String("url", url))
	}
	return rec, true
}

// jitter draws a pacing delay uniformly from [MinDelay, MaxDelay]. A zero
// MaxDelay disables pacing entirely.
func (p *Pipeline) jitter(rng *rand.Rand) time.Duration {
	if p.cfg.MaxDelay <= 0 {
		return 0
	}
	span := p.cfg.MaxDelay - p.cfg.MinDelay
	if span <= 0 {
		return p.cfg.MinDelay
	}
	return p.cfg.MinDelay + time.Duration(rng.Int63n(int64(span)+1))
}
