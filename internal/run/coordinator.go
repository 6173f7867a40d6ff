// Package run wires sitemap expansion, the fetch pipeline, and the exporter
// into one harvest run.
package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bergdata/advisor-harvester/internal/config"
	"github.com/bergdata/advisor-harvester/internal/profile"
)

// ErrNoProfiles is returned when sitemap expansion finds no profile URLs.
var ErrNoProfiles = errors.New("no profile URLs discovered")

// ErrNoRecords is returned when no page yielded a record.
var ErrNoRecords = errors.New("no records were extracted")

// Expander flattens seed sitemaps into profile URLs.
type Expander interface {
	Expand(ctx context.Context, seeds []string) []string
}

// Runner fetches and parses a URL list.
type Runner interface {
	Run(ctx context.Context, urls []string) []profile.Record
}

// Exporter persists the final record collection.
type Exporter interface {
	Export(records []profile.Record, path string) error
}

// Coordinator drives one harvest run end to end.
type Coordinator struct {
	cfg      config.Config
	walker   Expander
	pipeline Runner
	exporter Exporter
	logger   *zap.Logger
}

// New constructs a Coordinator.
func New(cfg config.Config, walker Expander, pipeline Runner, exporter Exporter, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		walker:   walker,
		pipeline: pipeline,
		exporter: exporter,
		logger:   logger,
	}
}

// Run expands the seeds, fetches every profile page, and exports whatever
// records were recovered. Partial fetch failure still produces an output
// file; only an entirely empty run aborts without an artifact.
func (c *Coordinator) Run(ctx context.Context) error {
	logger := c.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("starting harvest",
		zap.Strings("sitemaps", c.cfg.Harvester.Sitemaps),
		zap.Int("concurrency", c.cfg.Harvester.Concurrency),
	)

	urls := c.walker.Expand(ctx, c.cfg.Harvester.Sitemaps)
	logger.Info("profile URLs discovered", zap.Int("count", len(urls)))

	if limit := c.cfg.Harvester.Limit; limit > 0 && len(urls) > limit {
		urls = urls[:limit]
		logger.Info("applying profile limit", zap.Int("limit", limit))
	}

	if len(urls) == 0 {
		logger.Error("no profile URLs found; check the configured sitemaps")
		return ErrNoProfiles
	}

	records := c.pipeline.Run(ctx, urls)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Error("no records could be extracted; check the logs for fetch failures")
		return ErrNoRecords
	}

	empty := 0
	for _, rec := range records {
		if rec.Empty() {
			empty++
		}
	}
	logger.Info("harvest complete",
		zap.Int("records", len(records)),
		zap.Int("empty_records", empty),
		zap.Int("failed_pages", len(urls)-len(records)),
	)

	if err := c.exporter.Export(records, c.cfg.Harvester.Output); err != nil {
		return err
	}
	logger.Info("output written", zap.String("path", c.cfg.Harvester.Output))
	return nil
}
