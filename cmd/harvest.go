package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bergdata/advisor-harvester/internal/api"
	"github.com/bergdata/advisor-harvester/internal/config"
	"github.com/bergdata/advisor-harvester/internal/export"
	"github.com/bergdata/advisor-harvester/internal/extract"
	"github.com/bergdata/advisor-harvester/internal/fetch"
	"github.com/bergdata/advisor-harvester/internal/logging"
	"github.com/bergdata/advisor-harvester/internal/run"
	"github.com/bergdata/advisor-harvester/internal/sitemap"
)

// newHarvestCmd creates and configures the 'harvest' subcommand, which runs
// one full discover-fetch-extract-export cycle.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs a full harvest of advisor profiles",
		Long: `Expands the configured seed sitemaps into profile URLs, downloads every
profile page through a bounded worker pool with jittered pacing, extracts
one contact record per page, and writes the result to the output file.`,

		RunE: runHarvestCommand,
	}

	flags := cmd.Flags()
	flags.StringArray("sitemap", nil, "seed sitemap URL (repeatable)")
	flags.String("output", "", "output file path (.xlsx or .csv)")
	flags.Int("limit", 0, "maximum number of profiles to process (0 = unlimited)")
	flags.Int("concurrency", 0, "number of concurrent fetch workers")
	flags.Duration("min-delay", 0, "minimum per-request delay")
	flags.Duration("max-delay", 0, "maximum per-request delay")
	flags.String("metrics-addr", "", "address for the metrics endpoint (empty = disabled)")

	v := viper.GetViper()
	cobra.CheckErr(v.BindPFlag("harvester.sitemaps", flags.Lookup("sitemap")))
	cobra.CheckErr(v.BindPFlag("harvester.output", flags.Lookup("output")))
	cobra.CheckErr(v.BindPFlag("harvester.limit", flags.Lookup("limit")))
	cobra.CheckErr(v.BindPFlag("harvester.concurrency", flags.Lookup("concurrency")))
	cobra.CheckErr(v.BindPFlag("harvester.min_delay", flags.Lookup("min-delay")))
	cobra.CheckErr(v.BindPFlag("harvester.max_delay", flags.Lookup("max-delay")))
	cobra.CheckErr(v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr")))

	return cmd
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics := startMetricsServer(cfg, logger)
	defer shutdownMetrics()

	coordinator := buildCoordinator(cfg, logger)
	if err := coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}

	logger.Info("harvest command finished")
	return nil
}

func buildCoordinator(cfg config.Config, logger *zap.Logger) *run.Coordinator {
	sitemapFetcher := fetch.NewHTTPFetcher(fetch.ClientConfig{
		UserAgent: cfg.Harvester.UserAgent,
		Timeout:   cfg.SitemapTimeout(),
	})
	walker := sitemap.NewWalker(sitemapFetcher, cfg.Harvester.ProfileMarker, logger.Named("sitemap"))

	pipeline := fetch.NewPipeline(
		fetch.PipelineConfig{
			Concurrency: cfg.Harvester.Concurrency,
			MinDelay:    cfg.Harvester.MinDelay,
			MaxDelay:    cfg.Harvester.MaxDelay,
		},
		func() fetch.Fetcher {
			return fetch.NewHTTPFetcher(fetch.ClientConfig{
				UserAgent: cfg.Harvester.UserAgent,
				Timeout:   cfg.RequestTimeout(),
			})
		},
		extract.Parse,
		logger.Named("pipeline"),
	)

	exporter := export.ForPath(cfg.Harvester.Output)
	return run.New(cfg, walker, pipeline, exporter, logger.Named("run"))
}

// startMetricsServer starts the diagnostics endpoint when configured and
// returns a shutdown func.
func startMetricsServer(cfg config.Config, logger *zap.Logger) func() {
	if cfg.Metrics.Addr == "" {
		return func() {}
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           api.NewServer(logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint started", zap.String("addr", cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint error", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics endpoint shutdown error", zap.Error(err))
		}
	}
}
