package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/catalog"
	"github.com/maxwelfreitas/schwordcloud/internal/config"
	"github.com/maxwelfreitas/schwordcloud/internal/metrics"
	"github.com/maxwelfreitas/schwordcloud/internal/results"
	"github.com/maxwelfreitas/schwordcloud/internal/scheduler"
	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
)

func newRunCmd() *cobra.Command {
	var forceCatalog bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Builds the search queue and processes it",
		Long: `Downloads (or reuses) the certification catalog, selects the numbers
whose grace period has elapsed and that have no usable history entry,
searches each one and records the extracted terms. The run is resumable:
every processed item is committed before the next one starts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if forceCatalog {
				cfg.Catalog.ForceDownload = true
			}
			return runSearch(cmd, cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&forceCatalog, "refresh-catalog", false, "download the catalog even if the local copy is fresh")

	return cmd
}

func runSearch(cmd *cobra.Command, cfg config.Config, logger *zap.Logger) error {
	ctx := cmd.Context()

	cat, err := catalog.Fetch(ctx, catalog.FetchOptions{
		URL:          cfg.Catalog.URL,
		Dir:          cfg.Data.Home,
		RefreshAfter: cfg.CatalogRefresh(),
		Force:        cfg.Catalog.ForceDownload,
		Retries:      cfg.Catalog.Retries,
		RetryDelay:   time.Duration(cfg.Catalog.RetryDelaySec) * time.Second,
		Timeout:      time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	logger.Info("catalog loaded", zap.Int("records", cat.Len()))

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	google, err := websearch.NewGoogleSearch(websearch.GoogleConfig{
		APIKey:   cfg.Search.APIKey,
		Endpoint: cfg.Search.Endpoint,
		EngineID: cfg.Search.EngineID,
		Country:  cfg.Search.Country,
		Language: cfg.Search.Language,
		Timeout:  time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("init searcher: %w", err)
	}
	searcher := websearch.NewRateLimited(google, cfg.Search.RatePerSecond, cfg.Search.Burst)

	sink, err := results.NewSink(cfg.Data.Home)
	if err != nil {
		return fmt.Errorf("init result sink: %w", err)
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go m.Serve(ctx, cfg.Metrics.Addr, logger)
	}

	sched := scheduler.New(cat, st.History(), st.Annotations(), searcher, sink, m, scheduler.Config{
		GracePeriod:     cfg.GracePeriod(),
		FailureCooldown: cfg.FailureCooldown(),
		Category:        cfg.Queue.Category,
		Shuffle:         cfg.Queue.Shuffle,
		MaxSearches:     cfg.Queue.MaxSearches,
		TermCount:       cfg.Queue.TermCount,
	}, logger)

	summary, err := sched.Run(ctx)
	logger.Info("run finished",
		zap.Int("queued", summary.Queued),
		zap.Int("searched", summary.Searched),
		zap.Int("no_results", summary.NoResults),
		zap.Int("failed", summary.Failed))
	if err != nil {
		return fmt.Errorf("search run aborted: %w", err)
	}
	return nil
}
