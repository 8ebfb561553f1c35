package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/config"
	"github.com/maxwelfreitas/schwordcloud/internal/consolidator"
	"github.com/maxwelfreitas/schwordcloud/internal/metrics"
	"github.com/maxwelfreitas/schwordcloud/internal/publisher/pubsub"
	"github.com/maxwelfreitas/schwordcloud/internal/snapshot"
	"github.com/maxwelfreitas/schwordcloud/internal/snapshot/fs"
	"github.com/maxwelfreitas/schwordcloud/internal/snapshot/gcs"
)

func newConsolidateCmd() *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merges the local annotation table with shared snapshots",
		Long: `Reads every snapshot other participants dropped in the shared get
folder, merges them with the local annotation table keeping one winner
per certification number, replaces the local table with the result and
publishes it as a new snapshot in the post folder.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runConsolidate(cmd.Context(), cfg, logger, exportPath)
		},
	}

	cmd.Flags().StringVar(&exportPath, "export-csv", "", "also write the consolidated table as CSV to this path")

	return cmd
}

func runConsolidate(ctx context.Context, cfg config.Config, logger *zap.Logger, exportPath string) error {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	getFolder, postFolder, cleanup, err := openFolders(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	participant := snapshot.Participant()

	var notifier consolidator.Notifier
	if cfg.PubSub.Enabled {
		pub, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName, participant)
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("closing pubsub failed", zap.Error(err))
			}
		}()
		notifier = pub
	}

	c := consolidator.New(st.Annotations(), getFolder, postFolder, notifier, metrics.New(),
		consolidator.Config{Participant: participant}, logger)

	result, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}
	logger.Info("consolidated",
		zap.Int("keys", result.Keys),
		zap.Int("snapshots_read", result.SnapshotsRead),
		zap.String("published", result.SnapshotName))

	if exportPath != "" {
		if err := exportCSV(ctx, c, exportPath); err != nil {
			return err
		}
		logger.Info("exported consolidated table", zap.String("path", exportPath))
	}
	return nil
}

// openFolders builds the shared get/post folders from configuration.
func openFolders(ctx context.Context, cfg config.Config) (snapshot.Folder, snapshot.Folder, func(), error) {
	if cfg.Cloud.Provider == "gcs" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		get, err := gcs.New(client, gcs.Config{Bucket: cfg.Cloud.Bucket, Prefix: cfg.Cloud.Get})
		if err != nil {
			return nil, nil, nil, err
		}
		post, err := gcs.New(client, gcs.Config{Bucket: cfg.Cloud.Bucket, Prefix: cfg.Cloud.Post})
		if err != nil {
			return nil, nil, nil, err
		}
		return get, post, func() { _ = client.Close() }, nil
	}

	getDir := cfg.Cloud.Get
	if getDir == "" {
		getDir = filepath.Join(cfg.Data.Home, "get")
	}
	postDir := cfg.Cloud.Post
	if postDir == "" {
		postDir = filepath.Join(cfg.Data.Home, "post")
	}
	for _, dir := range []string{getDir, postDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create snapshot folder: %w", err)
		}
	}
	get, err := fs.New(getDir)
	if err != nil {
		return nil, nil, nil, err
	}
	post, err := fs.New(postDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return get, post, func() {}, nil
}

func exportCSV(ctx context.Context, c *consolidator.Consolidator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := c.ExportCSV(ctx, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("export csv: %w", err)
	}
	return f.Close()
}
