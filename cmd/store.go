package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/config"
	"github.com/maxwelfreitas/schwordcloud/internal/history"
	"github.com/maxwelfreitas/schwordcloud/internal/store/postgres"
	"github.com/maxwelfreitas/schwordcloud/internal/store/sqlite"
)

// dataStore is the slice of the storage layer the commands need.
type dataStore interface {
	History() history.Store
	Annotations() annotation.Store
}

// openStore builds the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (dataStore, func(), error) {
	switch cfg.DB.Driver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, st.Close, nil
	default:
		if err := os.MkdirAll(cfg.Data.Home, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data home: %w", err)
		}
		st, err := sqlite.Open(cfg.DatabasePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		closeFn := func() {
			if err := st.Close(); err != nil {
				logger.Warn("closing store failed", zap.Error(err))
			}
		}
		return st, closeFn, nil
	}
}
