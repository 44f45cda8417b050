package cmd

import (
	"context"
	"fmt"
	"time"

	"clubhours/config"
	"clubhours/storage"
	"clubhours/worklog"
)

// openRepository opens the store selected by storage.driver. The memory store
// lives only as long as the process and is meant for serve and trials.
func openRepository(ctx context.Context, cfg config.StorageConfig) (worklog.Repository, func() error, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), func() error { return nil }, nil
	case "mongo":
		store, err := storage.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() error {
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return store.Close(shutdown)
		}
		return store, closeStore, nil
	case "", "sqlite":
		store, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s (supported: sqlite, mongo, memory)", cfg.Driver)
	}
}
