package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledgercast/ledgercast/internal/config"
	"github.com/ledgercast/ledgercast/internal/storage"
)

// openStorage opens the configured database, creating its directory
// and applying pending migrations.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	settings := config.Load()

	if settings.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(settings.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}
