package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ndi_desktop/internal/config"
	sqlitestore "ndi_desktop/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg config.Config) (*sqlitestore.Store, error) {
	dbPath := filepath.Clean(cfg.Storage.DBPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return store, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
