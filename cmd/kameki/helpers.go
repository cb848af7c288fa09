package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkaneko/kameki/internal/api"
	"github.com/mkaneko/kameki/internal/config"
	"github.com/mkaneko/kameki/internal/storage"
	"github.com/mkaneko/kameki/internal/sync"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	path := cfg.Storage.DatabasePath
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
		}
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open(%s) > %w", path, err)
	}
	return store, nil
}

func newEngine(cfg *config.Config, store *storage.Store) (*sync.Engine, *api.Client) {
	client := api.NewClient(cfg.API.Token, api.Options{
		BaseURL:           cfg.API.BaseURL,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		RetryAttempts:     uint(cfg.API.RetryAttempts),
	})
	return sync.NewEngine(store, client, cfg.API.RequestsPerMinute), client
}
