package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/config"
	"github.com/data-power-io/partsquote/internal/server"
	"github.com/data-power-io/partsquote/internal/store"
	"github.com/data-power-io/partsquote/libs/logging"
)

// stores are the persistence backends chosen by configuration.
type stores struct {
	docs   *store.FallbackStore
	images store.ImageStore
	deps   []server.Dependency
}

// openStores opens the local SQLite store and, when configured, PostgreSQL
// and S3. A PostgreSQL store that cannot be reached at startup is skipped and
// the service runs on the local store alone.
func openStores(ctx context.Context, cfg *config.Config, logger *logging.ServiceLogger) (*stores, error) {
	local, err := store.NewSQLiteStore(cfg.SQLitePath(), logger.Named("sqlite"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	s := &stores{deps: []server.Dependency{local}}

	var cloud store.DocumentStore
	if cfg.PostgresEnabled() {
		pg, err := store.NewPostgresStore(ctx, cfg.GetConnectionConfig(), logger.Named("postgres"))
		if err != nil {
			logger.LogPersistenceEvent("postgres", "connect", err)
		} else {
			cloud = pg
			s.deps = append(s.deps, pg)
		}
	}
	s.docs = store.NewFallbackStore(cloud, local, logger.Named("store"))

	if cfg.S3Enabled() {
		s3Store, err := store.NewS3ImageStore(ctx, cfg.GetS3Config(), logger.Named("s3"))
		if err != nil {
			s.docs.Close()
			return nil, fmt.Errorf("failed to create image store: %w", err)
		}
		s.images = s3Store
		s.deps = append(s.deps, s3Store)
	} else {
		s.images = store.DataURLStore{}
	}

	logger.Info("Stores ready",
		zap.String("documents", s.docs.Name()),
		zap.String("images", s.images.Name()))
	return s, nil
}

func (s *stores) Close() error {
	return s.docs.Close()
}
