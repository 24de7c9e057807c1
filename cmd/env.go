package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storehours/internal/config"
	"github.com/example/storehours/internal/db"
	"github.com/example/storehours/internal/logging"
	"github.com/example/storehours/internal/migrate"
)

// env is what every database-backed command starts from.
type env struct {
	cfg config.Config
	log *zap.Logger
	db  *db.DB
}

func openEnv(ctx context.Context, migrateUp bool) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d, log); err != nil {
			d.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, log: log, db: d}, nil
}

func (e *env) Close() {
	e.db.Close()
	_ = e.log.Sync()
}
