package storage

import (
	"context"

	"github.com/ignatij/kyubey/internal/config"
	"github.com/pkg/errors"
)

// InitStore opens the connection pool described by cfg.
func InitStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	store, err := NewPostgresStore(ctx, cfg.URL, PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to metadata store")
	}
	return store, nil
}
