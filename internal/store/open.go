// internal/store/open.go
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options selects and configures a KV backend.
type Options struct {
	Type        string
	Path        string
	DatabaseURL string
}

// Open builds the configured backend. The returned close function releases
// any connection pool.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (KV, func(), error) {
	switch opts.Type {
	case "", "file":
		dir, err := homedir.Expand(opts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to expand store path %q: %w", opts.Path, err)
		}
		fs, err := NewFileStore(afero.NewOsFs(), dir, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Using file store.", zap.String("path", dir))
		return fs, func() {}, nil

	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("database URL is not configured (hint: check SCROLLLAB_DATABASE_URL)")
		}
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		pg, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Debug("Using postgres store.")
		return pg, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store type %q", opts.Type)
}
