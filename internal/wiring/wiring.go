// Package wiring builds the runtime dependencies shared by the server and the CLI.
package wiring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"principalcheck/internal/directory"
	"principalcheck/internal/directory/graph"
	dirpostgres "principalcheck/internal/directory/postgres"
	"principalcheck/internal/directory/static"
	"principalcheck/internal/knownusers"
	"principalcheck/internal/platform/config"
	"principalcheck/internal/platform/postgres"
	"principalcheck/internal/platform/redis"
	"principalcheck/internal/symbol"
	"principalcheck/pkg/platform/circuit"
)

// Resources holds the long-lived dependencies of a process.
type Resources struct {
	Directory directory.Directory
	Known     knownusers.Store
	Symbols   symbol.Table

	db    *sql.DB
	redis *redis.Client
}

// Build opens the configured directory backend and known-user store and
// resolves the icon table.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Resources, error) {
	res := &Resources{}

	dir, err := res.openDirectory(ctx, cfg)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	if cfg.Directory.Backend != config.BackendStatic {
		breaker := circuit.New(cfg.Directory.Backend,
			circuit.WithFailureThreshold(cfg.Directory.BreakerThreshold),
			circuit.WithCooldown(cfg.Directory.BreakerCooldown),
		)
		dir = directory.NewGuarded(dir, breaker, logger)
	}
	res.Directory = dir

	known, err := res.openKnownUsers(ctx, cfg)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	res.Known = known

	res.Symbols = symbol.Resolve(ctx, Registry(cfg.Validation), logger)

	logger.InfoContext(ctx, "resources ready",
		"directory_backend", cfg.Directory.Backend,
		"known_user_store", storeName(res.redis),
	)
	return res, nil
}

// Registry returns the icon registry: ICON_DIR when set, else the embedded icons.
func Registry(cfg config.ValidationConfig) symbol.Registry {
	if cfg.IconDir != "" {
		return symbol.NewRegistry(os.DirFS(cfg.IconDir))
	}
	return symbol.Default()
}

// OpenPostgres opens the directory database without selecting a backend.
func OpenPostgres(ctx context.Context, cfg config.Config) (*dirpostgres.Directory, func() error, error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return dirpostgres.New(db), db.Close, nil
}

func (r *Resources) openDirectory(ctx context.Context, cfg config.Config) (directory.Directory, error) {
	switch cfg.Directory.Backend {
	case config.BackendStatic:
		d, err := static.Load(cfg.Directory.File)
		if err != nil {
			return nil, fmt.Errorf("load static directory: %w", err)
		}
		return d, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		r.db = db
		return dirpostgres.New(db), nil
	case config.BackendGraph:
		return graph.New(cfg.Graph), nil
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
	}
}

func (r *Resources) openKnownUsers(ctx context.Context, cfg config.Config) (knownusers.Store, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect known-user cache: %w", err)
	}
	if client == nil {
		return knownusers.NewInMemoryStore(), nil
	}
	r.redis = client
	return knownusers.NewRedisStore(client.Client, cfg.Redis.KeyPrefix), nil
}

// Health pings the network dependencies that are in use.
func (r *Resources) Health(ctx context.Context) error {
	var errs []error
	if r.db != nil {
		if err := r.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if r.redis != nil {
		if err := r.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases any open connections.
func (r *Resources) Close() error {
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	return errors.Join(errs...)
}

func storeName(c *redis.Client) string {
	if c == nil {
		return "memory"
	}
	return "redis"
}
