// Package app builds the long-lived services both binaries share from a
// loaded config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/aanand-mishra/membership-api/internal/config"
	"github.com/aanand-mishra/membership-api/internal/iec"
	"github.com/aanand-mishra/membership-api/internal/storage/mysql"
	"github.com/aanand-mishra/membership-api/internal/storage/sqlite"
	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
)

// OpenStore connects to the configured database and makes sure the schema
// exists.
func OpenStore(ctx context.Context, cfg config.Storage) (*sqlstore.Store, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.New(ctx, cfg.DSN)
	case "sqlite3", "":
		return sqlite.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("OpenStore: unsupported driver %q", cfg.Driver)
	}
}

// NewCache returns a Redis cache when an address is configured and an
// in-process one otherwise. closeFn releases the Redis connection pool.
func NewCache(ctx context.Context, cfg config.Redis) (cache iec.Cache, closeFn func() error, err error) {
	if cfg.Addr == "" {
		slog.Info("iec cache: in-memory")
		return iec.NewMemoryCache(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("NewCache: ping redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("iec cache: redis", slog.String("address", cfg.Addr))
	return iec.NewRedisCache(client), client.Close, nil
}

// NewMapper builds the IEC client and mapper over store.
func NewMapper(cfg *config.Config, store *sqlstore.Store, cache iec.Cache) *iec.Mapper {
	client := iec.NewClient(cfg.IEC.BaseURL, cfg.IEC.APIKey, cfg.IEC.Timeout)
	if !client.Configured() {
		slog.Warn("iec base url not set: voter verification and mapping discovery are disabled")
	}
	return iec.NewMapper(client, store, cache, cfg.Redis.TTL)
}
