package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/yegorian/legendary-empire/internal/dependencies/clock"
	"github.com/yegorian/legendary-empire/internal/services/admin"
	"github.com/yegorian/legendary-empire/internal/storage"
	redisstorage "github.com/yegorian/legendary-empire/internal/storage/redis"
	"github.com/yegorian/legendary-empire/internal/storage/sqlite"
)

// openStorage connects to the configured storage backend. The returned
// closer must be called when done.
func openStorage(cfg *Config) (storage.Storage, func() error, error) {
	switch cfg.StorageType {
	case "sqlite":
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite at %s: %w", cfg.DatabasePath, err)
		}
		return store, store.Close, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("redis URL required (EMPIRECTL_REDIS_URL or --redis-url)")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid storage type %q: must be 'sqlite' or 'redis'", cfg.StorageType)
	}
}

// newAdminService builds the admin service over an opened store
func newAdminService(store storage.Storage) *admin.Service {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return admin.New(store, clock.New(), "", logger)
}
