package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/yegorian/legendary-empire/internal/dependencies/clock"
	"github.com/yegorian/legendary-empire/internal/dependencies/random"
	"github.com/yegorian/legendary-empire/internal/services/admin"
	"github.com/yegorian/legendary-empire/internal/services/membership"
	"github.com/yegorian/legendary-empire/internal/services/session"
	"github.com/yegorian/legendary-empire/internal/services/worldmap"
	"github.com/yegorian/legendary-empire/internal/storage"
	"github.com/yegorian/legendary-empire/internal/storage/memory"
	redisstorage "github.com/yegorian/legendary-empire/internal/storage/redis"
	"github.com/yegorian/legendary-empire/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeSQLite = "sqlite"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	WorldmapService   *worldmap.Service
	MembershipService *membership.Service
	AdminService      *admin.Service
	Controller        *session.Controller
}

// Config holds configuration for the application factory
type Config struct {
	// AdminHandle is the username granted access to the admin panel
	AdminHandle string
	// ChannelLink is the public link shown in the subscription prompt
	ChannelLink string
	// MembershipChecker is the external subscription capability
	// (the Telegram transport in production, a stub in tests)
	MembershipChecker membership.Checker
	// MembershipTimeout bounds membership checks (optional)
	// If zero, defaults to membership.DefaultTimeout
	MembershipTimeout time.Duration
	// ExportDir is the transient directory for export artifacts (optional)
	// If empty, the system temp dir is used
	ExportDir string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "sqlite" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// DatabasePath is the SQLite file path (required if StorageType is "sqlite")
	DatabasePath string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.MembershipChecker == nil {
		return nil, errors.New("MembershipChecker is required")
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, cfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeSQLite:
		if cfg.DatabasePath == "" {
			return nil, errors.New("DatabasePath required when StorageType is sqlite")
		}
		return sqlite.New(cfg.DatabasePath)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'sqlite' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	worldmapService := worldmap.New(rnd, logger)
	membershipService := membership.New(cfg.MembershipChecker, cfg.MembershipTimeout, logger)
	adminService := admin.New(store, clk, cfg.ExportDir, logger)
	controller := session.NewController(
		store,
		worldmapService,
		membershipService,
		adminService,
		clk,
		session.Config{AdminHandle: cfg.AdminHandle, ChannelLink: cfg.ChannelLink},
		logger,
	)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		WorldmapService:   worldmapService,
		MembershipService: membershipService,
		AdminService:      adminService,
		Controller:        controller,
	}
}
