package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/yegorian/legendary-empire/internal/api"
	"github.com/yegorian/legendary-empire/internal/factory"
	redisstorage "github.com/yegorian/legendary-empire/internal/storage/redis"
	"github.com/yegorian/legendary-empire/internal/telegram"
)

func main() {
	// Local overrides; absence is fine in production
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		logger.Error("BOT_TOKEN is required")
		os.Exit(1)
	}
	channel := os.Getenv("CHANNEL_ID")
	if channel == "" {
		logger.Error("CHANNEL_ID is required")
		os.Exit(1)
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("failed to authorize bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg := factory.Config{
		AdminHandle:       os.Getenv("ADMIN_USERNAME"),
		ChannelLink:       getEnvOrDefault("CHANNEL_LINK", "https://t.me/"+strings.TrimPrefix(channel, "@")),
		MembershipChecker: telegram.NewChannelChecker(botAPI, channel),
		ExportDir:         os.Getenv("EXPORT_DIR"),
		Logger:            logger,
		StorageType:       getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeSQLite),
		DatabasePath:      getEnvOrDefault("DATABASE_PATH", "data/empire.db"),
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bot := telegram.NewBot(botAPI, app.Controller, telegram.DefaultConfig(), logger)

	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			serverConfig.Port = p
		}
	}
	server := api.NewServer(api.NewRouter(api.RouterConfig{
		Logger: logger,
		Admin:  app.AdminService,
	}), serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		errCh <- bot.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logger.Error("runtime error", slog.String("error", err.Error()))
			cancel()
		}
	case <-ctx.Done():
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("bot exited")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func logLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
