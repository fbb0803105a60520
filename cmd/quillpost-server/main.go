// Command quillpost-server runs the QuillPost API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/auth"
	memorycache "github.com/tmarlen/quillpost/internal/cache/memory"
	"github.com/tmarlen/quillpost/internal/config"
	"github.com/tmarlen/quillpost/internal/handler"
	"github.com/tmarlen/quillpost/internal/lock"
	"github.com/tmarlen/quillpost/internal/metrics"
	"github.com/tmarlen/quillpost/internal/repository"
	"github.com/tmarlen/quillpost/internal/repository/postgres"
	redisrepo "github.com/tmarlen/quillpost/internal/repository/redis"
	"github.com/tmarlen/quillpost/internal/repository/sqlite"
	"github.com/tmarlen/quillpost/internal/service"
	"github.com/tmarlen/quillpost/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	repos, health, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := health.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close database")
		}
	}()
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	// Cache and lock: Redis when enabled, in-memory otherwise.
	var (
		cache  repository.Cache
		locker lock.Locker
	)
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		cache = client
		locker = lock.NewRedisLocker(client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connected")
	} else {
		memCache := memorycache.NewCache()
		defer memCache.Stop()
		cache = memCache
		locker = lock.NewMemoryLocker()
	}

	// Image store
	images, uploadsDir, err := buildImageStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	m := metrics.New()

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(repos.User, tokens, locker, logger)
	postService := service.NewPostService(repos.Post, images, cache, m, logger)
	userService := service.NewUserService(repos.User, logger)
	exportService := service.NewExportService(repos.Post, logger)

	router := handler.NewRouter(handler.Deps{
		Auth:       authService,
		Posts:      postService,
		Export:     exportService,
		Users:      userService,
		Images:     images,
		Tokens:     tokens,
		UserStore:  repos.User,
		Health:     health,
		Metrics:    m,
		CORSOrigin: cfg.Server.CORSOrigin,
		UploadsDir: uploadsDir,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown did not complete cleanly")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics shutdown did not complete cleanly")
		}
	}
	return nil
}

// buildRepositories wires the configured database driver.
func buildRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		return &repository.Repositories{
			User: sqlite.NewUserRepository(db),
			Post: sqlite.NewPostRepository(db),
		}, db, nil
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return &repository.Repositories{
			User: postgres.NewUserRepository(db),
			Post: postgres.NewPostRepository(db),
		}, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// buildImageStore wires the configured image backend. The second return value
// is the local directory to serve under /uploads/, empty for S3.
func buildImageStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.ImageStore, string, error) {
	switch cfg.Backend {
	case "filesystem":
		store, err := storage.NewFilesystemStore(cfg.DataDir, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.S3, logger)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// newLogger builds the root logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
