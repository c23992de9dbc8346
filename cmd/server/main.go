package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"task-manager/internal/auth"
	"task-manager/internal/config"
	"task-manager/internal/handlers"
	"task-manager/internal/httpserver"
	"task-manager/internal/logutil"
	"task-manager/internal/session"
	"task-manager/internal/storage"
	"task-manager/web"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logutil.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	log.Logger = logger
	ctx = logutil.WithLogger(ctx, logger)

	db, err := storage.NewDB(ctx, cfg.DBPath, storage.WithMaxOpenConns(cfg.DBMaxOpenConns))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info().Str("path", cfg.DBPath).Msg("Database ready")

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	svc := auth.NewService(db, sessions, cfg.SessionTTL)
	if cfg.AdminUser != "" {
		created, err := svc.EnsureUser(ctx, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		if created {
			logger.Info().Str("user", cfg.AdminUser).Msg("Admin user created")
		}
	}

	h, err := handlers.NewHandlers(svc, db, handlers.Options{
		Templates:    web.Templates,
		SessionTTL:   cfg.SessionTTL,
		SecureCookie: cfg.SecureCookie,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("session_backend", cfg.SessionBackend).
		Msg("Endpoints: GET / /status /tareas, POST /registro /login /logout")
	return httpserver.Serve(ctx, cfg.Addr(), setupRouter(h, logger))
}

func setupRouter(h *handlers.Handlers, logger zerolog.Logger) http.Handler {
	return handlers.Wrap(h.Routes(), logger)
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return session.NewRedisStore(rdb, ""), func() { rdb.Close() }, nil
	default:
		store, err := session.NewMemoryStore(ctx, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
