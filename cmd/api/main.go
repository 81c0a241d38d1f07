package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	users, probes, closeDirectory, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open user directory", zap.String("backend", cfg.Directory.Backend), zap.Error(err))
	}
	defer closeDirectory()

	var tokenOpts []auth.TokenOption
	if cfg.Auth.JWTIssuer != "" {
		tokenOpts = append(tokenOpts, auth.WithIssuer(cfg.Auth.JWTIssuer))
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), tokenOpts...)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	authService, err := service.NewAuthService(service.AuthDependencies{
		Users:  users,
		Hasher: auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens: tokens,
		Events: dispatcher,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	if cfg.Auth.BootstrapAdminEmail != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(auth.NewGate(tokens), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: !cfg.App.IsDevelopment()})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, probes),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("auth service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("directory", cfg.Directory.Backend),
		zap.Duration("token_ttl", tokens.TTL()),
	)

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openDirectory builds the configured user directory along with the readiness
// probes for whatever backing store it needs.
func openDirectory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserDirectory, map[string]handlers.Pinger, func(), error) {
	probes := map[string]handlers.Pinger{}

	switch cfg.Directory.Backend {
	case config.DirectoryPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		probes["postgres"] = pg
		return repository.NewUserRepository(pg.PoolHandle()), probes, pg.Close, nil

	case config.DirectoryRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err := rdb.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		probes["redis"] = rdb
		return repository.NewRedisUserRepository(rdb.Client), probes, rdb.Close, nil

	default:
		logger.Warn("using in-memory user directory; accounts are lost on restart")
		return repository.NewMemoryUserRepository(), probes, func() {}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
