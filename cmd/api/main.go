// Package main is the entry point of the lessons API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/englishlessons/lessons-hub/config"
	"github.com/englishlessons/lessons-hub/internal/application/command"
	"github.com/englishlessons/lessons-hub/internal/application/query"
	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/redis"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/security"
	httpserver "github.com/englishlessons/lessons-hub/internal/interface/http"
	"github.com/englishlessons/lessons-hub/internal/interface/http/handlers"
	"github.com/englishlessons/lessons-hub/pkg/circuitbreaker"
	"github.com/englishlessons/lessons-hub/pkg/logger"
	"github.com/englishlessons/lessons-hub/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting lessons API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("db_driver", cfg.Database.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Store
	// ─────────────────────────────────────────────────────────────────────────
	store, err := persistence.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		log.Info("closing store")
		store.Close()
	}()

	if cfg.Database.AutoMigrate {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Redis (optional): stats cache and shared rate limiter
	// ─────────────────────────────────────────────────────────────────────────
	var (
		statsCache  ranking.StatsCache
		rateLimiter httpserver.RateLimiter
		cache       *redis.Cache
	)
	if cfg.Redis.Enabled {
		cache, err = connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, running without cache", logger.Err(err))
		} else {
			defer cache.Close()
			if cfg.Scoring.StatsCacheTTL > 0 {
				breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						logger.String("breaker", name),
						logger.String("from", from.String()),
						logger.String("to", to.String()),
					)
				})
				statsCache = redis.NewStatsCache(cache).WithBreaker(breaker)
			}
			if cfg.HTTP.RateLimit > 0 {
				rateLimiter = redis.NewRateLimiter(cache, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
			}
			log.Info("redis connection established", logger.String("addr", cfg.Redis.Host))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	policy := result.Policy{MaxScore: cfg.Scoring.MaxScore}
	hasher := security.NewBcryptHasher(0)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewPingCheck(store))
	if cache != nil {
		health.AddOptionalCheck("cache", handlers.NewPingCheck(cache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimit = cfg.HTTP.RateLimit
	httpConfig.RateLimitWindow = cfg.HTTP.RateLimitWindow
	httpConfig.TrustedProxies = cfg.HTTP.TrustedProxies
	httpConfig.MaxScore = cfg.Scoring.MaxScore

	server := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		SubmitResult:     command.NewSubmitResultHandler(store.Results, statsCache, policy, log),
		CreateAccount:    command.NewCreateAccountHandler(store.Students, statsCache, hasher, log),
		StudentStats:     query.NewGetStudentStatsHandler(store.Students, store.Results, store.Cohorts, statsCache, cfg.Scoring.StatsCacheTTL, log),
		ListStudents:     query.NewListStudentsHandler(store.Students),
		ListResults:      query.NewListResultsHandler(store.Results),
		ClassLeaderboard: query.NewGetClassLeaderboardHandler(store.Students, store.Cohorts),
		ExportStats:      query.NewExportStatsHandler(store.Students, store.Results, store.Cohorts),
		ClassAnalytics:   query.NewGetClassAnalyticsHandler(store.Students, store.Results),
		Tokens:           tokens,
		Accounts:         store.Students,
		RateLimiter:      rateLimiter,
		HealthChecker:    health,
		Logger:           log,
		Version:          cfg.App.Version,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Cache, error) {
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Host
	redisCfg.Port = cfg.Port
	redisCfg.Password = cfg.Password
	redisCfg.DB = cfg.DB
	redisCfg.PoolSize = cfg.PoolSize
	redisCfg.MinIdleConns = cfg.MinIdleConns
	redisCfg.DialTimeout = cfg.DialTimeout
	redisCfg.ReadTimeout = cfg.ReadTimeout
	redisCfg.WriteTimeout = cfg.WriteTimeout

	retrier := retry.StartupRetrier(3, func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying", logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	})
	return retry.Value(ctx, retrier, func(context.Context) (*redis.Cache, error) {
		return redis.NewCache(redisCfg)
	})
}
