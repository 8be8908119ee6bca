// Package persistence selects and opens the configured store.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/englishlessons/lessons-hub/config"
	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/memory"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/postgres"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/sqlite"
	"github.com/englishlessons/lessons-hub/pkg/logger"
	"github.com/englishlessons/lessons-hub/pkg/retry"
)

// Backend bundles the repositories of one store.
type Backend struct {
	Driver string

	Students student.Repository
	Results  result.Repository
	Cohorts  ranking.CohortReader

	// Postgres is set only for the postgres driver; it owns the migrator.
	Postgres *postgres.Connection

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases the store.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Migrate applies pending schema migrations. SQLite and memory stores create
// their schema on open, so only postgres has work to do.
func (b *Backend) Migrate(ctx context.Context) (int, error) {
	if b.Postgres == nil {
		return 0, nil
	}
	return postgres.NewMigrator(b.Postgres).Migrate(ctx)
}

// Open connects to the store named by cfg.Driver, retrying the initial
// connection while the database may still be starting.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Backend, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("persistence"), logger.String("driver", cfg.Driver))

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	retrier := retry.StartupRetrier(attempts, func(attempt int, err error, delay time.Duration) {
		log.Warn("store not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})

	switch cfg.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.URL
		if cfg.MaxConns > 0 {
			pgCfg.MaxConns = int32(cfg.MaxConns)
		}
		if cfg.MinConns > 0 {
			pgCfg.MinConns = int32(cfg.MinConns)
		}
		pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

		conn, err := retry.Value(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnection(ctx, pgCfg)
		})
		if err != nil {
			return nil, err
		}
		results := postgres.NewResultRepository(conn)
		return &Backend{
			Driver:   cfg.Driver,
			Students: postgres.NewStudentRepository(conn),
			Results:  results,
			Cohorts:  results,
			Postgres: conn,
			ping:     conn.Ping,
			close:    conn.Close,
		}, nil

	case config.DriverSQLite:
		store, err := retry.Value(ctx, retrier, func(ctx context.Context) (*sqlite.Store, error) {
			return sqlite.Open(ctx, cfg.SQLitePath)
		})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:   cfg.Driver,
			Students: store,
			Results:  store,
			Cohorts:  store,
			ping:     store.Ping,
			close:    func() { _ = store.Close() },
		}, nil

	case config.DriverMemory:
		store := memory.NewStore()
		return &Backend{
			Driver:   cfg.Driver,
			Students: store,
			Results:  store,
			Cohorts:  store,
			ping:     store.Ping,
		}, nil

	default:
		return nil, fmt.Errorf("persistence: unknown driver %q", cfg.Driver)
	}
}
