// Package sqlite implements the single-file persistence backend used for
// small deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// DefaultPath is used when no database file is configured.
const DefaultPath = "lessons.db"

// Store implements the account, ledger and cohort contracts on SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ student.Repository   = (*Store)(nil)
	_ result.Repository    = (*Store)(nil)
	_ ranking.CohortReader = (*Store)(nil)
)

// Open opens (or creates) the database file and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection keeps upserts serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
			level INTEGER,
			level_letter TEXT NOT NULL DEFAULT '',
			letter_key TEXT NOT NULL DEFAULT '',
			created_at_ns INTEGER NOT NULL,
			updated_at_ns INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_results (
			student_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			lesson_number INTEGER NOT NULL CHECK (lesson_number >= 1),
			best_score INTEGER NOT NULL CHECK (best_score >= 0),
			attempts INTEGER NOT NULL CHECK (attempts >= 1),
			-- unix nanoseconds, UTC
			last_submitted_at_ns INTEGER NOT NULL,
			PRIMARY KEY (student_id, lesson_number)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_cohort ON accounts(role, level, letter_key);`,
		`CREATE INDEX IF NOT EXISTS idx_lesson_results_submitted ON lesson_results(last_submitted_at_ns DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.ErrConstraintUnique) || isConstraint(err, sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.ErrConstraintForeignKey)
}
