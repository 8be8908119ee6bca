package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

var _ student.Repository = (*StudentRepository)(nil)

const accountColumns = `
	id, username, first_name, last_name, email, password_hash,
	role, level, level_letter, created_at, updated_at`

// Create inserts a new account.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO accounts (
			id, username, first_name, last_name, email, password_hash,
			role, level, level_letter, letter_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.Username,
		s.FirstName,
		s.LastName,
		s.Email,
		s.PasswordHash,
		s.Role().String(),
		s.Level(),
		s.Letter(),
		student.LetterKey(s.Letter()),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID returns an account by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByUsername returns an account by username.
func (r *StudentRepository) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// ListStudents returns role=student accounts matching the filter.
func (r *StudentRepository) ListStudents(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	var (
		conds = []string{"role = 'student'"}
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.FirstName != "" {
		add("first_name ILIKE $%d", likePattern(filter.FirstName))
	}
	if filter.LastName != "" {
		add("last_name ILIKE $%d", likePattern(filter.LastName))
	}
	if filter.Level != 0 {
		add("level = $%d", filter.Level)
	}
	if filter.Letter != "" {
		add("letter_key = $%d", student.LetterKey(filter.Letter))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY level, letter_key, last_name, first_name`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		s, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanAccount(row pgx.Row) (*student.Student, error) {
	var (
		s         student.Student
		role      string
		level     *int
		letter    string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&s.ID,
		&s.Username,
		&s.FirstName,
		&s.LastName,
		&s.Email,
		&s.PasswordHash,
		&role,
		&level,
		&letter,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	membership, err := student.RestoreMembership(role, level, letter)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", s.ID, err)
	}
	s.Membership = membership
	s.CreatedAt = createdAt.UTC()
	s.UpdatedAt = updatedAt.UTC()
	return &s, nil
}

// likePattern builds a contains pattern with LIKE wildcards escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
