package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

const accountColumns = `id, username, first_name, last_name, email, password_hash,
	role, level, level_letter, created_at_ns, updated_at_ns`

// Create inserts a new account.
func (s *Store) Create(ctx context.Context, st *student.Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, username, first_name, last_name, email, password_hash,
			role, level, level_letter, letter_key, created_at_ns, updated_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID.String(),
		st.Username,
		st.FirstName,
		st.LastName,
		st.Email,
		st.PasswordHash,
		st.Role().String(),
		st.Level(),
		st.Letter(),
		student.LetterKey(st.Letter()),
		st.CreatedAt.UTC().UnixNano(),
		st.UpdatedAt.UTC().UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID returns an account by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id.String())
	return scanAccount(row)
}

// GetByUsername returns an account by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

// ListStudents returns role=student accounts matching the filter. The class
// part of the filter runs in SQL; name matching runs in Go because SQLite's
// LIKE only folds ASCII.
func (s *Store) ListStudents(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = 'student'`
	var args []any
	if filter.Level != 0 {
		query += ` AND level = ?`
		args = append(args, filter.Level)
	}
	if filter.Letter != "" {
		query += ` AND letter_key = ?`
		args = append(args, student.LetterKey(filter.Letter))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		st, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(st) {
			out = append(out, st)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	student.SortForListing(out)
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*student.Student, error) {
	var (
		st        student.Student
		role      string
		level     sql.NullInt64
		letter    string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&st.ID,
		&st.Username,
		&st.FirstName,
		&st.LastName,
		&st.Email,
		&st.PasswordHash,
		&role,
		&level,
		&letter,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	var levelPtr *int
	if level.Valid {
		v := int(level.Int64)
		levelPtr = &v
	}
	membership, err := student.RestoreMembership(role, levelPtr, letter)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", st.ID, err)
	}
	st.Membership = membership
	st.CreatedAt = time.Unix(0, createdAt).UTC()
	st.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &st, nil
}
