package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESULT LEDGER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ResultRepository implements result.Repository and ranking.CohortReader for PostgreSQL.
type ResultRepository struct {
	conn *Connection
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(conn *Connection) *ResultRepository {
	return &ResultRepository{conn: conn}
}

var (
	_ result.Repository    = (*ResultRepository)(nil)
	_ ranking.CohortReader = (*ResultRepository)(nil)
)

// Upsert applies a submission in a single statement. The row lock taken by
// ON CONFLICT serializes concurrent submissions for the same key.
func (r *ResultRepository) Upsert(ctx context.Context, sub result.Submission) (result.Record, error) {
	query := `
		INSERT INTO lesson_results (student_id, lesson_number, best_score, attempts, last_submitted_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (student_id, lesson_number) DO UPDATE SET
			best_score = GREATEST(lesson_results.best_score, EXCLUDED.best_score),
			attempts = lesson_results.attempts + 1,
			last_submitted_at = EXCLUDED.last_submitted_at
		RETURNING student_id, lesson_number, best_score, attempts, last_submitted_at
	`

	var rec result.Record
	err := r.conn.QueryRow(ctx, query,
		sub.StudentID,
		sub.LessonNumber,
		sub.Score,
		sub.SubmittedAt.UTC(),
	).Scan(&rec.StudentID, &rec.LessonNumber, &rec.BestScore, &rec.Attempts, &rec.LastSubmittedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return result.Record{}, shared.ErrStudentNotFound
		}
		return result.Record{}, fmt.Errorf("failed to upsert result: %w", err)
	}

	rec.LastSubmittedAt = rec.LastSubmittedAt.UTC()
	return rec, nil
}

// ListByStudent returns a student's records ordered by lesson number.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Record, error) {
	query := `
		SELECT student_id, lesson_number, best_score, attempts, last_submitted_at
		FROM lesson_results
		WHERE student_id = $1
		ORDER BY lesson_number
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student results: %w", err)
	}
	defer rows.Close()

	out := make([]result.Record, 0)
	for rows.Next() {
		var rec result.Record
		if err := rows.Scan(&rec.StudentID, &rec.LessonNumber, &rec.BestScore, &rec.Attempts, &rec.LastSubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.LastSubmittedAt = rec.LastSubmittedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// List returns records joined with their account, most recent first.
func (r *ResultRepository) List(ctx context.Context, filter result.ListFilter) ([]result.Entry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StudentID != nil {
		add("r.student_id = $%d", *filter.StudentID)
	}
	if filter.Level != 0 {
		add("a.level = $%d", filter.Level)
	}
	if filter.Letter != "" {
		add("a.letter_key = $%d", student.LetterKey(filter.Letter))
	}

	const day = "(r.last_submitted_at AT TIME ZONE 'UTC')::date"
	if filter.CompletedOn != nil {
		add(day+" = $%d::date", timeutil.StartOfDay(*filter.CompletedOn))
	}
	if filter.CompletedFrom != nil {
		add(day+" >= $%d::date", timeutil.StartOfDay(*filter.CompletedFrom))
	}
	if filter.CompletedTo != nil {
		add(day+" <= $%d::date", timeutil.StartOfDay(*filter.CompletedTo))
	}

	query := `
		SELECT r.student_id, r.lesson_number, r.best_score, r.attempts, r.last_submitted_at,
		       a.username, a.first_name, a.last_name, a.role, a.level, a.level_letter
		FROM lesson_results r
		JOIN accounts a ON a.id = r.student_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY r.last_submitted_at DESC, a.username, r.lesson_number`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	out := make([]result.Entry, 0)
	for rows.Next() {
		var (
			e         result.Entry
			firstName string
			lastName  string
		)
		err := rows.Scan(
			&e.StudentID, &e.LessonNumber, &e.BestScore, &e.Attempts, &e.LastSubmittedAt,
			&e.Username, &firstName, &lastName, &e.Role, &e.Level, &e.Letter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result entry: %w", err)
		}
		e.LastSubmittedAt = e.LastSubmittedAt.UTC()
		e.FullName = (&student.Student{Username: e.Username, FirstName: firstName, LastName: lastName}).FullName()
		out = append(out, e)
	}
	return out, rows.Err()
}

// CohortStandings aggregates best-score totals for every student of the class
// in one query. Students without records are returned with a zero total.
func (r *ResultRepository) CohortStandings(ctx context.Context, class student.Class) (ranking.Standings, error) {
	query := `
		SELECT a.id, COALESCE(SUM(r.best_score), 0)::BIGINT
		FROM accounts a
		LEFT JOIN lesson_results r ON r.student_id = a.id
		WHERE a.role = 'student' AND a.level = $1 AND a.letter_key = $2
		GROUP BY a.id
	`

	rows, err := r.conn.Query(ctx, query, class.Level, class.LetterKey())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cohort: %w", err)
	}
	defer rows.Close()

	out := make(ranking.Standings, 0)
	for rows.Next() {
		var (
			id    uuid.UUID
			total int64
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("failed to scan cohort row: %w", err)
		}
		out = append(out, ranking.Standing{StudentID: id, TotalPoints: int(total)})
	}
	return out, rows.Err()
}
