package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/timeutil"
)

// Upsert applies a submission with one INSERT .. ON CONFLICT statement.
func (s *Store) Upsert(ctx context.Context, sub result.Submission) (result.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO lesson_results (student_id, lesson_number, best_score, attempts, last_submitted_at_ns)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT (student_id, lesson_number) DO UPDATE SET
			best_score = MAX(lesson_results.best_score, excluded.best_score),
			attempts = lesson_results.attempts + 1,
			last_submitted_at_ns = excluded.last_submitted_at_ns
		 RETURNING student_id, lesson_number, best_score, attempts, last_submitted_at_ns`,
		sub.StudentID.String(),
		sub.LessonNumber,
		sub.Score,
		sub.SubmittedAt.UTC().UnixNano(),
	)

	rec, err := scanRecord(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return result.Record{}, shared.ErrStudentNotFound
		}
		return result.Record{}, fmt.Errorf("failed to upsert result: %w", err)
	}
	return rec, nil
}

// ListByStudent returns a student's records ordered by lesson number.
func (s *Store) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id, lesson_number, best_score, attempts, last_submitted_at_ns
		 FROM lesson_results WHERE student_id = ? ORDER BY lesson_number`,
		studentID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list student results: %w", err)
	}
	defer rows.Close()

	out := make([]result.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// List returns records joined with their account, most recent first.
func (s *Store) List(ctx context.Context, filter result.ListFilter) ([]result.Entry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.StudentID != nil {
		conds = append(conds, "r.student_id = ?")
		args = append(args, filter.StudentID.String())
	}
	if filter.Level != 0 {
		conds = append(conds, "a.level = ?")
		args = append(args, filter.Level)
	}
	if filter.Letter != "" {
		conds = append(conds, "a.letter_key = ?")
		args = append(args, student.LetterKey(filter.Letter))
	}
	if filter.CompletedOn != nil {
		conds = append(conds, "r.last_submitted_at_ns >= ? AND r.last_submitted_at_ns < ?")
		args = append(args, timeutil.StartOfDay(*filter.CompletedOn).UnixNano(), timeutil.NextDay(*filter.CompletedOn).UnixNano())
	}
	if filter.CompletedFrom != nil {
		conds = append(conds, "r.last_submitted_at_ns >= ?")
		args = append(args, timeutil.StartOfDay(*filter.CompletedFrom).UnixNano())
	}
	if filter.CompletedTo != nil {
		conds = append(conds, "r.last_submitted_at_ns < ?")
		args = append(args, timeutil.NextDay(*filter.CompletedTo).UnixNano())
	}

	query := `SELECT r.student_id, r.lesson_number, r.best_score, r.attempts, r.last_submitted_at_ns,
			a.username, a.first_name, a.last_name, a.role, a.level, a.level_letter
		FROM lesson_results r
		JOIN accounts a ON a.id = r.student_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY r.last_submitted_at_ns DESC, a.username, r.lesson_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	out := make([]result.Entry, 0)
	for rows.Next() {
		var (
			e           result.Entry
			submittedAt int64
			firstName   string
			lastName    string
			level       sql.NullInt64
		)
		err := rows.Scan(
			&e.StudentID, &e.LessonNumber, &e.BestScore, &e.Attempts, &submittedAt,
			&e.Username, &firstName, &lastName, &e.Role, &level, &e.Letter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result entry: %w", err)
		}
		e.LastSubmittedAt = time.Unix(0, submittedAt).UTC()
		e.FullName = (&student.Student{Username: e.Username, FirstName: firstName, LastName: lastName}).FullName()
		if level.Valid {
			v := int(level.Int64)
			e.Level = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CohortStandings aggregates best-score totals for every student of the class.
func (s *Store) CohortStandings(ctx context.Context, class student.Class) (ranking.Standings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, COALESCE(SUM(r.best_score), 0)
		 FROM accounts a
		 LEFT JOIN lesson_results r ON r.student_id = a.id
		 WHERE a.role = 'student' AND a.level = ? AND a.letter_key = ?
		 GROUP BY a.id`,
		class.Level, class.LetterKey(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cohort: %w", err)
	}
	defer rows.Close()

	out := make(ranking.Standings, 0)
	for rows.Next() {
		var st ranking.Standing
		if err := rows.Scan(&st.StudentID, &st.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan cohort row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanRecord(row scanner) (result.Record, error) {
	var (
		rec         result.Record
		submittedAt int64
	)
	if err := row.Scan(&rec.StudentID, &rec.LessonNumber, &rec.BestScore, &rec.Attempts, &submittedAt); err != nil {
		return result.Record{}, err
	}
	rec.LastSubmittedAt = time.Unix(0, submittedAt).UTC()
	return rec, nil
}
