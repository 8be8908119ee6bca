// Package memory provides an in-process store for development and tests.
// It implements the same repository contracts as the SQL stores, including
// per-key serialization of result upserts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// Store keeps accounts and ledger records in maps.
type Store struct {
	mu        sync.RWMutex
	students  map[uuid.UUID]student.Student
	usernames map[string]uuid.UUID
	records   map[result.Key]result.Record

	// keyLocks serializes upserts per (student, lesson) key.
	keyLocks sync.Map
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		students:  make(map[uuid.UUID]student.Student),
		usernames: make(map[string]uuid.UUID),
		records:   make(map[result.Key]result.Record),
	}
}

var (
	_ student.Repository   = (*Store)(nil)
	_ result.Repository    = (*Store)(nil)
	_ ranking.CohortReader = (*Store)(nil)
)

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Accounts
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new account.
func (s *Store) Create(ctx context.Context, st *student.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[st.Username]; taken {
		return shared.ErrStudentAlreadyExists
	}
	if _, taken := s.students[st.ID]; taken {
		return shared.ErrStudentAlreadyExists
	}

	s.students[st.ID] = *st
	s.usernames[st.Username] = st.ID
	return nil
}

// GetByID returns an account by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return &st, nil
}

// GetByUsername returns an account by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	st := s.students[id]
	return &st, nil
}

// ListStudents returns role=student accounts matching the filter.
func (s *Store) ListStudents(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*student.Student, 0, len(s.students))
	for _, st := range s.students {
		st := st
		if filter.Matches(&st) {
			out = append(out, &st)
		}
	}
	s.mu.RUnlock()

	student.SortForListing(out)
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) keyLock(key result.Key) *sync.Mutex {
	l, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Upsert applies a submission atomically with respect to other submissions
// for the same key.
func (s *Store) Upsert(ctx context.Context, sub result.Submission) (result.Record, error) {
	if err := ctx.Err(); err != nil {
		return result.Record{}, err
	}

	lock := s.keyLock(sub.Key())
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, known := s.students[sub.StudentID]
	current, exists := s.records[sub.Key()]
	s.mu.RUnlock()

	if !known {
		return result.Record{}, shared.ErrStudentNotFound
	}

	var next result.Record
	if exists {
		next = current.Apply(sub)
	} else {
		next = result.FirstRecord(sub)
	}

	s.mu.Lock()
	s.records[sub.Key()] = next
	s.mu.Unlock()

	return next, nil
}

// ListByStudent returns a student's records ordered by lesson number.
func (s *Store) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]result.Record, 0)
	for key, rec := range s.records {
		if key.StudentID == studentID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LessonNumber < out[j].LessonNumber })
	return out, nil
}

// List returns records joined with their account, most recent first.
func (s *Store) List(ctx context.Context, filter result.ListFilter) ([]result.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]result.Entry, 0)
	for _, rec := range s.records {
		st, ok := s.students[rec.StudentID]
		if !ok || !matchesEntry(filter, &st, rec) {
			continue
		}
		out = append(out, result.Entry{
			Record:   rec,
			Username: st.Username,
			FullName: st.FullName(),
			Role:     st.Role().String(),
			Level:    st.Level(),
			Letter:   st.Letter(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSubmittedAt.Equal(out[j].LastSubmittedAt) {
			return out[i].LastSubmittedAt.After(out[j].LastSubmittedAt)
		}
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].LessonNumber < out[j].LessonNumber
	})
	return out, nil
}

func matchesEntry(f result.ListFilter, st *student.Student, rec result.Record) bool {
	if f.StudentID != nil && rec.StudentID != *f.StudentID {
		return false
	}
	if f.Level != 0 || f.Letter != "" {
		class, ok := st.Class()
		if !ok {
			return false
		}
		if f.Level != 0 && class.Level != f.Level {
			return false
		}
		if f.Letter != "" && class.LetterKey() != student.LetterKey(f.Letter) {
			return false
		}
	}
	return f.MatchesDate(rec.LastSubmittedAt)
}

// CohortStandings returns the total of best scores for every student of the class.
func (s *Store) CohortStandings(ctx context.Context, class student.Class) (ranking.Standings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[uuid.UUID]int)
	for id, st := range s.students {
		if c, ok := st.Class(); ok && c.SameCohort(class) {
			totals[id] = 0
		}
	}
	for key, rec := range s.records {
		if _, member := totals[key.StudentID]; member {
			totals[key.StudentID] += rec.BestScore
		}
	}

	out := make(ranking.Standings, 0, len(totals))
	for id, total := range totals {
		out = append(out, ranking.Standing{StudentID: id, TotalPoints: total})
	}
	return out, nil
}
