package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

func newPupil(t *testing.T, s *Store, username string, level int, letter string) *student.Student {
	t.Helper()
	class, err := student.NewClass(level, letter)
	require.NoError(t, err)
	acc, err := student.NewAccount(student.NewAccountParams{
		Username:     username,
		PasswordHash: "hash",
		Membership:   student.StudentMembership{Class: class},
	})
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), acc))
	return acc
}

func TestStore_CreateRejectsDuplicateUsername(t *testing.T) {
	s := NewStore()
	newPupil(t, s, "anna", 5, "А")

	dup, err := student.NewAccount(student.NewAccountParams{
		Username: "anna", PasswordHash: "x", Membership: student.TeacherMembership{},
	})
	require.NoError(t, err)

	err = s.Create(context.Background(), dup)
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestStore_GetByIDNotFound(t *testing.T) {
	_, err := NewStore().GetByID(context.Background(), uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestStore_UpsertSequence(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	x := newPupil(t, s, "x", 5, "А")
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	submit := func(score int, at time.Time) result.Record {
		rec, err := s.Upsert(ctx, result.Submission{StudentID: x.ID, LessonNumber: 3, Score: score, SubmittedAt: at})
		require.NoError(t, err)
		return rec
	}

	rec := submit(50, t0)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, 50, rec.BestScore)

	rec = submit(40, t0.Add(time.Minute))
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, 50, rec.BestScore)
	assert.Equal(t, t0.Add(time.Minute), rec.LastSubmittedAt)

	rec = submit(90, t0.Add(2*time.Minute))
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, 90, rec.BestScore)
}

func TestStore_UpsertUnknownStudent(t *testing.T) {
	_, err := NewStore().Upsert(context.Background(), result.Submission{StudentID: uuid.New(), LessonNumber: 1})
	assert.True(t, shared.IsNotFound(err))
}

func TestStore_ConcurrentUpsertsSameKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	x := newPupil(t, s, "racer", 7, "Б")

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(score int) {
			defer wg.Done()
			_, err := s.Upsert(ctx, result.Submission{
				StudentID: x.ID, LessonNumber: 1, Score: score, SubmittedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := s.ListByStudent(ctx, x.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, n, records[0].Attempts)
	assert.Equal(t, n-1, records[0].BestScore)
}

func TestStore_CohortStandings(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newPupil(t, s, "a", 5, "А")
	b := newPupil(t, s, "b", 5, "а")
	c := newPupil(t, s, "c", 5, "А")
	newPupil(t, s, "other", 5, "Б")

	now := time.Now().UTC()
	for _, sub := range []result.Submission{
		{StudentID: a.ID, LessonNumber: 1, Score: 120, SubmittedAt: now},
		{StudentID: a.ID, LessonNumber: 2, Score: 80, SubmittedAt: now},
		{StudentID: b.ID, LessonNumber: 1, Score: 150, SubmittedAt: now},
	} {
		_, err := s.Upsert(ctx, sub)
		require.NoError(t, err)
	}

	standings, err := s.CohortStandings(ctx, student.Class{Level: 5, Letter: "А"})
	require.NoError(t, err)
	require.Equal(t, 3, standings.Size())

	totals := map[uuid.UUID]int{}
	for _, st := range standings {
		totals[st.StudentID] = st.TotalPoints
	}
	assert.Equal(t, 200, totals[a.ID])
	assert.Equal(t, 150, totals[b.ID])
	assert.Equal(t, 0, totals[c.ID])
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newPupil(t, s, "a", 5, "А")
	b := newPupil(t, s, "b", 6, "В")

	day1 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)
	_, err := s.Upsert(ctx, result.Submission{StudentID: a.ID, LessonNumber: 1, Score: 10, SubmittedAt: day1})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, result.Submission{StudentID: b.ID, LessonNumber: 1, Score: 20, SubmittedAt: day2})
	require.NoError(t, err)

	all, err := s.List(ctx, result.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Username, "most recent submission first")

	byClass, err := s.List(ctx, result.ListFilter{Level: 5, Letter: "а"})
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	assert.Equal(t, a.ID, byClass[0].StudentID)

	byDate, err := s.List(ctx, result.ListFilter{CompletedOn: &day2})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "b", byDate[0].Username)

	own, err := s.List(ctx, result.ListFilter{StudentID: &a.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "student", own[0].Role)
}
