package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
)

func TestExportStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	top := f.pupil(t, "top", 5, "А")
	mid := f.pupil(t, "mid", 5, "а")
	f.pupil(t, "zero", 5, "А")
	other := f.pupil(t, "other", 6, "Б")
	f.submit(t, top, 1, 50)
	f.submit(t, top, 1, 120)
	f.submit(t, top, 2, 80)
	f.submit(t, mid, 1, 150)
	f.submit(t, other, 3, 30)
	h := NewExportStatsHandler(f.store, f.store, f.store)

	rows, err := h.Handle(ctx, ExportStatsQuery{Caller: f.teacher})
	require.NoError(t, err)
	require.Len(t, rows, 4, "teachers are not exported")

	byName := make(map[string]StudentStatsRow, len(rows))
	for _, r := range rows {
		byName[r.Student.Username] = r
	}

	assert.Equal(t, 200, byName["top"].Stats.TotalPoints)
	assert.Equal(t, 2, byName["top"].Stats.CompletedLessons)
	assert.InDelta(t, 100.0, byName["top"].Stats.AverageScore, 1e-9)
	assert.Equal(t, 3, byName["top"].TotalAttempts)
	assert.Equal(t, 1, byName["top"].Stats.RankInClass)
	assert.Equal(t, 2, byName["mid"].Stats.RankInClass)
	assert.Equal(t, 3, byName["mid"].Stats.ClassSize)
	assert.Equal(t, 4, byName["zero"].Stats.RankInClass)
	assert.Zero(t, byName["zero"].TotalAttempts)
	assert.Equal(t, 1, byName["other"].Stats.RankInClass)
	assert.Equal(t, 1, byName["other"].Stats.ClassSize)
	assert.Equal(t, "6-Б класс", byName["other"].Stats.ClassLabel)

	filtered, err := h.Handle(ctx, ExportStatsQuery{Caller: f.teacher, Level: 5, Letter: "а"})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)

	_, err = h.Handle(ctx, ExportStatsQuery{Caller: top})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(ctx, ExportStatsQuery{Caller: f.teacher, Level: 13})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, ExportStatsQuery{})
	assert.True(t, shared.IsUnauthorized(err))
}

func TestClassAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	top := f.pupil(t, "top", 5, "А")
	mid := f.pupil(t, "mid", 5, "а")
	f.pupil(t, "zero", 5, "А")
	parallel := f.pupil(t, "parallel", 5, "Б")
	f.submit(t, top, 1, 50)
	f.submit(t, top, 1, 120)
	f.submit(t, top, 2, 80)
	f.submit(t, mid, 1, 150)
	f.submit(t, parallel, 1, 10)
	h := NewGetClassAnalyticsHandler(f.store, f.store)

	res, err := h.Handle(ctx, GetClassAnalyticsQuery{Caller: f.teacher, Level: 5, Letter: "а"})
	require.NoError(t, err)
	assert.Equal(t, "А", res.Letter)
	assert.Equal(t, "5-А класс", res.Label)
	assert.Equal(t, 3, res.TotalStudents)
	assert.Equal(t, 2, res.ActiveStudents)
	assert.Equal(t, 350, res.TotalPoints)
	assert.Equal(t, 3, res.CompletedLessons)
	assert.Equal(t, 4, res.TotalAttempts)
	assert.InDelta(t, 350.0/3, res.AverageScore, 1e-9)

	require.Len(t, res.Lessons, 2)
	first := res.Lessons[0]
	assert.Equal(t, 1, first.LessonNumber)
	assert.Equal(t, 2, first.CompletedCount)
	assert.InDelta(t, 200.0/3, first.CompletionRate, 1e-9)
	assert.InDelta(t, 135.0, first.AverageBestScore, 1e-9)
	assert.Equal(t, 150, first.TopScore)
	assert.Equal(t, 3, first.TotalAttempts)
	second := res.Lessons[1]
	assert.Equal(t, 2, second.LessonNumber)
	assert.Equal(t, 1, second.CompletedCount)
	assert.InDelta(t, 80.0, second.AverageBestScore, 1e-9)

	whole, err := h.Handle(ctx, GetClassAnalyticsQuery{Caller: f.teacher, Level: 5})
	require.NoError(t, err)
	assert.Empty(t, whole.Letter)
	assert.Equal(t, "5-класс", whole.Label)
	assert.Equal(t, 4, whole.TotalStudents)
	require.Len(t, whole.Lessons, 2)
	assert.Equal(t, 3, whole.Lessons[0].CompletedCount)
	assert.InDelta(t, 75.0, whole.Lessons[0].CompletionRate, 1e-9)

	empty, err := h.Handle(ctx, GetClassAnalyticsQuery{Caller: f.teacher, Level: 9, Letter: "Д"})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalStudents)
	assert.Empty(t, empty.Lessons)
	assert.Zero(t, empty.AverageScore)

	_, err = h.Handle(ctx, GetClassAnalyticsQuery{Caller: f.teacher})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, GetClassAnalyticsQuery{Caller: f.teacher, Level: 5, Letter: "АБ"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, GetClassAnalyticsQuery{Caller: mid, Level: 5, Letter: "А"})
	assert.True(t, shared.IsForbidden(err))
}
