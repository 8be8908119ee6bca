package query

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS ANALYTICS QUERY
// Сводка по классу для учителя: итоги класса и показатели каждого урока,
// который сдавал хотя бы один ученик.
// ══════════════════════════════════════════════════════════════════════════════

// GetClassAnalyticsQuery содержит параметры запроса.
// Level обязателен; без буквы сводка строится по всей параллели.
type GetClassAnalyticsQuery struct {
	Caller *student.Student

	Level  int
	Letter string
}

// LessonAnalytics - показатели одного урока в классе.
type LessonAnalytics struct {
	LessonNumber int

	// CompletedCount - сколько учеников сдали урок хотя бы раз.
	CompletedCount int

	// CompletionRate - доля сдавших от размера класса, в процентах.
	CompletionRate float64

	// AverageBestScore - средний лучший балл среди сдавших.
	AverageBestScore float64
	TopScore         int
	TotalAttempts    int
}

// ClassAnalytics - сводка по классу.
type ClassAnalytics struct {
	Level int

	// Letter - буква класса в верхнем регистре или "" для всей параллели.
	Letter string
	Label  string

	TotalStudents  int
	ActiveStudents int

	// TotalPoints - сумма лучших баллов всех учеников по всем урокам.
	TotalPoints      int
	CompletedLessons int
	AverageScore     float64
	TotalAttempts    int

	Lessons []LessonAnalytics
}

// GetClassAnalyticsHandler обрабатывает запрос сводки.
type GetClassAnalyticsHandler struct {
	students student.Repository
	results  result.Repository
}

// NewGetClassAnalyticsHandler создаёт новый обработчик.
func NewGetClassAnalyticsHandler(students student.Repository, results result.Repository) *GetClassAnalyticsHandler {
	return &GetClassAnalyticsHandler{students: students, results: results}
}

// Handle строит сводку по списку учеников и журналу класса.
func (h *GetClassAnalyticsHandler) Handle(ctx context.Context, q GetClassAnalyticsQuery) (*ClassAnalytics, error) {
	if q.Caller == nil {
		return nil, shared.NewDomainError("ranking", "Analytics", shared.ErrUnauthorized, "authentication required")
	}
	if !q.Caller.IsTeacher() {
		return nil, shared.PermissionDenied("ranking", "Analytics", "only teachers can view class analytics")
	}

	out := &ClassAnalytics{Level: q.Level}
	if strings.TrimSpace(q.Letter) == "" {
		if q.Level < student.MinLevel || q.Level > student.MaxLevel {
			return nil, shared.Validationf("ranking", "Analytics", "level must be between %d and %d", student.MinLevel, student.MaxLevel)
		}
		out.Label = student.Class{Level: q.Level}.Display()
	} else {
		class, err := student.NewClass(q.Level, q.Letter)
		if err != nil {
			return nil, err
		}
		out.Letter = class.LetterKey()
		out.Label = class.Display()
	}

	members, err := h.students.ListStudents(ctx, student.ListFilter{Level: q.Level, Letter: out.Letter})
	if err != nil {
		return nil, shared.Storage("ranking", "Analytics", err)
	}
	entries, err := h.results.List(ctx, result.ListFilter{Level: q.Level, Letter: out.Letter})
	if err != nil {
		return nil, shared.Storage("ranking", "Analytics", err)
	}

	inClass := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		inClass[m.ID] = struct{}{}
	}
	out.TotalStudents = len(inClass)

	active := make(map[uuid.UUID]struct{})
	byLesson := make(map[int]*LessonAnalytics)
	for _, e := range entries {
		if _, ok := inClass[e.StudentID]; !ok {
			continue
		}
		active[e.StudentID] = struct{}{}

		out.TotalPoints += e.BestScore
		out.CompletedLessons++
		out.TotalAttempts += e.Attempts

		l, ok := byLesson[e.LessonNumber]
		if !ok {
			l = &LessonAnalytics{LessonNumber: e.LessonNumber}
			byLesson[e.LessonNumber] = l
		}
		l.CompletedCount++
		l.TotalAttempts += e.Attempts
		l.AverageBestScore += float64(e.BestScore)
		if e.BestScore > l.TopScore {
			l.TopScore = e.BestScore
		}
	}
	out.ActiveStudents = len(active)
	if out.CompletedLessons > 0 {
		out.AverageScore = float64(out.TotalPoints) / float64(out.CompletedLessons)
	}

	out.Lessons = make([]LessonAnalytics, 0, len(byLesson))
	for _, l := range byLesson {
		// В AverageBestScore до этого момента копилась сумма.
		l.AverageBestScore /= float64(l.CompletedCount)
		l.CompletionRate = float64(l.CompletedCount) / float64(out.TotalStudents) * 100
		out.Lessons = append(out.Lessons, *l)
	}
	sort.Slice(out.Lessons, func(i, j int) bool {
		return out.Lessons[i].LessonNumber < out.Lessons[j].LessonNumber
	})
	return out, nil
}
