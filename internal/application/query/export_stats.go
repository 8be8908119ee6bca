package query

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT STATS QUERY
// Выгрузка статистики всех учеников для учителя: одна строка на ученика.
// Журнал читается одним запросом, суммы когорты - одним запросом на класс.
// ══════════════════════════════════════════════════════════════════════════════

// ExportStatsQuery содержит параметры выгрузки. Пустые поля не ограничивают выборку.
type ExportStatsQuery struct {
	Caller *student.Student

	Level  int
	Letter string
}

// StudentStatsRow - строка выгрузки.
type StudentStatsRow struct {
	Student *student.Student
	Stats   ranking.Stats

	// TotalAttempts - сумма попыток по всем урокам.
	TotalAttempts int
}

// ExportStatsHandler обрабатывает запрос выгрузки.
type ExportStatsHandler struct {
	students student.Repository
	results  result.Repository
	cohorts  ranking.CohortReader
}

// NewExportStatsHandler создаёт новый обработчик.
func NewExportStatsHandler(students student.Repository, results result.Repository, cohorts ranking.CohortReader) *ExportStatsHandler {
	return &ExportStatsHandler{students: students, results: results, cohorts: cohorts}
}

// Handle возвращает строки в порядке списка учеников: класс, буква, фамилия, имя.
func (h *ExportStatsHandler) Handle(ctx context.Context, q ExportStatsQuery) ([]StudentStatsRow, error) {
	if q.Caller == nil {
		return nil, shared.NewDomainError("ranking", "Export", shared.ErrUnauthorized, "authentication required")
	}
	if !q.Caller.IsTeacher() {
		return nil, shared.PermissionDenied("ranking", "Export", "only teachers can export stats")
	}
	if q.Level != 0 && (q.Level < student.MinLevel || q.Level > student.MaxLevel) {
		return nil, shared.Validationf("ranking", "Export", "level must be between %d and %d", student.MinLevel, student.MaxLevel)
	}

	members, err := h.students.ListStudents(ctx, student.ListFilter{Level: q.Level, Letter: q.Letter})
	if err != nil {
		return nil, shared.Storage("ranking", "Export", err)
	}

	entries, err := h.results.List(ctx, result.ListFilter{Level: q.Level, Letter: q.Letter})
	if err != nil {
		return nil, shared.Storage("ranking", "Export", err)
	}
	records := make(map[uuid.UUID][]result.Record, len(members))
	for _, e := range entries {
		records[e.StudentID] = append(records[e.StudentID], e.Record)
	}

	standings := make(map[string]ranking.Standings)
	rows := make([]StudentStatsRow, 0, len(members))
	for _, m := range members {
		class, ok := m.Class()
		if !ok {
			continue
		}

		key := strconv.Itoa(class.Level) + ":" + class.LetterKey()
		cohort, seen := standings[key]
		if !seen {
			cohort, err = h.cohorts.CohortStandings(ctx, class)
			if err != nil {
				return nil, shared.Storage("ranking", "Export", err)
			}
			standings[key] = cohort
		}

		own := records[m.ID]
		attempts := 0
		for _, r := range own {
			attempts += r.Attempts
		}
		rows = append(rows, StudentStatsRow{
			Student:       m,
			Stats:         ranking.Compute(m.ID, class.Display(), own, cohort),
			TotalAttempts: attempts,
		})
	}
	return rows, nil
}
