package query

import (
	"context"

	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST RESULTS QUERY
// Журнал результатов: ученик видит только свои записи, учитель - все.
// ══════════════════════════════════════════════════════════════════════════════

// ListResultsQuery содержит параметры запроса.
type ListResultsQuery struct {
	Caller *student.Student
	Filter result.ListFilter
}

// ListResultsHandler обрабатывает запрос журнала.
type ListResultsHandler struct {
	results result.Repository
}

// NewListResultsHandler создаёт новый обработчик.
func NewListResultsHandler(results result.Repository) *ListResultsHandler {
	return &ListResultsHandler{results: results}
}

// Handle возвращает записи журнала, новые сдачи первыми.
func (h *ListResultsHandler) Handle(ctx context.Context, q ListResultsQuery) ([]result.Entry, error) {
	if q.Caller == nil {
		return nil, shared.NewDomainError("result", "List", shared.ErrUnauthorized, "authentication required")
	}

	filter := q.Filter
	switch {
	case q.Caller.IsStudent():
		id := q.Caller.ID
		filter.StudentID = &id
	case q.Caller.IsTeacher():
		// учитель видит всех
	default:
		return nil, shared.PermissionDenied("result", "List", "unknown role")
	}

	if filter.CompletedFrom != nil && filter.CompletedTo != nil && filter.CompletedFrom.After(*filter.CompletedTo) {
		return nil, shared.Validationf("result", "List", "completed_from must not be after completed_to")
	}

	entries, err := h.results.List(ctx, filter)
	if err != nil {
		return nil, shared.Storage("result", "List", err)
	}
	return entries, nil
}
