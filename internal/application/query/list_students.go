package query

import (
	"context"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// Список учеников для учителя с фильтрами по имени и классу.
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery содержит параметры запроса.
type ListStudentsQuery struct {
	Caller *student.Student
	Filter student.ListFilter
}

// ListStudentsHandler обрабатывает запрос списка учеников.
type ListStudentsHandler struct {
	students student.Repository
}

// NewListStudentsHandler создаёт новый обработчик.
func NewListStudentsHandler(students student.Repository) *ListStudentsHandler {
	return &ListStudentsHandler{students: students}
}

// Handle возвращает учеников, упорядоченных по классу, букве, фамилии и имени.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) ([]*student.Student, error) {
	if q.Caller == nil {
		return nil, shared.NewDomainError("student", "List", shared.ErrUnauthorized, "authentication required")
	}
	if !q.Caller.IsTeacher() {
		return nil, shared.PermissionDenied("student", "List", "only teachers can list students")
	}
	if q.Filter.Level != 0 && (q.Filter.Level < student.MinLevel || q.Filter.Level > student.MaxLevel) {
		return nil, shared.Validationf("student", "List", "level must be between %d and %d", student.MinLevel, student.MaxLevel)
	}

	list, err := h.students.ListStudents(ctx, q.Filter)
	if err != nil {
		return nil, shared.Storage("student", "List", err)
	}
	return list, nil
}
