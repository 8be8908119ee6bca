package result

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции журнала результатов.
type Repository interface {
	// Upsert атомарно применяет сдачу: создаёт запись или обновляет существующую
	// по правилу Record.Apply. Параллельные сдачи одного ключа не теряются.
	Upsert(ctx context.Context, sub Submission) (Record, error)

	// ListByStudent возвращает записи ученика по возрастанию номера урока.
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]Record, error)

	// List возвращает записи с данными ученика, новые сдачи первыми.
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// ListFilter - фильтр журнала. Пустые поля не ограничивают выборку.
type ListFilter struct {
	// StudentID ограничивает выборку одним учеником.
	StudentID *uuid.UUID

	// Level - номер класса ученика, 0 - любой.
	Level int

	// Letter - буква класса, без учёта регистра.
	Letter string

	// CompletedOn - точная дата последней сдачи (UTC).
	CompletedOn *time.Time

	// CompletedFrom и CompletedTo - включительный диапазон дат (UTC).
	CompletedFrom *time.Time
	CompletedTo   *time.Time
}

// MatchesDate проверяет дату последней сдачи на соответствие фильтру.
func (f ListFilter) MatchesDate(at time.Time) bool {
	day := truncateDay(at)
	if f.CompletedOn != nil && !day.Equal(truncateDay(*f.CompletedOn)) {
		return false
	}
	if f.CompletedFrom != nil && day.Before(truncateDay(*f.CompletedFrom)) {
		return false
	}
	if f.CompletedTo != nil && day.After(truncateDay(*f.CompletedTo)) {
		return false
	}
	return true
}

// Entry - запись журнала вместе с данными ученика для списков.
type Entry struct {
	Record

	Username string
	FullName string
	Role     string
	Level    *int
	Letter   string
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
