// Package result содержит доменную модель журнала результатов:
// лучший балл, число попыток и время последней сдачи по каждому уроку ученика.
package result

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING POLICY
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultMaxScore - верхняя граница балла по умолчанию.
	DefaultMaxScore = 1000

	// MinLessonNumber - уроки нумеруются с единицы.
	MinLessonNumber = 1
)

// Policy задаёт допустимые значения сдачи.
type Policy struct {
	MaxScore int
}

// DefaultPolicy возвращает политику с верхней границей 1000.
func DefaultPolicy() Policy {
	return Policy{MaxScore: DefaultMaxScore}
}

// Validate проверяет номер урока и балл.
func (p Policy) Validate(lessonNumber, score int) error {
	if lessonNumber < MinLessonNumber {
		return shared.ErrInvalidLessonNumber
	}
	if score < 0 || score > p.MaxScore {
		return shared.NewDomainError("result", "Validate", shared.ErrValueOutOfRange,
			fmt.Sprintf("score must be between 0 and %d", p.MaxScore))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record - запись журнала по паре (ученик, урок). Записи не удаляются.
type Record struct {
	StudentID    uuid.UUID
	LessonNumber int

	// BestScore - максимальный балл среди всех сдач.
	BestScore int

	// Attempts - число сдач, только растёт.
	Attempts int

	// LastSubmittedAt - время последней сдачи, обновляется при каждой сдаче.
	LastSubmittedAt time.Time
}

// Submission - одна сдача урока.
type Submission struct {
	StudentID    uuid.UUID
	LessonNumber int
	Score        int
	SubmittedAt  time.Time
}

// FirstRecord создаёт запись для первой сдачи урока.
func FirstRecord(sub Submission) Record {
	return Record{
		StudentID:       sub.StudentID,
		LessonNumber:    sub.LessonNumber,
		BestScore:       sub.Score,
		Attempts:        1,
		LastSubmittedAt: sub.SubmittedAt,
	}
}

// Apply применяет повторную сдачу к существующей записи.
// Балл заменяется только строго большим, попытка и время учитываются всегда.
func (r Record) Apply(sub Submission) Record {
	next := r
	next.Attempts++
	if sub.Score > next.BestScore {
		next.BestScore = sub.Score
	}
	next.LastSubmittedAt = sub.SubmittedAt
	return next
}

// Key возвращает ключ записи.
func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, LessonNumber: r.LessonNumber}
}

// Key - уникальный ключ записи журнала.
type Key struct {
	StudentID    uuid.UUID
	LessonNumber int
}

// Key возвращает ключ записи, к которой относится сдача.
func (s Submission) Key() Key {
	return Key{StudentID: s.StudentID, LessonNumber: s.LessonNumber}
}
