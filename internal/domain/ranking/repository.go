package ranking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// CohortReader отдаёт суммы баллов когорты одним агрегирующим запросом.
type CohortReader interface {
	// CohortStandings возвращает (ученик, сумма лучших баллов) для каждого
	// ученика класса, включая учеников без записей (сумма 0).
	CohortStandings(ctx context.Context, class student.Class) (Standings, error)
}

// Generation - номер поколения кэша когорты. Растёт при каждой инвалидации.
type Generation int64

// StatsCache - необязательный кэш готовой статистики.
// Записи кэша инвалидируются для всей когорты при любой сдаче в ней
// и при появлении нового ученика.
type StatsCache interface {
	// Get возвращает статистику (ok=false при промахе) и поколение когорты,
	// прочитанное до обращения к записи. Статистику, посчитанную после
	// промаха, сохраняют под этим поколением.
	Get(ctx context.Context, class student.Class, studentID uuid.UUID) (Stats, Generation, bool, error)

	// Set сохраняет статистику на ttl под поколением gen. Если когорту
	// инвалидировали после чтения gen, запись уже никто не прочитает.
	Set(ctx context.Context, class student.Class, gen Generation, stats Stats, ttl time.Duration) error

	// InvalidateCohort делает недействительными все записи когорты.
	InvalidateCohort(ctx context.Context, class student.Class) error
}
