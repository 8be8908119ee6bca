// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT STATS QUERY
// Статистика ученика: сумма баллов, число уроков, средний балл, место в классе
// и детализация по урокам.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentStatsQuery содержит параметры запроса статистики.
type GetStudentStatsQuery struct {
	// Caller - текущий пользователь.
	Caller *student.Student

	// TargetID - чья статистика нужна. nil - своя.
	TargetID *uuid.UUID
}

// StudentStatsResult - статистика вместе с учеником, к которому она относится.
type StudentStatsResult struct {
	Student *student.Student
	Stats   ranking.Stats

	// FromCache - результат взят из кэша.
	FromCache bool
}

// GetStudentStatsHandler обрабатывает запросы статистики.
type GetStudentStatsHandler struct {
	students student.Repository
	results  result.Repository
	cohorts  ranking.CohortReader
	cache    ranking.StatsCache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewGetStudentStatsHandler создаёт новый обработчик. cache может быть nil.
func NewGetStudentStatsHandler(
	students student.Repository,
	results result.Repository,
	cohorts ranking.CohortReader,
	cache ranking.StatsCache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *GetStudentStatsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetStudentStatsHandler{
		students: students,
		results:  results,
		cohorts:  cohorts,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With(logger.Component("student_stats")),
	}
}

// Handle выполняет запрос.
//
// Права: ученик видит только свою статистику, учитель - любого ученика по ID.
// Права проверяются до поиска цели, поэтому ученик не может узнать,
// существует ли чужой ID.
func (h *GetStudentStatsHandler) Handle(ctx context.Context, q GetStudentStatsQuery) (*StudentStatsResult, error) {
	target, err := h.resolveTarget(ctx, q)
	if err != nil {
		return nil, err
	}

	class, ok := target.Class()
	if !ok {
		return nil, shared.ErrStudentNotFound
	}

	// Поколение читается до обращения к журналу: если сдача успеет
	// инвалидировать когорту во время расчёта, результат уйдёт под старое
	// поколение и не будет прочитан.
	var (
		gen       ranking.Generation
		cacheable bool
	)
	if h.cache != nil {
		cached, g, hit, err := h.cache.Get(ctx, class, target.ID)
		switch {
		case err != nil:
			h.log.Warn("stats cache read failed", logger.StudentID(target.ID.String()), logger.Err(err))
		case hit:
			return &StudentStatsResult{Student: target, Stats: cached, FromCache: true}, nil
		default:
			gen, cacheable = g, true
		}
	}

	records, err := h.results.ListByStudent(ctx, target.ID)
	if err != nil {
		return nil, shared.Storage("ranking", "Stats", err)
	}

	standings, err := h.cohorts.CohortStandings(ctx, class)
	if err != nil {
		return nil, shared.Storage("ranking", "Stats", err)
	}

	stats := ranking.Compute(target.ID, class.Display(), records, standings)

	if cacheable {
		if err := h.cache.Set(ctx, class, gen, stats, h.cacheTTL); err != nil {
			h.log.Warn("stats cache write failed", logger.StudentID(target.ID.String()), logger.Err(err))
		}
	}

	h.log.Debug("stats computed",
		logger.StudentID(target.ID.String()),
		logger.Class(stats.ClassLabel),
		logger.RankPosition(stats.RankInClass),
		logger.Int("class_size", stats.ClassSize),
	)

	return &StudentStatsResult{Student: target, Stats: stats}, nil
}

// resolveTarget определяет, чья статистика запрошена, и проверяет права.
func (h *GetStudentStatsHandler) resolveTarget(ctx context.Context, q GetStudentStatsQuery) (*student.Student, error) {
	caller := q.Caller
	if caller == nil {
		return nil, shared.NewDomainError("ranking", "Stats", shared.ErrUnauthorized, "authentication required")
	}

	switch {
	case caller.IsStudent():
		if q.TargetID != nil && *q.TargetID != caller.ID {
			return nil, shared.ErrStatsNotAllowed
		}
		return caller, nil

	case caller.IsTeacher():
		if q.TargetID == nil {
			return nil, shared.PermissionDenied("ranking", "Stats", "teachers have no own stats, pass a student id")
		}
		target, err := h.students.GetByID(ctx, *q.TargetID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.ErrStudentNotFound
			}
			return nil, shared.Storage("ranking", "Stats", err)
		}
		if !target.IsStudent() {
			return nil, shared.ErrStudentNotFound
		}
		return target, nil

	default:
		return nil, shared.ErrStatsNotAllowed
	}
}
