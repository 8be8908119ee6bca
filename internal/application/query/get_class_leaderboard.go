package query

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS LEADERBOARD QUERY
// Таблица класса: все ученики когорты по убыванию суммы баллов.
// Места считаются по тому же правилу, что и в статистике ученика.
// ══════════════════════════════════════════════════════════════════════════════

// GetClassLeaderboardQuery содержит параметры запроса.
type GetClassLeaderboardQuery struct {
	Caller *student.Student

	// Level и Letter - класс. Ученик может не указывать их или указать только
	// часть: недостающее берётся из своего класса.
	Level  int
	Letter string
}

// LeaderboardRow - строка таблицы класса.
type LeaderboardRow struct {
	Student     *student.Student
	TotalPoints int
	Rank        int
}

// ClassLeaderboard - таблица класса.
type ClassLeaderboard struct {
	Class student.Class
	Rows  []LeaderboardRow
}

// GetClassLeaderboardHandler обрабатывает запрос таблицы класса.
type GetClassLeaderboardHandler struct {
	students student.Repository
	cohorts  ranking.CohortReader
}

// NewGetClassLeaderboardHandler создаёт новый обработчик.
func NewGetClassLeaderboardHandler(students student.Repository, cohorts ranking.CohortReader) *GetClassLeaderboardHandler {
	return &GetClassLeaderboardHandler{students: students, cohorts: cohorts}
}

// Handle строит таблицу класса одним агрегирующим запросом к журналу.
func (h *GetClassLeaderboardHandler) Handle(ctx context.Context, q GetClassLeaderboardQuery) (*ClassLeaderboard, error) {
	class, err := h.resolveClass(q)
	if err != nil {
		return nil, err
	}

	standings, err := h.cohorts.CohortStandings(ctx, class)
	if err != nil {
		return nil, shared.Storage("ranking", "Leaderboard", err)
	}

	members, err := h.students.ListStudents(ctx, student.ListFilter{Level: class.Level, Letter: class.Letter})
	if err != nil {
		return nil, shared.Storage("ranking", "Leaderboard", err)
	}
	byID := make(map[uuid.UUID]*student.Student, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	ranks := standings.Ranks()
	board := &ClassLeaderboard{Class: class, Rows: make([]LeaderboardRow, 0, len(standings))}
	for _, st := range standings.Sorted() {
		m, ok := byID[st.StudentID]
		if !ok {
			continue
		}
		board.Rows = append(board.Rows, LeaderboardRow{
			Student:     m,
			TotalPoints: st.TotalPoints,
			Rank:        ranks[st.StudentID],
		})
	}
	return board, nil
}

func (h *GetClassLeaderboardHandler) resolveClass(q GetClassLeaderboardQuery) (student.Class, error) {
	caller := q.Caller
	if caller == nil {
		return student.Class{}, shared.NewDomainError("ranking", "Leaderboard", shared.ErrUnauthorized, "authentication required")
	}

	if own, ok := caller.Class(); ok {
		// Недостающая часть класса берётся из класса ученика.
		requested := own
		if q.Level != 0 {
			requested.Level = q.Level
		}
		if strings.TrimSpace(q.Letter) != "" {
			requested.Letter = q.Letter
		}
		if !own.SameCohort(requested) {
			return student.Class{}, shared.PermissionDenied("ranking", "Leaderboard", "students can only view their own class")
		}
		return own, nil
	}

	if !caller.IsTeacher() {
		return student.Class{}, shared.PermissionDenied("ranking", "Leaderboard", "unknown role")
	}
	if q.Level == 0 || q.Letter == "" {
		return student.Class{}, shared.Validationf("ranking", "Leaderboard", "level and level_letter are required")
	}
	return student.NewClass(q.Level, q.Letter)
}
