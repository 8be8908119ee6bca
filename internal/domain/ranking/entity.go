// Package ranking содержит правила подсчёта статистики ученика и места в классе.
// Пакет не обращается к хранилищу: данные приходят через CohortReader.
package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/result"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS
// ══════════════════════════════════════════════════════════════════════════════

// Standing - сумма лучших баллов одного ученика когорты.
type Standing struct {
	StudentID   uuid.UUID
	TotalPoints int
}

// Standings - суммы всех учеников когорты, включая тех, у кого нет записей.
type Standings []Standing

// Size возвращает число учеников в когорте.
func (s Standings) Size() int {
	return len(s)
}

// Totals возвращает только суммы баллов.
func (s Standings) Totals() []int {
	totals := make([]int, len(s))
	for i, st := range s {
		totals[i] = st.TotalPoints
	}
	return totals
}

// Sorted возвращает копию, упорядоченную по убыванию суммы.
// При равенстве порядок определяется ID, чтобы список был стабильным.
func (s Standings) Sorted() Standings {
	out := make(Standings, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].StudentID.String() < out[j].StudentID.String()
	})
	return out
}

// Ranks считает место каждого ученика когорты за один проход по
// отсортированному списку.
func (s Standings) Ranks() map[uuid.UUID]int {
	sorted := s.Sorted()
	ranks := make(map[uuid.UUID]int, len(sorted))
	greater := 0
	for i, st := range sorted {
		if i > 0 && st.TotalPoints < sorted[i-1].TotalPoints {
			greater = i
		}
		if st.TotalPoints == 0 {
			ranks[st.StudentID] = len(sorted) + 1
			continue
		}
		ranks[st.StudentID] = greater + 1
	}
	return ranks
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK RULE
// ══════════════════════════════════════════════════════════════════════════════

// Rank возвращает место ученика с суммой total среди сумм когорты.
//
// Место = 1 + число учеников со строго большей суммой. Ученик с нулём баллов
// всегда последний: cohortSize+1, если когорта не пуста, иначе 1. Все
// нулевые ученики получают одно и то же место.
func Rank(total int, cohortTotals []int) int {
	if total == 0 {
		if len(cohortTotals) > 0 {
			return len(cohortTotals) + 1
		}
		return 1
	}

	greater := 0
	for _, t := range cohortTotals {
		if t > total {
			greater++
		}
	}
	return greater + 1
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// LessonDetail - строка детализации по уроку.
type LessonDetail struct {
	LessonNumber    int
	BestScore       int
	Attempts        int
	LastSubmittedAt time.Time
}

// Stats - сводная статистика ученика.
type Stats struct {
	StudentID        uuid.UUID
	TotalPoints      int
	CompletedLessons int
	AverageScore     float64
	RankInClass      int
	ClassSize        int
	ClassLabel       string
	Lessons          []LessonDetail
}

// Compute собирает статистику ученика по его записям и суммам когорты.
func Compute(studentID uuid.UUID, classLabel string, records []result.Record, cohort Standings) Stats {
	sorted := make([]result.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessonNumber < sorted[j].LessonNumber
	})

	stats := Stats{
		StudentID:        studentID,
		CompletedLessons: len(sorted),
		ClassSize:        cohort.Size(),
		ClassLabel:       classLabel,
		Lessons:          make([]LessonDetail, 0, len(sorted)),
	}

	for _, r := range sorted {
		stats.TotalPoints += r.BestScore
		stats.Lessons = append(stats.Lessons, LessonDetail{
			LessonNumber:    r.LessonNumber,
			BestScore:       r.BestScore,
			Attempts:        r.Attempts,
			LastSubmittedAt: r.LastSubmittedAt,
		})
	}

	if stats.CompletedLessons > 0 {
		stats.AverageScore = float64(stats.TotalPoints) / float64(stats.CompletedLessons)
	}

	stats.RankInClass = Rank(stats.TotalPoints, cohort.Totals())
	return stats
}
