package student

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции над учётными записями.
type Repository interface {
	// Create сохраняет новую учётную запись.
	// Возвращает ErrStudentAlreadyExists, если логин занят.
	Create(ctx context.Context, s *Student) error

	// GetByID возвращает учётную запись по ID.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)

	// GetByUsername возвращает учётную запись по логину.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	GetByUsername(ctx context.Context, username string) (*Student, error)

	// ListStudents возвращает учеников (role=student), подходящих под фильтр,
	// в порядке: класс, буква, фамилия, имя.
	ListStudents(ctx context.Context, filter ListFilter) ([]*Student, error)
}

// ListFilter - фильтр списка учеников. Пустые поля не ограничивают выборку.
type ListFilter struct {
	// FirstName и LastName - поиск подстроки без учёта регистра.
	FirstName string
	LastName  string

	// Level - номер класса, 0 - любой.
	Level int

	// Letter - буква класса, сравнение без учёта регистра.
	Letter string
}

// Matches проверяет ученика на соответствие фильтру.
// Используется хранилищами, которые фильтруют в памяти.
func (f ListFilter) Matches(s *Student) bool {
	class, ok := s.Class()
	if !ok {
		return false
	}
	if f.FirstName != "" && !containsFold(s.FirstName, f.FirstName) {
		return false
	}
	if f.LastName != "" && !containsFold(s.LastName, f.LastName) {
		return false
	}
	if f.Level != 0 && class.Level != f.Level {
		return false
	}
	if f.Letter != "" && class.LetterKey() != LetterKey(f.Letter) {
		return false
	}
	return true
}

// SortForListing упорядочивает учеников так же, как ListStudents.
func SortForListing(students []*Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		ca, _ := a.Class()
		cb, _ := b.Class()
		if ca.Level != cb.Level {
			return ca.Level < cb.Level
		}
		if ca.LetterKey() != cb.LetterKey() {
			return ca.LetterKey() < cb.LetterKey()
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
