package student

import (
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
)

func intPtr(v int) *int { return &v }

func TestNewClass(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		letter  string
		wantErr bool
	}{
		{"cyrillic letter", 5, "А", false},
		{"latin letter", 11, "b", false},
		{"trimmed", 1, " Е ", false},
		{"level zero", 0, "А", true},
		{"level twelve", 12, "А", true},
		{"empty letter", 5, "", true},
		{"two letters", 5, "АБ", true},
		{"digit", 5, "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClass(tt.level, tt.letter)
			if tt.wantErr {
				assert.True(t, shared.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClass_SameCohortIgnoresLetterCase(t *testing.T) {
	upper, err := NewClass(5, "А")
	require.NoError(t, err)
	lower, err := NewClass(5, "а")
	require.NoError(t, err)
	other, err := NewClass(6, "а")
	require.NoError(t, err)

	assert.True(t, upper.SameCohort(lower))
	assert.False(t, upper.SameCohort(other))
	assert.Equal(t, "А", lower.LetterKey())
}

func TestLetterKey_IsOneRunePerLetter(t *testing.T) {
	tests := []struct {
		letter string
		want   string
	}{
		{"а", "А"},
		{" b ", "B"},
		{"ß", "ß"},
		{"ẞ", "ß"},
		{"ё", "Ё"},
	}
	for _, tt := range tests {
		t.Run(tt.letter, func(t *testing.T) {
			key := LetterKey(tt.letter)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, 1, utf8.RuneCountInString(key))
		})
	}

	class, err := NewClass(7, "ß")
	require.NoError(t, err)
	assert.Equal(t, 1, utf8.RuneCountInString(class.LetterKey()))
	assert.True(t, class.SameCohort(Class{Level: 7, Letter: "ẞ"}))
}

func TestClass_Display(t *testing.T) {
	assert.Equal(t, "5-А класс", Class{Level: 5, Letter: "а"}.Display())
	assert.Equal(t, "5-класс", Class{Level: 5}.Display())
}

func TestRestoreMembership(t *testing.T) {
	t.Run("teacher without class", func(t *testing.T) {
		m, err := RestoreMembership("teacher", nil, "")
		require.NoError(t, err)
		assert.Equal(t, RoleTeacher, m.Role())
	})

	t.Run("teacher with level is rejected", func(t *testing.T) {
		_, err := RestoreMembership("teacher", intPtr(5), "")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("teacher with letter is rejected", func(t *testing.T) {
		_, err := RestoreMembership("teacher", nil, "А")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("student without level is rejected", func(t *testing.T) {
		_, err := RestoreMembership("student", nil, "А")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("student without letter is rejected", func(t *testing.T) {
		_, err := RestoreMembership("student", intPtr(5), "")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("student with class", func(t *testing.T) {
		m, err := RestoreMembership("student", intPtr(7), "Б")
		require.NoError(t, err)
		sm, ok := m.(StudentMembership)
		require.True(t, ok)
		assert.Equal(t, Class{Level: 7, Letter: "Б"}, sm.Class)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := RestoreMembership("admin", nil, "")
		assert.ErrorIs(t, err, shared.ErrInvalidRole)
	})
}

func TestStudent_Accessors(t *testing.T) {
	s := &Student{
		Username:   "petrov",
		FirstName:  "Пётр",
		LastName:   "Петров",
		Membership: StudentMembership{Class: Class{Level: 5, Letter: "А"}},
	}

	assert.True(t, s.IsStudent())
	assert.False(t, s.IsTeacher())
	assert.Equal(t, "Пётр Петров", s.FullName())
	assert.Equal(t, "5-А класс", s.ClassDisplay())
	require.NotNil(t, s.Level())
	assert.Equal(t, 5, *s.Level())

	teacher := &Student{Username: "marina", Membership: TeacherMembership{}}
	assert.True(t, teacher.IsTeacher())
	assert.Equal(t, "marina", teacher.FullName())
	assert.Empty(t, teacher.ClassDisplay())
	assert.Nil(t, teacher.Level())
	_, ok := teacher.Class()
	assert.False(t, ok)
}

func TestNewAccount(t *testing.T) {
	acc, err := NewAccount(NewAccountParams{
		Username:     "  ivanov ",
		PasswordHash: "hash",
		Membership:   TeacherMembership{},
	})
	require.NoError(t, err)
	assert.Equal(t, "ivanov", acc.Username)
	assert.NotEqual(t, uuid.Nil, acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())

	_, err = NewAccount(NewAccountParams{Username: "a b", PasswordHash: "h", Membership: TeacherMembership{}})
	assert.True(t, shared.IsValidation(err))

	_, err = NewAccount(NewAccountParams{Username: "nobody", PasswordHash: "h"})
	assert.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestListFilter(t *testing.T) {
	a := &Student{FirstName: "Анна", LastName: "Смирнова", Membership: StudentMembership{Class: Class{Level: 5, Letter: "а"}}}
	b := &Student{FirstName: "Борис", LastName: "Алексеев", Membership: StudentMembership{Class: Class{Level: 5, Letter: "Б"}}}
	c := &Student{FirstName: "Вера", LastName: "Алексеева", Membership: StudentMembership{Class: Class{Level: 4, Letter: "А"}}}
	teacher := &Student{FirstName: "Анна", Membership: TeacherMembership{}}

	assert.True(t, ListFilter{Level: 5, Letter: "А"}.Matches(a))
	assert.False(t, ListFilter{Level: 5, Letter: "А"}.Matches(b))
	assert.True(t, ListFilter{LastName: "алексеев"}.Matches(c))
	assert.False(t, ListFilter{FirstName: "анна"}.Matches(teacher))

	list := []*Student{a, b, c}
	SortForListing(list)
	assert.Equal(t, []*Student{c, a, b}, list)
}
