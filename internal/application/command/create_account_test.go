package command

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/memory"
)

type prefixHasher struct{}

func (prefixHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func intPtr(v int) *int { return &v }

func TestCreateStudent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	h := NewCreateAccountHandler(store, nil, prefixHasher{}, nil)
	teacher := &student.Student{ID: uuid.New(), Username: "teacher", Membership: student.TeacherMembership{}}

	acc, err := h.CreateStudent(ctx, CreateStudentCommand{
		Caller:          teacher,
		Username:        "ivanov",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		FirstName:       "Иван",
		LastName:        "Иванов",
		Level:           intPtr(5),
		Letter:          "а",
	})
	require.NoError(t, err)
	assert.True(t, acc.IsStudent())
	assert.Equal(t, "hashed:secret123", acc.PasswordHash)
	assert.Equal(t, "5-А класс", acc.ClassDisplay())

	stored, err := store.GetByUsername(ctx, "ivanov")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, stored.ID)

	_, err = h.CreateStudent(ctx, CreateStudentCommand{
		Caller: teacher, Username: "ivanov", Password: "secret123", PasswordConfirm: "secret123",
		Level: intPtr(5), Letter: "А",
	})
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestCreateStudent_Rejections(t *testing.T) {
	ctx := context.Background()
	h := NewCreateAccountHandler(memory.NewStore(), nil, prefixHasher{}, nil)
	teacher := &student.Student{ID: uuid.New(), Membership: student.TeacherMembership{}}
	pupil := &student.Student{ID: uuid.New(), Membership: student.StudentMembership{Class: student.Class{Level: 3, Letter: "В"}}}

	base := CreateStudentCommand{
		Caller: teacher, Username: "new", Password: "password1", PasswordConfirm: "password1",
		Level: intPtr(3), Letter: "В",
	}

	cmd := base
	cmd.Caller = pupil
	_, err := h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsForbidden(err))

	cmd = base
	cmd.PasswordConfirm = "password2"
	_, err = h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = base
	cmd.Level = nil
	_, err = h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = base
	cmd.Level = intPtr(12)
	_, err = h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = base
	cmd.Letter = ""
	_, err = h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = base
	cmd.Password, cmd.PasswordConfirm = "short", "short"
	_, err = h.CreateStudent(ctx, cmd)
	assert.True(t, shared.IsValidation(err))
}

func TestCreateTeacher(t *testing.T) {
	h := NewCreateAccountHandler(memory.NewStore(), nil, prefixHasher{}, nil)

	acc, err := h.CreateTeacher(context.Background(), CreateTeacherCommand{Username: "marina", Password: "longenough"})
	require.NoError(t, err)
	assert.True(t, acc.IsTeacher())
	_, hasClass := acc.Class()
	assert.False(t, hasClass)
}

func TestCreateStudent_InvalidatesCohortCache(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	h := NewCreateAccountHandler(memory.NewStore(), cache, prefixHasher{}, nil)
	teacher := &student.Student{ID: uuid.New(), Username: "teacher", Membership: student.TeacherMembership{}}

	_, err := h.CreateStudent(ctx, CreateStudentCommand{
		Caller: teacher, Username: "petrov", Password: "secret123", PasswordConfirm: "secret123",
		Level: intPtr(5), Letter: "а",
	})
	require.NoError(t, err)
	require.Len(t, cache.invalidated, 1)
	assert.True(t, cache.invalidated[0].SameCohort(student.Class{Level: 5, Letter: "А"}))

	_, err = h.CreateStudent(ctx, CreateStudentCommand{
		Caller: teacher, Username: "petrov", Password: "secret123", PasswordConfirm: "secret123",
		Level: intPtr(5), Letter: "А",
	})
	require.True(t, shared.IsAlreadyExists(err))
	assert.Len(t, cache.invalidated, 1, "a failed create leaves the cache alone")

	_, err = h.CreateTeacher(ctx, CreateTeacherCommand{Username: "marina", Password: "longenough"})
	require.NoError(t, err)
	assert.Len(t, cache.invalidated, 1, "teachers belong to no cohort")
}

func TestCreateStudent_InvalidationFailureIsNotFatal(t *testing.T) {
	cache := &recordingCache{err: errors.New("redis down")}
	h := NewCreateAccountHandler(memory.NewStore(), cache, prefixHasher{}, nil)
	teacher := &student.Student{ID: uuid.New(), Membership: student.TeacherMembership{}}

	acc, err := h.CreateStudent(context.Background(), CreateStudentCommand{
		Caller: teacher, Username: "sidorov", Password: "secret123", PasswordConfirm: "secret123",
		Level: intPtr(2), Letter: "Б",
	})
	require.NoError(t, err)
	assert.Equal(t, "sidorov", acc.Username)
}
