package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		check     func(error) bool
		wantMatch bool
	}{
		{"not found", ErrStudentNotFound, IsNotFound, true},
		{"wrapped not found", fmt.Errorf("load: %w", ErrStudentNotFound), IsNotFound, true},
		{"lesson number is validation", ErrInvalidLessonNumber, IsValidation, true},
		{"score is validation", ErrInvalidScore, IsValidation, true},
		{"submit denied", ErrSubmitNotAllowed, IsForbidden, true},
		{"stats denied", ErrStatsNotAllowed, IsForbidden, true},
		{"duplicate", ErrStudentAlreadyExists, IsAlreadyExists, true},
		{"storage retryable", Storage("result", "Upsert", errors.New("conn reset")), IsRetryable, true},
		{"validation not retryable", ErrInvalidScore, IsRetryable, false},
		{"forbidden not validation", ErrSubmitNotAllowed, IsValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, tt.check(tt.err))
		})
	}
}

func TestDomainError_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("result", "Upsert", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, "result.Upsert: storage failure: disk full", err.Error())
}

func TestValidationf(t *testing.T) {
	err := Validationf("student", "Create", "level %d is out of range", 12)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "level 12 is out of range")
}
