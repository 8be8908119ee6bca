package command

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ACCOUNT COMMANDS
// Teachers create student accounts; teacher accounts come from the admin CLI.
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand contains the data for a new student account.
type CreateStudentCommand struct {
	// Caller must be a teacher.
	Caller *student.Student

	Username        string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Email           string

	// Level is required; nil means it was not supplied.
	Level  *int
	Letter string
}

// CreateTeacherCommand contains the data for a new teacher account.
type CreateTeacherCommand struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// CreateAccountHandler creates accounts.
type CreateAccountHandler struct {
	students student.Repository
	cache    ranking.StatsCache
	hasher   PasswordHasher
	log      *logger.Logger
}

// NewCreateAccountHandler creates a new handler. cache may be nil.
func NewCreateAccountHandler(
	students student.Repository,
	cache ranking.StatsCache,
	hasher PasswordHasher,
	log *logger.Logger,
) *CreateAccountHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CreateAccountHandler{
		students: students,
		cache:    cache,
		hasher:   hasher,
		log:      log.With(logger.Component("create_account")),
	}
}

// CreateStudent creates a student account on behalf of a teacher.
func (h *CreateAccountHandler) CreateStudent(ctx context.Context, cmd CreateStudentCommand) (*student.Student, error) {
	if cmd.Caller == nil {
		return nil, shared.NewDomainError("student", "CreateStudent", shared.ErrUnauthorized, "authentication required")
	}
	if !cmd.Caller.IsTeacher() {
		return nil, shared.PermissionDenied("student", "CreateStudent", "only teachers can create students")
	}
	if cmd.Password != cmd.PasswordConfirm {
		return nil, shared.Validationf("student", "CreateStudent", "passwords do not match")
	}
	if cmd.Level == nil {
		return nil, shared.Validationf("student", "CreateStudent", "class level is required for a student")
	}

	class, err := student.NewClass(*cmd.Level, cmd.Letter)
	if err != nil {
		return nil, err
	}

	acc, err := h.create(ctx, "CreateStudent", cmd.Username, cmd.Password, cmd.FirstName, cmd.LastName, cmd.Email,
		student.StudentMembership{Class: class})
	if err != nil {
		return nil, err
	}

	// A new member changes the class size and the rank of every zero scorer.
	if h.cache != nil {
		if err := h.cache.InvalidateCohort(ctx, class); err != nil {
			h.log.Warn("stats cache invalidation failed",
				logger.Class(class.Display()),
				logger.Err(err),
			)
		}
	}

	h.log.Info("student created",
		logger.StudentID(acc.ID.String()),
		logger.Username(acc.Username),
		logger.Class(class.Display()),
		logger.String("created_by", cmd.Caller.Username),
	)
	return acc, nil
}

// CreateTeacher creates a teacher account.
func (h *CreateAccountHandler) CreateTeacher(ctx context.Context, cmd CreateTeacherCommand) (*student.Student, error) {
	acc, err := h.create(ctx, "CreateTeacher", cmd.Username, cmd.Password, cmd.FirstName, cmd.LastName, cmd.Email,
		student.TeacherMembership{})
	if err != nil {
		return nil, err
	}

	h.log.Info("teacher created", logger.StudentID(acc.ID.String()), logger.Username(acc.Username))
	return acc, nil
}

func (h *CreateAccountHandler) create(
	ctx context.Context,
	op, username, password, firstName, lastName, email string,
	membership student.Membership,
) (*student.Student, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, shared.Validationf("student", op, "password must be at least %d characters", MinPasswordLength)
	}
	if strings.TrimSpace(username) == "" {
		return nil, shared.Validationf("student", op, "username is required")
	}

	hash, err := h.hasher.Hash(password)
	if err != nil {
		return nil, shared.WrapError("student", op, shared.ErrInvalidInput, "cannot hash password", err)
	}

	acc, err := student.NewAccount(student.NewAccountParams{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Membership:   membership,
	})
	if err != nil {
		return nil, err
	}

	if err := h.students.Create(ctx, acc); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, shared.ErrStudentAlreadyExists
		}
		return nil, shared.Storage("student", op, err)
	}
	return acc, nil
}
