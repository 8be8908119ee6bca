// Package student содержит доменную модель учётной записи школы: ученика или учителя.
// Это ядро бизнес-логики - здесь нет инфраструктурных зависимостей.
package student

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role определяет роль учётной записи.
type Role string

const (
	// RoleStudent - ученик, сдаёт уроки и участвует в рейтинге класса.
	RoleStudent Role = "student"
	// RoleTeacher - учитель, создаёт учеников и смотрит их статистику.
	RoleTeacher Role = "teacher"
)

// IsValid проверяет, что роль корректна.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// ParseRole разбирает роль из строки хранилища.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrInvalidRole
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinLevel - младший номер класса.
	MinLevel = 1
	// MaxLevel - старший номер класса.
	MaxLevel = 11
	// MaxUsernameLength - ограничение длины логина.
	MaxUsernameLength = 150
)

// Class - класс ученика: номер 1-11 и ровно одна буква ("5-А").
type Class struct {
	Level  int
	Letter string
}

// NewClass создаёт класс с валидацией номера и буквы.
func NewClass(level int, letter string) (Class, error) {
	if level < MinLevel || level > MaxLevel {
		return Class{}, shared.Validationf("student", "NewClass", "level must be between %d and %d", MinLevel, MaxLevel)
	}

	letter = strings.TrimSpace(letter)
	if utf8.RuneCountInString(letter) != 1 {
		return Class{}, shared.Validationf("student", "NewClass", "class letter must be exactly one letter")
	}
	r, _ := utf8.DecodeRuneInString(letter)
	if !unicode.IsLetter(r) {
		return Class{}, shared.Validationf("student", "NewClass", "class letter must be a letter")
	}

	return Class{Level: level, Letter: letter}, nil
}

// LetterKey возвращает букву в верхнем регистре.
// Буквы сравниваются без учёта регистра: "а" и "А" - один класс.
func (c Class) LetterKey() string {
	return LetterKey(c.Letter)
}

// LetterKey нормализует букву класса для сравнения.
// Регистр меняется посимвольно, поэтому ключ всегда той же длины в символах,
// что и буква ("ß" не превращается в "SS").
func LetterKey(letter string) string {
	return strings.Map(foldLetter, strings.TrimSpace(letter))
}

// foldLetter приводит обе формы буквы к одной: "ß" и "ẞ" дают один ключ.
func foldLetter(r rune) rune {
	return unicode.ToUpper(unicode.ToLower(r))
}

// SameCohort проверяет, что два класса - одна параллель с одной буквой.
func (c Class) SameCohort(other Class) bool {
	return c.Level == other.Level && c.LetterKey() == other.LetterKey()
}

// Display возвращает подпись класса: "5-А класс" или "5-класс" без буквы.
func (c Class) Display() string {
	if c.Letter == "" {
		return strconv.Itoa(c.Level) + "-класс"
	}
	return strconv.Itoa(c.Level) + "-" + c.LetterKey() + " класс"
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIP
// Роль и класс хранятся вместе: учитель с классом непредставим.
// ══════════════════════════════════════════════════════════════════════════════

// Membership - закрытый вариант: TeacherMembership или StudentMembership.
type Membership interface {
	Role() Role
	isMembership()
}

// TeacherMembership - учитель, класса нет.
type TeacherMembership struct{}

// Role реализует Membership.
func (TeacherMembership) Role() Role { return RoleTeacher }
func (TeacherMembership) isMembership() {}

// StudentMembership - ученик конкретного класса.
type StudentMembership struct {
	Class Class
}

// Role реализует Membership.
func (StudentMembership) Role() Role { return RoleStudent }
func (StudentMembership) isMembership() {}

// RestoreMembership восстанавливает вариант из полей хранилища.
// Несогласованные данные (учитель с классом, ученик без класса) - ошибка валидации.
func RestoreMembership(role string, level *int, letter string) (Membership, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	switch r {
	case RoleTeacher:
		if level != nil || strings.TrimSpace(letter) != "" {
			return nil, shared.Validationf("student", "RestoreMembership", "teacher cannot have a class")
		}
		return TeacherMembership{}, nil
	default:
		if level == nil {
			return nil, shared.Validationf("student", "RestoreMembership", "student must have a class level")
		}
		class, err := NewClass(*level, letter)
		if err != nil {
			return nil, err
		}
		return StudentMembership{Class: class}, nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - учётная запись школы. Несмотря на имя, это может быть и учитель:
// роль определяется Membership.
type Student struct {
	// ID - уникальный идентификатор учётной записи.
	ID uuid.UUID

	// Username - логин, уникален в системе.
	Username string

	FirstName string
	LastName  string
	Email     string

	// PasswordHash - bcrypt-хеш пароля.
	PasswordHash string

	// Membership - роль и класс.
	Membership Membership

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role возвращает роль учётной записи.
func (s *Student) Role() Role {
	if s.Membership == nil {
		return ""
	}
	return s.Membership.Role()
}

// Class возвращает класс ученика. У учителя класса нет.
func (s *Student) Class() (Class, bool) {
	m, ok := s.Membership.(StudentMembership)
	if !ok {
		return Class{}, false
	}
	return m.Class, true
}

// IsStudent возвращает true для ученика.
func (s *Student) IsStudent() bool {
	return s.Role() == RoleStudent
}

// IsTeacher возвращает true для учителя.
func (s *Student) IsTeacher() bool {
	return s.Role() == RoleTeacher
}

// FullName возвращает "Имя Фамилия", а если имени нет - логин.
func (s *Student) FullName() string {
	full := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if full == "" {
		return s.Username
	}
	return full
}

// ClassDisplay возвращает подпись класса или пустую строку для учителя.
func (s *Student) ClassDisplay() string {
	class, ok := s.Class()
	if !ok {
		return ""
	}
	return class.Display()
}

// Level возвращает номер класса для сериализации.
func (s *Student) Level() *int {
	class, ok := s.Class()
	if !ok {
		return nil
	}
	level := class.Level
	return &level
}

// Letter возвращает букву класса или пустую строку.
func (s *Student) Letter() string {
	class, ok := s.Class()
	if !ok {
		return ""
	}
	return class.Letter
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewAccountParams содержит параметры для создания учётной записи.
type NewAccountParams struct {
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Membership   Membership
}

// NewAccount создаёт учётную запись с валидацией всех полей.
func NewAccount(params NewAccountParams) (*Student, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, shared.Validationf("student", "NewAccount", "username must be 1-%d characters", MaxUsernameLength)
	}
	if strings.ContainsFunc(username, unicode.IsSpace) {
		return nil, shared.Validationf("student", "NewAccount", "username must not contain whitespace")
	}

	if params.Membership == nil {
		return nil, shared.ErrInvalidRole
	}
	if params.PasswordHash == "" {
		return nil, shared.Validationf("student", "NewAccount", "password is required")
	}

	now := time.Now().UTC()
	return &Student{
		ID:           uuid.New(),
		Username:     username,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: params.PasswordHash,
		Membership:   params.Membership,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
