// Package student содержит доменную модель учётной записи школы.
//
// Пакет определяет:
//
//   - Сущность Student - ученик или учитель
//   - Value Objects: Role, Class
//   - Закрытый вариант Membership: TeacherMembership | StudentMembership
//   - Интерфейс репозитория: Repository
//
// # Роль и класс
//
// У ученика всегда есть класс (номер 1-11 и одна буква), у учителя класса нет.
// Это выражено типом, а не парой nullable-полей:
//
//	class, err := student.NewClass(5, "А")
//	acc, err := student.NewAccount(student.NewAccountParams{
//	    Username:     "ivanov",
//	    PasswordHash: hash,
//	    Membership:   student.StudentMembership{Class: class},
//	})
//
// При чтении из хранилища поля role/level/letter собираются обратно через
// RestoreMembership, несогласованная строка - ошибка валидации.
//
// # Когорта
//
// Ученики одного класса образуют когорту для рейтинга. Буквы сравниваются
// без учёта регистра (Class.LetterKey), поэтому "5-а" и "5-А" - один класс.
package student
