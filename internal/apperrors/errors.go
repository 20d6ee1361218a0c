// Package apperrors определяет таксономию ошибок подсистемы сессий.
// Обработчики сопоставляют ошибки через errors.Is и возвращают клиенту
// единый статус, не раскрывая внутреннюю причину отказа.
package apperrors

import "errors"

var (
	// ErrUnauthorized - отсутствующий/невалидный/просроченный токен,
	// неверная пара логин-пароль, отсутствующий хэш refresh токена
	ErrUnauthorized = errors.New("не авторизован")

	// ErrForbidden - несовпадение или истечение CSRF токена
	ErrForbidden = errors.New("доступ запрещён")

	// ErrNotFound - пользователь не найден.
	// На границе guard-ов схлопывается в ErrUnauthorized,
	// чтобы не допустить перечисление аккаунтов
	ErrNotFound = errors.New("не найден")

	// ErrConflict - регистрация с уже занятым email
	ErrConflict = errors.New("пользователь уже существует")

	// ErrMalformed - токен не удалось разобрать
	ErrMalformed = errors.New("некорректный токен")

	// ErrTokenExpired - срок действия токена истёк
	ErrTokenExpired = errors.New("срок действия токена истёк")

	// ErrBadSignature - подпись токена не прошла проверку
	ErrBadSignature = errors.New("неверная подпись токена")
)
