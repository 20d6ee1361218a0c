package ports

// ResetNotifier доставляет пользователю токен восстановления пароля.
// Вызов fire-and-forget: ошибки логируются вызывающей стороной,
// повторных попыток нет
type ResetNotifier interface {
	SendResetToken(email string, resetToken string) error
}
