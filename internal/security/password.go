package security

import (
	"session-web-server/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword : возвращает bcrypt-хэш пароля для хранения в БД
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", util.LogError("ошибка хэширования пароля", err)
	}
	return string(hash), nil
}

// CheckPassword : сверяет пароль с хэшем из БД
func CheckPassword(password string, passwordHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}
