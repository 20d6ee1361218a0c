package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// RefreshHasher считает детерминированный HMAC-хэш refresh токена.
// В БД хранится только хэш, сам токен сервер не сохраняет
type RefreshHasher struct {
	secret []byte
}

func NewRefreshHasher(secret string) *RefreshHasher {
	return &RefreshHasher{secret: []byte(secret)}
}

// ComputeHash : возвращает hex-представление HMAC-SHA256 от токена
func (h *RefreshHasher) ComputeHash(refreshToken string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(refreshToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify : пересчитывает хэш предъявленного токена и сравнивает
// с хранимым. Сравнение не зависит от позиции первого расхождения.
// Отсутствие хранимого хэша - всегда отказ
func (h *RefreshHasher) Verify(refreshToken string, storedHash *string) bool {
	if storedHash == nil || *storedHash == "" {
		return false
	}

	computed := h.ComputeHash(refreshToken)
	return hmac.Equal([]byte(computed), []byte(*storedHash))
}
