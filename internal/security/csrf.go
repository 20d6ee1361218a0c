package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"session-web-server/config"
	"session-web-server/internal/apperrors"
	"session-web-server/internal/model"
	"session-web-server/internal/util"
)

const (
	// CSRFCookieName - cookie double-submit токена. Не HttpOnly:
	// клиентский скрипт обязан прочитать её и повторить значение в заголовке
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName - заголовок, в котором клиент повторяет токен
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFService выпускает и проверяет double-submit токены.
// Токен самодостаточен: случайный nonce, срок жизни и HMAC-подпись,
// серверного состояния под него нет
type CSRFService struct {
	secret []byte
	ttl    time.Duration
}

func NewCSRFService(cfg *config.CSRFConfig) (*CSRFService, error) {
	ttl, err := time.ParseDuration(cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга csrf token_ttl: %w", err)
	}

	return &CSRFService{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
	}, nil
}

// Issue : выпускает новый CSRF токен вида nonce.expiry.signature.
// Выпуск не требует аутентификации - это первый шаг handshake
func (service *CSRFService) Issue() (*model.CSRFToken, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, util.LogError("ошибка генерации CSRF токена", err)
	}

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(service.ttl)

	nonce := base64.RawURLEncoding.EncodeToString(nonceBytes)
	payload := nonce + "." + strconv.FormatInt(expiresAt.Unix(), 10)

	return &model.CSRFToken{
		Token:     payload + "." + service.sign(payload),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate : проверяет пару значений double-submit.
// Заголовок и cookie должны совпадать, подпись должна сойтись,
// срок жизни не должен истечь. Любой отказ - ErrForbidden
func (service *CSRFService) Validate(fromHeader string, fromCookie string) error {
	if fromHeader == "" || fromCookie == "" {
		return fmt.Errorf("%w: CSRF токен отсутствует", apperrors.ErrForbidden)
	}

	if subtle.ConstantTimeCompare([]byte(fromHeader), []byte(fromCookie)) != 1 {
		return fmt.Errorf("%w: CSRF токены не совпадают", apperrors.ErrForbidden)
	}

	parts := strings.Split(fromHeader, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: некорректный CSRF токен", apperrors.ErrForbidden)
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(service.sign(payload)), []byte(parts[2])) {
		return fmt.Errorf("%w: неверная подпись CSRF токена", apperrors.ErrForbidden)
	}

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: некорректный CSRF токен", apperrors.ErrForbidden)
	}
	if !time.Now().Before(time.Unix(expiresAt, 0)) {
		return fmt.Errorf("%w: срок действия CSRF токена истёк", apperrors.ErrForbidden)
	}

	return nil
}

func (service *CSRFService) sign(payload string) string {
	mac := hmac.New(sha256.New, service.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
