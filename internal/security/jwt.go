package security

import (
	"errors"
	"fmt"
	"time"

	"session-web-server/config"
	"session-web-server/internal/apperrors"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims - проверенное содержимое подписанного токена.
// Subject хранит UUID пользователя
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService кодирует и декодирует подписанные токены с ограниченным
// временем жизни. Access, refresh и reset токены подписываются
// независимыми секретами
type JWTService struct {
	accessSecret    []byte
	refreshSecret   []byte
	resetSecret     []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	resetTokenTTL   time.Duration
}

func NewJWTService(cfg *config.JWTConfig) (*JWTService, error) {
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга access_token_ttl: %w", err)
	}
	refreshTTL, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга refresh_token_ttl: %w", err)
	}
	resetTTL, err := time.ParseDuration(cfg.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга reset_token_ttl: %w", err)
	}

	return &JWTService{
		accessSecret:    []byte(cfg.AccessSecret),
		refreshSecret:   []byte(cfg.RefreshSecret),
		resetSecret:     []byte(cfg.ResetSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		resetTokenTTL:   resetTTL,
	}, nil
}

// GenerateTokensPair выпускает новую пару access/refresh токенов
// для пользователя. Оба токена несут одинаковый claim, но живут
// разное время и подписаны разными секретами.
// Refresh токен получает jti: временные метки огрублены до секунды,
// без jti два токена, выданные в одну секунду, совпали бы побайтово
// и ротация не инвалидировала бы предыдущий
func (service *JWTService) GenerateTokensPair(user *model.User) (*model.TokensPair, error) {
	accessToken, err := service.issueToken(user, service.accessSecret, service.accessTokenTTL, "")
	if err != nil {
		return nil, util.LogError("ошибка подписи access токена", err)
	}

	refreshToken, err := service.issueToken(user, service.refreshSecret, service.refreshTokenTTL, uuid.New().String())
	if err != nil {
		return nil, util.LogError("ошибка подписи refresh токена", err)
	}

	return &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GenerateResetToken выпускает одноразовый токен восстановления пароля.
// jti нужен, чтобы пометить токен использованным после смены пароля
func (service *JWTService) GenerateResetToken(user *model.User) (string, error) {
	token, err := service.issueToken(user, service.resetSecret, service.resetTokenTTL, uuid.New().String())
	if err != nil {
		return "", util.LogError("ошибка подписи reset токена", err)
	}
	return token, nil
}

func (service *JWTService) issueToken(user *model.User, secret []byte, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "session-web-server",
			ID:        jti,
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return jwtToken.SignedString(secret)
}

func (service *JWTService) DecodeAccessToken(tokenStr string) (*Claims, error) {
	return service.decodeToken(tokenStr, service.accessSecret)
}

func (service *JWTService) DecodeRefreshToken(tokenStr string) (*Claims, error) {
	return service.decodeToken(tokenStr, service.refreshSecret)
}

func (service *JWTService) DecodeResetToken(tokenStr string) (*Claims, error) {
	return service.decodeToken(tokenStr, service.resetSecret)
}

// decodeToken разбирает токен и проверяет его подпись и срок жизни.
// Полям claim нельзя доверять до успешной проверки подписи, поэтому
// ошибка парсинга всегда возвращается без claims. Просроченный токен,
// битая подпись и мусор различимы по ошибке для диагностики,
// но на границе guard-ов все они схлопываются в 401
func (service *JWTService) decodeToken(tokenStr string, secret []byte) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", apperrors.ErrBadSignature, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformed, err)
		}
	}

	if !jwtToken.Valid {
		return nil, apperrors.ErrBadSignature
	}

	return claims, nil
}
