package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode"

	"session-web-server/internal/apperrors"
	"session-web-server/internal/model"
	"session-web-server/internal/ports"
	"session-web-server/internal/security"

	"github.com/google/uuid"
)

// AuthenticationService реализует жизненный цикл сессии:
// register, sign-in, verify/refresh, sign-out и ветку восстановления
// пароля. Единственное долговременное состояние - хэш refresh токена
// на записи пользователя, он меняется ровно в трех местах:
// sign-in (запись), refresh (ротация) и sign-out (очистка)
type AuthenticationService struct {
	userRepository  ports.UserRepository
	jwtService      *security.JWTService
	refreshHasher   *security.RefreshHasher
	resetTokenCache ports.ResetTokenCache
	resetNotifier   ports.ResetNotifier
}

func NewAuthenticationService(
	userRepository ports.UserRepository,
	jwtService *security.JWTService,
	refreshHasher *security.RefreshHasher,
	resetTokenCache ports.ResetTokenCache,
	resetNotifier ports.ResetNotifier,
) *AuthenticationService {
	return &AuthenticationService{
		userRepository:  userRepository,
		jwtService:      jwtService,
		refreshHasher:   refreshHasher,
		resetTokenCache: resetTokenCache,
		resetNotifier:   resetNotifier,
	}
}

// Register создает пользователя и сразу выполняет вход.
// Занятый email возвращается как apperrors.ErrConflict
func (s *AuthenticationService) Register(ctx context.Context, email string, password string) (*model.TokensPair, error) {
	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("[AuthService] %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] не удалось создать хэш пароля: %w", err)
	}

	user := &model.User{
		UUID:         uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
	}

	created, err := s.userRepository.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка создания пользователя: %w", err)
	}

	return s.SignIn(ctx, created)
}

// SignIn выпускает новую пару токенов и перезаписывает хранимый хэш
// refresh токена. Перезапись инвалидирует все ранее выданные refresh
// токены пользователя: в любой момент валиден ровно один
func (s *AuthenticationService) SignIn(ctx context.Context, user *model.User) (*model.TokensPair, error) {
	tokens, err := s.jwtService.GenerateTokensPair(user)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка генерации токенов: %w", err)
	}

	refreshHash := s.refreshHasher.ComputeHash(tokens.RefreshToken)
	if err := s.userRepository.UpdateRefreshHash(ctx, user.UUID, &refreshHash); err != nil {
		return nil, fmt.Errorf("[AuthService] не удалось сохранить хэш refresh токена: %w", err)
	}

	return tokens, nil
}

// Refresh выполняет ротацию: выпускает новую пару и перезаписывает
// хранимый хэш. Только что предъявленный refresh токен перестает
// проходить проверку сразу, не дожидаясь своего exp
func (s *AuthenticationService) Refresh(ctx context.Context, user *model.User) (*model.TokensPair, error) {
	return s.SignIn(ctx, user)
}

// SignOut очищает хранимый хэш refresh токена. После этого ни один
// ранее выданный refresh токен не проходит проверку до нового sign-in
func (s *AuthenticationService) SignOut(ctx context.Context, userUUID string) error {
	if err := s.userRepository.UpdateRefreshHash(ctx, userUUID, nil); err != nil {
		return fmt.Errorf("[AuthService] не удалось очистить хэш refresh токена: %w", err)
	}
	return nil
}

// ForgotPassword отправляет письмо восстановления, если email найден.
// Ответ вызывающей стороне одинаков в обоих случаях, чтобы не
// допустить перечисление аккаунтов. Отправка fire-and-forget
func (s *AuthenticationService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepository.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("запрос восстановления пароля для неизвестного email")
			return nil
		}
		return fmt.Errorf("[AuthService] ошибка поиска пользователя: %w", err)
	}

	resetToken, err := s.jwtService.GenerateResetToken(user)
	if err != nil {
		return fmt.Errorf("[AuthService] ошибка генерации reset токена: %w", err)
	}

	go func() {
		if err := s.resetNotifier.SendResetToken(user.Email, resetToken); err != nil {
			log.Printf("ошибка отправки письма восстановления: %v", err)
		}
	}()

	return nil
}

// ResetPassword проверяет reset токен по той же дисциплине, что и
// access/refresh, гарантирует его одноразовость и меняет пароль.
// Хэш refresh токена очищается: после смены пароля все сессии
// требуют повторного входа
func (s *AuthenticationService) ResetPassword(ctx context.Context, resetToken string, newPassword string) error {
	claims, err := s.jwtService.DecodeResetToken(resetToken)
	if err != nil {
		log.Printf("невалидный reset токен: %v", err)
		return fmt.Errorf("[AuthService] %w: невалидный reset токен", apperrors.ErrUnauthorized)
	}

	if claims.ID == "" {
		return fmt.Errorf("[AuthService] %w: reset токен без jti", apperrors.ErrUnauthorized)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("[AuthService] %w", err)
	}

	// отметка ставится до записи пароля: если запись не удалась,
	// токен сгорает - отказ в сторону безопасности
	used, err := s.resetTokenCache.MarkUsed(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return fmt.Errorf("[AuthService] ошибка проверки одноразовости reset токена: %w", err)
	}
	if !used {
		return fmt.Errorf("[AuthService] %w: reset токен уже использован", apperrors.ErrUnauthorized)
	}

	user, err := s.userRepository.FindByUUID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("[AuthService] %w: пользователь не найден", apperrors.ErrUnauthorized)
		}
		return fmt.Errorf("[AuthService] ошибка поиска пользователя: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("[AuthService] не удалось создать хэш пароля: %w", err)
	}

	if err := s.userRepository.UpdatePassword(ctx, user.UUID, hash); err != nil {
		return fmt.Errorf("[AuthService] не удалось обновить пароль: %w", err)
	}

	if err := s.userRepository.UpdateRefreshHash(ctx, user.UUID, nil); err != nil {
		return fmt.Errorf("[AuthService] не удалось очистить хэш refresh токена: %w", err)
	}

	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("пароль должен содержать минимум 8 символов")
	}

	var upperCount, lowerCount, digitCount int

	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upperCount++
		case unicode.IsLower(c):
			lowerCount++
		case unicode.IsDigit(c):
			digitCount++
		}
	}

	if upperCount == 0 || lowerCount == 0 {
		return fmt.Errorf("пароль должен содержать буквы в разных регистрах")
	}
	if digitCount == 0 {
		return fmt.Errorf("пароль должен содержать хотя бы одну цифру")
	}

	return nil
}
