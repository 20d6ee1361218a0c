package security

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"session-web-server/internal/model"
	"session-web-server/internal/model/requestresponse"
	"session-web-server/internal/util"
)

// RefreshCookieName - HttpOnly cookie с refresh токеном.
// В тело ответа refresh токен не попадает никогда
const RefreshCookieName = "refresh_token"

type contextKey string

const (
	LocalUserContextKey      contextKey = "local_user"
	RefreshSessionContextKey contextKey = "refresh_session"
	AccessIdentityContextKey contextKey = "access_identity"
)

// UserFinder - часть хранилища пользователей, нужная guard-ам
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
}

// RefreshSession - контекст запроса, который RefreshGuard передает
// обработчику: пользователь, проверенные claims и сырой refresh токен
type RefreshSession struct {
	User         *model.User
	Claims       *Claims
	RefreshToken string
}

// AccessIdentity - идентичность запроса после AccessGuard.
// Живет только в контексте текущего запроса
type AccessIdentity struct {
	UserID      string
	UserDisplay string
}

// LocalCredentialGuard проверяет пару email-пароль перед sign-in.
// Успех кладет найденного пользователя в контекст запроса.
// Ответ на неверный email и неверный пароль одинаков - 401,
// чтобы не допустить перечисление аккаунтов
func LocalCredentialGuard(users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var req requestresponse.SignInRequest
			if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
				util.HandleError(writer, "некорректный JSON", http.StatusBadRequest)
				return
			}

			if req.Email == "" || req.Password == "" {
				util.HandleError(writer, "email и password обязательны", http.StatusBadRequest)
				return
			}

			user, err := users.FindByEmail(request.Context(), req.Email)
			if err != nil {
				log.Printf("пользователь %s не найден: %v", req.Email, err)
				util.HandleError(writer, "неверный логин или пароль", http.StatusUnauthorized)
				return
			}

			if !CheckPassword(req.Password, user.PasswordHash) {
				log.Printf("неверный пароль для пользователя %s", user.UUID)
				util.HandleError(writer, "неверный логин или пароль", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(request.Context(), LocalUserContextKey, user)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// CSRFGuard проверяет double-submit пару заголовок-cookie.
// Несовпадение, истечение или отсутствие - 403
func CSRFGuard(csrfService *CSRFService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var fromCookie string
			if cookie, err := request.Cookie(CSRFCookieName); err == nil {
				fromCookie = cookie.Value
			}

			if err := csrfService.Validate(request.Header.Get(CSRFHeaderName), fromCookie); err != nil {
				log.Printf("CSRF проверка не пройдена: %v", err)
				util.HandleError(writer, "доступ запрещён", http.StatusForbidden)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RefreshGuard проверяет refresh токен из HttpOnly cookie:
// подпись и срок жизни, существование пользователя, наличие
// хранимого хэша и его совпадение с предъявленным токеном.
// Любой отказ - 401, без каких-либо изменений в хранилище
func RefreshGuard(jwtService *JWTService, hasher *RefreshHasher, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cookie, err := request.Cookie(RefreshCookieName)
			if err != nil || cookie.Value == "" {
				util.HandleError(writer, "refresh токен отсутствует", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.DecodeRefreshToken(cookie.Value)
			if err != nil {
				log.Printf("невалидный refresh токен: %v", err)
				util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
				return
			}

			user, err := users.FindByUUID(request.Context(), claims.Subject)
			if err != nil {
				log.Printf("пользователь по refresh токену не найден: %v", err)
				util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
				return
			}

			if !hasher.Verify(cookie.Value, user.RefreshTokenHash) {
				log.Printf("refresh токен пользователя %s не совпадает с хранимым хэшем", user.UUID)
				util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
				return
			}

			session := &RefreshSession{
				User:         user,
				Claims:       claims,
				RefreshToken: cookie.Value,
			}

			ctx := context.WithValue(request.Context(), RefreshSessionContextKey, session)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// AccessGuard проверяет bearer access токен и кладет идентичность
// запроса в контекст для последующих проверок прав
func AccessGuard(jwtService *JWTService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authorizationHeader := request.Header.Get("Authorization")
			if !strings.HasPrefix(authorizationHeader, "Bearer ") {
				util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authorizationHeader, "Bearer ")

			claims, err := jwtService.DecodeAccessToken(token)
			if err != nil {
				log.Printf("невалидный access токен: %v", err)
				util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
				return
			}

			identity := &AccessIdentity{
				UserID:      claims.Subject,
				UserDisplay: claims.Email,
			}

			ctx := context.WithValue(request.Context(), AccessIdentityContextKey, identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// GetLocalUserFromContext : пользователь, прошедший LocalCredentialGuard
func GetLocalUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(LocalUserContextKey).(*model.User)
	return user, ok && user != nil
}

// GetRefreshSessionFromContext : сессия, прошедшая RefreshGuard
func GetRefreshSessionFromContext(ctx context.Context) (*RefreshSession, bool) {
	session, ok := ctx.Value(RefreshSessionContextKey).(*RefreshSession)
	return session, ok && session != nil
}

// GetAccessIdentityFromContext : идентичность, прошедшая AccessGuard
func GetAccessIdentityFromContext(ctx context.Context) (*AccessIdentity, bool) {
	identity, ok := ctx.Value(AccessIdentityContextKey).(*AccessIdentity)
	return identity, ok && identity != nil
}
