package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"session-web-server/internal/apperrors"
	"session-web-server/internal/model"
	"session-web-server/internal/model/requestresponse"
	"session-web-server/internal/ports"
	"session-web-server/internal/security"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
	csrfService     *security.CSRFService
	refreshTokenTTL time.Duration
}

func NewAuthenticationHandler(
	authenticationService ports.AuthenticationService,
	csrfService *security.CSRFService,
	refreshTokenTTL time.Duration,
) *AuthenticationHandler {
	return &AuthenticationHandler{
		authenticationService,
		csrfService,
		refreshTokenTTL,
	}
}

// Register godoc
// @Summary Регистрация пользователя
// @Description Создает пользователя и сразу выполняет вход: access токен в теле, refresh токен в HttpOnly cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 200 {object} requestresponse.TokenResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или слабый пароль"
// @Failure 409 {object} requestresponse.ErrorResponse "Email уже занят"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/register [put]
func (h *AuthenticationHandler) Register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "некорректный JSON")
		return
	}

	if req.Email == "" || req.Password == "" {
		sendErrorResponse(w, http.StatusBadRequest, "email и password обязательны")
		return
	}

	tokens, err := h.AuthenticationService.Register(ctx, req.Email, req.Password)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			sendErrorResponse(w, http.StatusConflict, "пользователь уже существует")
		case errors.Is(err, apperrors.ErrUnauthorized):
			sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		default:
			sendErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.writeTokens(w, tokens)
}

// SignIn godoc
// @Summary Аутентификация пользователя
// @Description Вход по email и паролю. Access токен возвращается в теле, refresh токен устанавливается в HttpOnly cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.SignInRequest true "Тело запроса"
// @Success 200 {object} requestresponse.TokenResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный логин или пароль"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/sign-in [post]
func (h *AuthenticationHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	user, ok := security.GetLocalUserFromContext(ctx)
	if !ok {
		sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		return
	}

	tokens, err := h.AuthenticationService.SignIn(ctx, user)
	if err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	h.writeTokens(w, tokens)
}

// GetCSRFToken godoc
// @Summary Выдача CSRF токена
// @Description Выпускает double-submit токен: значение уходит в cookie и в тело ответа, клиент обязан повторить его в заголовке X-CSRF-Token
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.CSRFTokenResponse
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/csrf-token [get]
func (h *AuthenticationHandler) GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	csrfToken, err := h.csrfService.Issue()
	if err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     security.CSRFCookieName,
		Value:    csrfToken.Token,
		Path:     "/",
		Expires:  csrfToken.ExpiresAt,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	resp := requestresponse.CSRFTokenResponse{
		Token:     csrfToken.Token,
		IssuedAt:  csrfToken.IssuedAt.Format(time.RFC3339),
		ExpiresAt: csrfToken.ExpiresAt.Format(time.RFC3339),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// VerifyToken godoc
// @Summary Обновление пары токенов
// @Description Ротация: по действующему refresh токену из cookie выпускает новую пару, предъявленный refresh токен немедленно перестает действовать
// @Tags Authentication
// @Produce json
// @Param X-CSRF-Token header string true "CSRF токен"
// @Success 200 {object} requestresponse.TokenResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Невалидный refresh токен"
// @Failure 403 {object} requestresponse.ErrorResponse "CSRF проверка не пройдена"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/verify-token [get]
func (h *AuthenticationHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	session, ok := security.GetRefreshSessionFromContext(ctx)
	if !ok {
		sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		return
	}

	tokens, err := h.AuthenticationService.Refresh(ctx, session.User)
	if err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	h.writeTokens(w, tokens)
}

// SignOut godoc
// @Summary Завершение сессии
// @Description Очищает хранимый хэш refresh токена и refresh cookie. Все ранее выданные refresh токены перестают действовать
// @Tags Authentication
// @Produce json
// @Param X-CSRF-Token header string true "CSRF токен"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Невалидный refresh токен"
// @Failure 403 {object} requestresponse.ErrorResponse "CSRF проверка не пройдена"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/sign-out [post]
func (h *AuthenticationHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	session, ok := security.GetRefreshSessionFromContext(ctx)
	if !ok {
		sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		return
	}

	if err := h.AuthenticationService.SignOut(ctx, session.User.UUID); err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	h.clearRefreshCookie(w)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "сессия завершена"})
}

// ForgotPassword godoc
// @Summary Запрос восстановления пароля
// @Description Отправляет письмо с reset токеном, если email зарегистрирован. Ответ одинаков независимо от того, найден ли email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.ForgotPasswordRequest true "Тело запроса"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON"
// @Router /api/auth/forgot-password [post]
func (h *AuthenticationHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "некорректный JSON")
		return
	}

	if req.Email == "" {
		sendErrorResponse(w, http.StatusBadRequest, "email обязателен")
		return
	}

	// ответ не зависит от результата поиска email
	if err := h.AuthenticationService.ForgotPassword(ctx, req.Email); err != nil {
		log.Println(err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "письмо отправлено, если email зарегистрирован"})
}

// ResetPassword godoc
// @Summary Смена пароля по reset токену
// @Description Проверяет одноразовый reset токен, меняет пароль и принудительно завершает все сессии пользователя
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.ResetPasswordRequest true "Тело запроса"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или слабый пароль"
// @Failure 401 {object} requestresponse.ErrorResponse "Невалидный или использованный reset токен"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/reset-password [post]
func (h *AuthenticationHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "некорректный JSON")
		return
	}

	if req.Token == "" || req.NewPassword == "" {
		sendErrorResponse(w, http.StatusBadRequest, "token и new_password обязательны")
		return
	}

	if err := h.AuthenticationService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, apperrors.ErrUnauthorized):
			sendErrorResponse(w, http.StatusUnauthorized, "невалидный reset токен")
		default:
			sendErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "пароль обновлен"})
}

// GetCurrentUser godoc
// @Summary Информация о текущем пользователе
// @Description Возвращает идентичность запроса, установленную access guard-ом
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	identity, ok := security.GetAccessIdentityFromContext(r.Context())
	if !ok {
		sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		return
	}

	resp := requestresponse.CurrentUserResponse{}
	resp.Response.UserUUID = identity.UserID
	resp.Response.Email = identity.UserDisplay

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// writeTokens отправляет access токен в теле ответа, а refresh токен -
// только в Set-Cookie с HttpOnly, Secure и SameSite
func (h *AuthenticationHandler) writeTokens(w http.ResponseWriter, tokens *model.TokensPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.RefreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     "/api/auth",
		MaxAge:   int(h.refreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.TokenResponse{AccessToken: tokens.AccessToken})
}

func (h *AuthenticationHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.RefreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)

	resp := requestresponse.ErrorResponse{
		Error: requestresponse.ErrorDetail{
			Code: statusCode,
			Text: message,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
