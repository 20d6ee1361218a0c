package requestresponse

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"P@ssw0rd123"`
}

// SignInRequest : тело запроса на аутентификацию
type SignInRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"P@ssw0rd123"`
}

// TokenResponse : ответ с новым access токеном.
// Refresh токен клиент получает отдельно, в Set-Cookie
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
}

// CSRFTokenResponse : выданный CSRF токен с границами жизни
type CSRFTokenResponse struct {
	Token     string `json:"token" example:"sfuqwejqjoiu93e29.1756646400.ab12cd34"`
	IssuedAt  string `json:"issuedAt" example:"2025-08-31T12:00:00Z"`
	ExpiresAt string `json:"expiresAt" example:"2025-08-31T13:00:00Z"`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	Response struct {
		UserUUID string `json:"user_uuid" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
		Email    string `json:"email" example:"user@example.com"`
	} `json:"response"`
}

// ForgotPasswordRequest : запрос восстановления пароля
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// ResetPasswordRequest : запрос смены пароля по reset токену
type ResetPasswordRequest struct {
	Token       string `json:"token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	NewPassword string `json:"new_password" example:"N3wP@ssw0rd!"`
}

// SuccessResponse : стандартный ответ успешного выполнения операции
type SuccessResponse struct {
	Message string `json:"message" example:"Операция выполнена успешно"`
}

// ErrorDetail : детальная информация об ошибке
type ErrorDetail struct {
	Code int    `json:"code" example:"401"`
	Text string `json:"text" example:"не авторизован"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
