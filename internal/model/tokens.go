package model

import "time"

// TokensPair содержит пару access и refresh токенов.
// Refresh токен никогда не попадает в тело ответа,
// он передается только через HttpOnly cookie
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// Refresh токен (JWT, уходит клиенту в Set-Cookie)
	RefreshToken string `json:"-"`
}

// CSRFToken содержит выданный double-submit токен и границы его жизни
// swagger:model
type CSRFToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
