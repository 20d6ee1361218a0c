package model

import "time"

type User struct {
	UUID         string `db:"uuid" json:"uuid"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	// RefreshTokenHash хранит HMAC-хэш текущего refresh токена.
	// NULL означает, что активного refresh токена у пользователя нет
	RefreshTokenHash *string   `db:"refresh_token_hash" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
