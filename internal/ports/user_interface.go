package ports

import (
	"context"

	"session-web-server/internal/model"
)

// UserRepository - адаптер хранилища учетных записей.
// Единственное долговременное состояние подсистемы сессий -
// поле refresh_token_hash на записи пользователя
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	UpdateRefreshHash(ctx context.Context, uuid string, refreshHash *string) error
	UpdatePassword(ctx context.Context, uuid string, newPasswordHash string) error
}
