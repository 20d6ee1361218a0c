package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"session-web-server/config"
	"session-web-server/internal/apperrors"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/lib/pq"
)

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет нового пользователя.
// Занятый email возвращается как apperrors.ErrConflict
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
	INSERT INTO users (uuid, email, password_hash)
	VALUES ($1, $2, $3)
	RETURNING uuid, email, password_hash, refresh_token_hash, created_at
	`

	createdUser := &model.User{}
	err := r.DB.QueryRowxContext(ctx, query, user.UUID, user.Email, user.PasswordHash).
		StructScan(createdUser)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("[UserRepo] %w: email %s занят", apperrors.ErrConflict, user.Email)
		}
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return createdUser, nil
}

// FindByUUID : ищет пользователя по UUID
func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, refresh_token_hash, created_at FROM users WHERE uuid = $1`

	var user model.User
	err := r.DB.GetContext(ctx, &user, query, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[UserRepo] %w: пользователь %s", apperrors.ErrNotFound, uuid)
		}
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByEmail : ищет пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, refresh_token_hash, created_at FROM users WHERE email = $1`

	var user model.User
	err := r.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("[UserRepo] %w: пользователь по email", apperrors.ErrNotFound)
		}
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по email", err)
	}
	return &user, nil
}

// UpdateRefreshHash : перезаписывает хранимый хэш refresh токена.
// nil очищает хэш - после этого ни один refresh токен пользователя
// не проходит проверку до следующего sign-in.
// Перезапись без блокировки: при гонке двух refresh побеждает
// последняя запись
func (r *UserRepository) UpdateRefreshHash(ctx context.Context, uuid string, refreshHash *string) error {
	query := `UPDATE users SET refresh_token_hash = $2 WHERE uuid = $1`

	result, err := r.DB.ExecContext(ctx, query, uuid, refreshHash)
	if err != nil {
		return util.LogError("[UserRepo] не удалось обновить хэш refresh токена", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[UserRepo] не удалось проверить, обновлен ли хэш", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("[UserRepo] %w: пользователь %s", apperrors.ErrNotFound, uuid)
	}

	return nil
}

// UpdatePassword : меняет пароль пользователя
func (r *UserRepository) UpdatePassword(ctx context.Context, uuid string, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE uuid = $1`

	result, err := r.DB.ExecContext(ctx, query, uuid, newPasswordHash)
	if err != nil {
		return util.LogError("[UserRepo] не удалось обновить пароль", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[UserRepo] не удалось проверить, обновлен ли пароль", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("[UserRepo] %w: пользователь %s", apperrors.ErrNotFound, uuid)
	}

	return nil
}
