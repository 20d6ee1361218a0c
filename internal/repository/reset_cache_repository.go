package repository

import (
	"context"
	"fmt"
	"time"

	"session-web-server/config"
	"session-web-server/internal/util"
)

// ResetCacheRepository хранит в Redis отметки об использованных
// токенах восстановления пароля. Запись живет не дольше самого
// токена: после истечения срока сервер и так отвергнет его по exp
type ResetCacheRepository struct {
	client *config.RedisClient
}

func NewResetCacheRepository(rdb *config.RedisClient) *ResetCacheRepository {
	return &ResetCacheRepository{rdb}
}

// MarkUsed : атомарно помечает jti использованным через SETNX.
// false означает, что токен уже был использован ранее
func (r *ResetCacheRepository) MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// токен уже истёк, отметка не нужна
		return false, nil
	}

	set, err := r.client.Client.SetNX(ctx, r.key(jti), 1, ttl).Result()
	if err != nil {
		return false, util.LogError("ошибка записи отметки reset токена в Redis", err)
	}

	return set, nil
}

func (r *ResetCacheRepository) key(jti string) string {
	return fmt.Sprintf("reset_used:%s", jti)
}
