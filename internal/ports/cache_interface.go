package ports

import (
	"context"
	"time"
)

// ResetTokenCache : Redis слой, обеспечивающий одноразовость
// токенов восстановления пароля
type ResetTokenCache interface {
	// MarkUsed помечает jti использованным.
	// Возвращает false, если токен уже был использован
	MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}
