// Package notifier отправляет токен восстановления пароля на внешний
// почтовый relay. Доставка fire-and-forget: подсистема сессий не ждет
// и не повторяет отправку
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"session-web-server/config"
	"session-web-server/internal/util"
)

type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(cfg *config.NotifierConfig) (*WebhookNotifier, error) {
	timeout := 10 * time.Second
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга notifier timeout: %w", err)
		}
		timeout = parsed
	}

	return &WebhookNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// SendResetToken : отправляет POST-запрос на relay с email получателя
// и reset токеном
func (n *WebhookNotifier) SendResetToken(email string, resetToken string) error {
	if n.url == "" {
		return fmt.Errorf("notifier url не задан")
	}

	payload, err := json.Marshal(map[string]string{
		"email":       email,
		"reset_token": resetToken,
	})
	if err != nil {
		return util.LogError("ошибка сериализации письма восстановления", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return util.LogError("ошибка отправки письма восстановления", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay вернул статус %d", resp.StatusCode)
	}

	return nil
}
