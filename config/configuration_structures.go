package config

import "fmt"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig содержит секреты подписи и время жизни токенов.
// Access, refresh и reset токены подписываются независимыми секретами:
// компрометация одного секрета не позволяет подделать остальные токены.
type JWTConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
	ResetSecret   string `yaml:"reset_secret"`
	// CryptoSecret используется для HMAC-хэша refresh токена, который
	// хранится на записи пользователя. Не совпадает с секретами подписи.
	CryptoSecret    string `yaml:"crypto_secret"`
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
	ResetTokenTTL   string `yaml:"reset_token_ttl"`
}

type CSRFConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL string `yaml:"token_ttl"`
}

// NotifierConfig описывает relay, на который отправляется письмо
// восстановления пароля
type NotifierConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// Validate проверяет наличие обязательных параметров конфигурации.
// Отсутствие любого секрета или TTL - фатальная ошибка, сервер не стартует
func (cfg *AppConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"databaseConfig.dsn", cfg.DatabaseConfig.DSN},
		{"jwt.access_secret", cfg.JWT.AccessSecret},
		{"jwt.refresh_secret", cfg.JWT.RefreshSecret},
		{"jwt.reset_secret", cfg.JWT.ResetSecret},
		{"jwt.crypto_secret", cfg.JWT.CryptoSecret},
		{"jwt.access_token_ttl", cfg.JWT.AccessTokenTTL},
		{"jwt.refresh_token_ttl", cfg.JWT.RefreshTokenTTL},
		{"jwt.reset_token_ttl", cfg.JWT.ResetTokenTTL},
		{"csrf.secret", cfg.CSRF.Secret},
		{"csrf.token_ttl", cfg.CSRF.TokenTTL},
	}

	for _, param := range required {
		if param.value == "" {
			return fmt.Errorf("обязательный параметр %s не задан", param.name)
		}
	}

	return nil
}
