// Package config содержит конфигурацию сервиса сессии.
package config

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	pkgconfig "sessiongate/pkg/config"
	"sessiongate/pkg/logger"
)

// Константы ошибок и сообщений для конфигурации.
const (
	ServiceName = "sessiongate"

	LogConfigSummary      = "session configuration"
	ErrFailedLoadConfig   = "failed to load configuration"
	ErrInvalidConfig      = "invalid configuration"
	ErrMissingConfigValue = "required configuration value is missing"
)

// Config представляет полную конфигурацию сервиса.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Exchange    ExchangeConfig    `yaml:"exchange"`
	Transport   TransportConfig   `yaml:"transport"`
	Session     SessionConfig     `yaml:"session"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Crypto      CryptoConfig      `yaml:"crypto"`
	Logging     LoggingConfig     `yaml:"logging"`
	Shutdown    ShutdownConfig    `yaml:"shutdown"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// Load загружает конфигурацию из файла path (если он есть) и переменных окружения.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Log(ctx).Info(ctx, LogConfigSummary,
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("exchange_base_url", cfg.Exchange.BaseURL),
		zap.String("transport_base_url", cfg.Transport.BaseURL),
		zap.String("persistence_driver", cfg.Persistence.Driver),
		zap.Bool("tokens_sealed", cfg.Crypto.SealingKey != ""),
		zap.Duration("refresh_timeout", cfg.Session.RefreshTimeout),
		zap.Duration("expiry_leeway", cfg.Session.ExpiryLeeway),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode))

	return cfg, nil
}

// Validate проверяет значения, которые нельзя задать по умолчанию.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%s: %w", ErrInvalidConfig, err)
	}
	switch c.Persistence.Driver {
	case DriverPostgres:
		if c.Postgres.DSN() == "" {
			return fmt.Errorf("%s: %s", ErrMissingConfigValue, "postgres connection")
		}
	case DriverRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("%s: %s", ErrMissingConfigValue, "redis host")
		}
	}
	return nil
}

// GetEnvironment возвращает режим работы логгера.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "development" {
		return logger.Development
	}
	return logger.Production
}
