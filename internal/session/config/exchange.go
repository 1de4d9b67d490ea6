package config

import "time"

// ExchangeConfig представляет конфигурацию обмена токенов с сервисом авторизации.
type ExchangeConfig struct {
	BaseURL string        `yaml:"base_url" env:"SESSION_EXCHANGE_BASE_URL" env-default:"http://localhost:8080/api/v1" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" env:"SESSION_EXCHANGE_TIMEOUT" env-default:"10s"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig представляет настройки Circuit Breaker для обмена токенов.
type CircuitBreakerConfig struct {
	ErrorThreshold   int           `yaml:"error_threshold" env:"SESSION_EXCHANGE_CB_ERROR_THRESHOLD" env-default:"5"`
	Timeout          time.Duration `yaml:"timeout" env:"SESSION_EXCHANGE_CB_TIMEOUT" env-default:"10s"`
	SuccessThreshold int           `yaml:"success_threshold" env:"SESSION_EXCHANGE_CB_SUCCESS_THRESHOLD" env-default:"2"`
}

// TransportConfig представляет конфигурацию запросов к backend.
type TransportConfig struct {
	BaseURL        string        `yaml:"base_url" env:"SESSION_TRANSPORT_BASE_URL" env-default:"http://localhost:8080/api/v1" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SESSION_TRANSPORT_REQUEST_TIMEOUT" env-default:"30s"`
}
