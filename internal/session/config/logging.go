package config

// LoggingConfig представляет конфигурацию логирования.
type LoggingConfig struct {
	Level string `yaml:"level" env:"SESSION_LOGGER_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Mode  string `yaml:"mode" env:"SESSION_LOGGER_MODE" env-default:"production" validate:"oneof=development production"`
}

// MetricsConfig включает /metrics на локальном HTTP API.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"SESSION_METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"SESSION_METRICS_PATH" env-default:"/metrics"`
}
