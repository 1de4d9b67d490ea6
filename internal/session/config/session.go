package config

import "time"

// SessionConfig представляет параметры жизненного цикла сессии.
type SessionConfig struct {
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"SESSION_REFRESH_TIMEOUT" env-default:"15s"`
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"SESSION_PERSIST_TIMEOUT" env-default:"5s"`
	ExpiryLeeway   time.Duration `yaml:"expiry_leeway" env:"SESSION_EXPIRY_LEEWAY" env-default:"0s" validate:"min=0"`
	Slot           string        `yaml:"slot" env:"SESSION_SLOT" env-default:"default" validate:"required"`
}
