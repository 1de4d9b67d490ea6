package config

import (
	"fmt"
	"time"
)

// HTTPConfig представляет конфигурацию локального HTTP API.
type HTTPConfig struct {
	Host         string        `yaml:"host" env:"SESSION_HTTP_HOST" env-default:"127.0.0.1"`
	Port         int           `yaml:"port" env:"SESSION_HTTP_PORT" env-default:"8090" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SESSION_HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SESSION_HTTP_WRITE_TIMEOUT" env-default:"35s"`
}

// GetAddress возвращает адрес HTTP сервера.
func (c *HTTPConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
