package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Драйверы хранилища токенов.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// PersistenceConfig выбирает хранилище пары токенов.
type PersistenceConfig struct {
	Driver string `yaml:"driver" env:"SESSION_PERSISTENCE_DRIVER" env-default:"memory" validate:"oneof=memory redis postgres"`
}

// RedisConfig представляет конфигурацию для Redis.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"SESSION_REDIS_HOST" env-default:"localhost"`
	Port     int           `yaml:"port" env:"SESSION_REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"SESSION_REDIS_PASSWORD" env-default:""`
	DB       int           `yaml:"db" env:"SESSION_REDIS_DB" env-default:"0"`
	PoolSize int           `yaml:"pool_size" env:"SESSION_REDIS_POOL_SIZE" env-default:"4"`
	Timeout  time.Duration `yaml:"timeout" env:"SESSION_REDIS_TIMEOUT" env-default:"3s"`
}

// GetAddress возвращает адрес Redis.
func (c *RedisConfig) GetAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PostgresConfig представляет конфигурацию для Postgres.
type PostgresConfig struct {
	Host           string        `yaml:"host" env:"SESSION_POSTGRES_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"SESSION_POSTGRES_PORT" env-default:"5432"`
	User           string        `yaml:"user" env:"SESSION_POSTGRES_USER" env-default:"postgres"`
	Password       string        `yaml:"password" env:"SESSION_POSTGRES_PASSWORD" env-default:""`
	Database       string        `yaml:"database" env:"SESSION_POSTGRES_DB" env-default:"sessiongate"`
	SSLMode        string        `yaml:"ssl_mode" env:"SESSION_POSTGRES_SSL_MODE" env-default:"disable"`
	MinConn        int32         `yaml:"min_conn" env:"SESSION_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn        int32         `yaml:"max_conn" env:"SESSION_POSTGRES_MAX_CONN" env-default:"4"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"SESSION_POSTGRES_CONNECT_TIMEOUT" env-default:"5s"`
	MigrationsDir  string        `yaml:"migrations_dir" env:"SESSION_POSTGRES_MIGRATIONS_DIR" env-default:"migrations/session"`
}

// DSN возвращает строку подключения в формате URL, пригодную и для pgx, и для golang-migrate.
func (c *PostgresConfig) DSN() string {
	if c.Host == "" || c.Database == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     c.Database,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(c.SSLMode)),
	}
	return u.String()
}

// CryptoConfig содержит ключ шифрования токенов в хранилище.
type CryptoConfig struct {
	// SealingKey - 32 байта в base64. Пустое значение отключает шифрование.
	SealingKey string `yaml:"sealing_key" env:"SESSION_SEALING_KEY" env-default:""`
}
