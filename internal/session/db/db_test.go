package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongate/internal/session/config"
	"sessiongate/internal/session/db"
)

func TestOpenMissingMigrations(t *testing.T) {
	cfg := &config.PostgresConfig{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "postgres",
		Database:       "sessiongate",
		SSLMode:        "disable",
		ConnectTimeout: 100 * time.Millisecond,
		MigrationsDir:  filepath.Join(t.TempDir(), "absent"),
	}

	database, err := db.Open(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, database)
	assert.Contains(t, err.Error(), db.ErrDBMigrations)
}
