package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbredis "sessiongate/pkg/db/redis"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	cfg := dbredis.DefaultConfig()
	cfg.Host = s.Host()
	cfg.Port = port

	client, err := dbredis.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClientConnectionFailure(t *testing.T) {
	cfg := &dbredis.Config{Host: "127.0.0.1", Port: 1, Timeout: 100 * time.Millisecond}

	client, err := dbredis.NewClient(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), dbredis.ErrConnect)
}
