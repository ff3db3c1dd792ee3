package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultRedisConfig()
	cfg.Address = mr.Addr()

	client, err := NewRedisClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Health(context.Background()))
	assert.NotNil(t, client.Client())
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := DefaultRedisConfig()
	cfg.Address = addr
	cfg.MaxRetries = 0

	_, err := NewRedisClient(cfg)
	assert.Error(t, err)
}
