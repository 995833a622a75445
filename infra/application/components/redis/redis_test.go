package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryDefaults(t *testing.T) {
	cfg := &Config{Enabled: true, MinIdleConns: 50}
	comp, err := NewFactory().Create(cfg)
	require.NoError(t, err)
	assert.Equal(t, "single", cfg.Mode)
	assert.Equal(t, []string{"127.0.0.1:6379"}, cfg.Addresses)
	assert.Equal(t, 20, cfg.PoolSize)
	assert.Equal(t, 10, cfg.MinIdleConns)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.False(t, comp.IsActive())
}

func TestFactoryRejectsBadMode(t *testing.T) {
	_, err := NewFactory().Create(&Config{Enabled: true, Mode: "ring"})
	require.Error(t, err)
	_, err = NewFactory().Create(&Config{Enabled: true, Mode: "sentinel"})
	require.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	rc := NewRedisComponent(&Config{KeyPrefix: "stockimport:"})
	assert.Equal(t, "stockimport:lock:ttv:2024-03-01", rc.Key("lock", "ttv", "2024-03-01"))
}

func TestStartAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisComponent(&Config{Enabled: true, Addresses: []string{mr.Addr()}, KeyPrefix: "t:"})
	ctx := context.Background()
	require.NoError(t, rc.Start(ctx))
	require.NoError(t, rc.HealthCheck())

	require.NoError(t, rc.Client().Set(ctx, rc.Key("k"), "v", time.Minute).Err())
	got, err := mr.Get("t:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, rc.Stop(ctx))
	assert.Error(t, rc.HealthCheck())
}
