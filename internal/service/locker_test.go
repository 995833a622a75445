package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/redis"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
)

func startRedis(t *testing.T, mr *miniredis.Miniredis) *redis.RedisComponent {
	t.Helper()
	rc := redis.NewRedisComponent(&redis.Config{Enabled: true, Addresses: []string{mr.Addr()}, KeyPrefix: "stockimport:"})
	ctx := context.Background()
	require.NoError(t, rc.Start(ctx))
	t.Cleanup(func() { _ = rc.Stop(ctx) })
	return rc
}

func TestLockerLocal(t *testing.T) {
	l := NewImportLocker(false, time.Minute)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	_, err = l.TryLock(ctx, "ttv", "2024-02-20")
	assert.Equal(t, errs.KindBusy, errs.KindOf(err))

	other, err := l.TryLock(ctx, "ttv", "2024-02-21")
	require.NoError(t, err)
	other2, err := l.TryLock(ctx, "eee", "2024-02-20")
	require.NoError(t, err)
	assert.Equal(t, 3, l.Held())

	release()
	release()
	other()
	other2()
	assert.Equal(t, 0, l.Held())

	again, err := l.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	again()
}

func TestLockerDistributed(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := startRedis(t, mr)
	ctx := context.Background()

	// 两个进程共享同一个 redis
	a := NewImportLocker(true, time.Minute)
	a.Redis = rc
	b := NewImportLocker(true, time.Minute)
	b.Redis = rc

	release, err := a.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	assert.True(t, mr.Exists("stockimport:lock:import:ttv:2024-02-20"))
	assert.Equal(t, time.Minute, mr.TTL("stockimport:lock:import:ttv:2024-02-20"))

	_, err = b.TryLock(ctx, "ttv", "2024-02-20")
	assert.Equal(t, errs.KindBusy, errs.KindOf(err))
	assert.Equal(t, 0, b.Held())

	release()
	assert.False(t, mr.Exists("stockimport:lock:import:ttv:2024-02-20"))

	releaseB, err := b.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	releaseB()
}

func TestLockerReleaseKeepsForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := startRedis(t, mr)
	ctx := context.Background()
	l := NewImportLocker(true, time.Minute)
	l.Redis = rc

	release, err := l.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	// 锁过期后被其他进程拿走
	require.NoError(t, mr.Set("stockimport:lock:import:ttv:2024-02-20", "someone-else"))
	release()
	got, err := mr.Get("stockimport:lock:import:ttv:2024-02-20")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
	assert.Equal(t, 0, l.Held())
}

func TestLockerRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := startRedis(t, mr)
	mr.Close()

	l := NewImportLocker(true, time.Minute)
	l.Redis = rc
	_, err := l.TryLock(context.Background(), "ttv", "2024-02-20")
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
	assert.Equal(t, 0, l.Held())
}
