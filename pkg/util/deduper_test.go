package util

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "dedup:notify:18c1", DedupKey("notify", "18c1"))
	assert.Equal(t, "retry:notify:12345", FormatRetryKey("notify", "12345"))
}

func TestDeduperFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDeduperWithLogger(unreachableRedis(t), time.Hour, zap.New(core))

	assert.True(t, d.AcquireOnce(context.Background(), "notify", "m1"))
	assert.True(t, d.AcquireOnce(context.Background(), "notify", "m1"))
	assert.Equal(t, 2, logs.FilterMessage("Redis dedup check failed, allowing processing").Len())
}

func TestDeduperReleaseLogsRedisErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDeduperWithLogger(unreachableRedis(t), time.Hour, zap.New(core))

	d.Release(context.Background(), "notify", "m1")
	assert.Equal(t, 1, logs.FilterMessage("Redis dedup release failed").Len())
}

func TestRetryCounterSurfacesRedisErrors(t *testing.T) {
	rc := NewRetryCounter(unreachableRedis(t), time.Hour)

	_, err := rc.IncrementAndGet(context.Background(), FormatRetryKey("notify", "1"))
	assert.Error(t, err)
	_, err = rc.Get(context.Background(), FormatRetryKey("notify", "1"))
	assert.Error(t, err)
}
