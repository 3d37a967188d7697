package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNilCacheManagerIsDisabled(t *testing.T) {
	var cm *CacheManager
	ctx := context.Background()

	if err := cm.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var dest map[string]int
	hit, err := cm.GetJSON(ctx, "k", &dest)
	if err != nil || hit {
		t.Fatalf("expected miss without error, got hit=%v err=%v", hit, err)
	}

	ok, err := cm.AcquireLock(ctx, ReminderLockKey, "token", time.Second)
	if err != nil || !ok {
		t.Fatalf("expected lock to be granted without redis, got ok=%v err=%v", ok, err)
	}
	if err := cm.ReleaseLock(ctx, ReminderLockKey, "token"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := cm.InvalidatePrefix(ctx, AvailableSlotsPrefix); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := cm.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := cm.Ping(ctx); err == nil {
		t.Fatalf("expected ping to fail on a disabled cache")
	}
}

func TestUnreachableRedisSurfacesErrors(t *testing.T) {
	cm := NewWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer cm.Close()
	ctx := context.Background()

	var dest []string
	if _, err := cm.GetJSON(ctx, AvailableSlotsPrefix+"x", &dest); err == nil {
		t.Fatal("expected a read error from an unreachable redis")
	}
	if ok, err := cm.AcquireLock(ctx, ReminderLockKey, "token", time.Second); err == nil || ok {
		t.Fatalf("expected the lock to fail, got ok=%v err=%v", ok, err)
	}
	if err := cm.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail")
	}
}
