package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"meetdesk-backend/shared/config"
)

const (
	AvailableSlotsPrefix = "slots:available:"
	AvailableSlotsTTL    = 30 * time.Second
	ReminderLockKey      = "lock:reminders"
)

// CacheManager wraps a redis client. A nil *CacheManager is a valid
// disabled cache: reads miss, writes are dropped and locks are always granted.
type CacheManager struct {
	client redis.UniversalClient
}

// NewCacheManager connects to redis and verifies the connection
func NewCacheManager(ctx context.Context, cfg *config.Config) (*CacheManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

	return &CacheManager{client: client}, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client redis.UniversalClient) *CacheManager {
	return &CacheManager{client: client}
}

func (cm *CacheManager) enabled() bool {
	return cm != nil && cm.client != nil
}

// SetJSON stores value under key as JSON
func (cm *CacheManager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !cm.enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := cm.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetJSON decodes the value stored under key into dest. It reports false on a miss.
func (cm *CacheManager) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !cm.enabled() {
		return false, nil
	}

	result, err := cm.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(result, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return true, nil
}

// InvalidatePrefix deletes every key starting with prefix
func (cm *CacheManager) InvalidatePrefix(ctx context.Context, prefix string) error {
	if !cm.enabled() {
		return nil
	}
	return cm.invalidateByPattern(ctx, prefix+"*")
}

func (cm *CacheManager) invalidateByPattern(ctx context.Context, pattern string) error {
	iter := cm.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) > 0 {
		if err := cm.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
		log.Printf("🗑️  Cache invalidated: %d keys matching pattern '%s'", len(keys), pattern)
	}

	return nil
}

// AcquireLock takes key with SET NX for ttl. token identifies the holder on release.
func (cm *CacheManager) AcquireLock(ctx context.Context, key string, token string, ttl time.Duration) (bool, error) {
	if !cm.enabled() {
		return true, nil
	}

	ok, err := cm.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseLock deletes key only if it still holds token
func (cm *CacheManager) ReleaseLock(ctx context.Context, key string, token string) error {
	if !cm.enabled() {
		return nil
	}
	if err := releaseScript.Run(ctx, cm.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Ping checks the redis connection
func (cm *CacheManager) Ping(ctx context.Context) error {
	if !cm.enabled() {
		return errors.New("cache manager not initialized")
	}
	return cm.client.Ping(ctx).Err()
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm.enabled() {
		return cm.client.Close()
	}
	return nil
}
