package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
)

var _ domain.ConfirmationLock = (*RedisConfirmationLock)(nil)

const (
	defaultLockTTL    = 30 * time.Second
	defaultLockPrefix = "sales:lock:"
)

// releaseScript deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisConfirmationLock serializes duplicate payment notifications across instances
type RedisConfirmationLock struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisConfirmationLock(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisConfirmationLock {
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisConfirmationLock{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Acquire takes the lock with SET NX. The token must be passed to Release.
func (l *RedisConfirmationLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to acquire lock %s", key)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock unless it expired and was taken by someone else
func (l *RedisConfirmationLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return errors.Wrapf(err, "failed to release lock %s", key)
	}
	return nil
}

// MemoryConfirmationLock is the single process ConfirmationLock used with the memory store
type MemoryConfirmationLock struct {
	mu   sync.Mutex
	held map[string]string
}

var _ domain.ConfirmationLock = (*MemoryConfirmationLock)(nil)

func NewMemoryConfirmationLock() *MemoryConfirmationLock {
	return &MemoryConfirmationLock{held: make(map[string]string)}
}

func (l *MemoryConfirmationLock) Acquire(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[key]; taken {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *MemoryConfirmationLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}
