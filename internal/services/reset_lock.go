package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const resetLockKey = "tokenledger:reset:lock"

// compare-and-delete so an expired holder cannot release a newer lock
var releaseResetLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisResetLock keeps two ledger resets from running at once across instances.
type RedisResetLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResetLock(client *redis.Client, ttl time.Duration) *RedisResetLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisResetLock{client: client, ttl: ttl}
}

func (l *RedisResetLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, resetLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrResetInProgress
	}

	return func() {
		releaseResetLock.Run(context.Background(), l.client, []string{resetLockKey}, token)
	}, nil
}
