package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"vehiclerental/internal/service"
)

const lockPrefix = "lock:"

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder can never release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis. It implements service.Locker.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	log    logrus.FieldLogger
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder
// keeps a key; wait bounds how long Lock retries before reporting busy.
func NewLockStore(client *redis.Client, ttl, wait time.Duration, log logrus.FieldLogger) *LockStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &LockStore{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
		log:    log.WithField("component", "redis_lock"),
	}
}

// Lock acquires key with SET NX, retrying until it is free, ctx ends or the
// wait budget runs out.
func (s *LockStore) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(s.wait)

	for {
		ok, err := s.client.SetNX(ctx, redisKey, token, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return s.unlocker(redisKey, token), nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", service.ErrBusy, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", service.ErrBusy, key, ctx.Err())
		case <-time.After(s.retry):
		}
	}
}

func (s *LockStore) unlocker(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { s.release(redisKey, token) })
	}
}

func (s *LockStore) release(redisKey, token string) {
	// Release even when the caller's context is already done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, s.client, []string{redisKey}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.WithError(err).WithField("key", redisKey).Warn("failed to release lock")
		return
	}
	if n == 0 {
		s.log.WithField("key", redisKey).Warn("lock expired before release")
	}
}
