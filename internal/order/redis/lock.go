package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned when another instance held the class lock
// for the whole wait window. The reservation is safe to retry.
var ErrLockNotAcquired = errors.New("class lock not acquired")

const defaultPollInterval = 10 * time.Millisecond

// releaseScript deletes the key only if it still carries our token, so an
// expired holder never frees a lock that has since been taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClassLock serializes claims on one ticket class across service instances.
// The database transaction stays authoritative; the lock only keeps
// instances from piling onto the same row lock.
type ClassLock struct {
	Client       *redis.Client
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
	Logger       *logger.Logger
}

func NewClassLock(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *ClassLock {
	return &ClassLock{
		Client:       client,
		TTL:          ttl,
		Wait:         wait,
		PollInterval: defaultPollInterval,
		Logger:       log,
	}
}

func lockKey(classID string) string {
	return "class_lock:" + classID
}

// Acquire blocks until the class lock is held, Wait elapses, or ctx ends.
// The returned release func is safe to call once the lock has expired.
func (l *ClassLock) Acquire(ctx context.Context, classID string) (func(), error) {
	key := lockKey(classID)
	token := uuid.NewString()

	poll := l.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if !time.Now().Before(deadline) {
			l.Logger.Debug("REDIS", fmt.Sprintf("Lock %s busy after %s", key, l.Wait))
			return nil, fmt.Errorf("%s: %w", key, ErrLockNotAcquired)
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// release runs on its own context so a cancelled request still frees the key.
func (l *ClassLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.Logger.Warn("REDIS", fmt.Sprintf("Failed to release %s: %v", key, err))
	}
}

// Held reports whether some instance currently holds the class lock.
func (l *ClassLock) Held(ctx context.Context, classID string) (bool, error) {
	_, err := l.Client.Get(ctx, lockKey(classID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
