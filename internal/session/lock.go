package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("session lock held")

// Locker serializes work on one session. The returned unlock releases the
// lock and may be called more than once.
type Locker interface {
	Lock(ctx context.Context, sid, name string) (unlock func(context.Context) error, err error)
}

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockWait  = 10 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock takes session:<sid>:<name> with SET NX. It waits up to the lock wait
// time, or until ctx is done, for a holder to release it.
func (s *RedisStore) Lock(ctx context.Context, sid, name string) (func(context.Context) error, error) {
	key := lockKey(sid, name)
	token := uuid.NewString()

	ttl, wait := s.lockTTL, s.lockWait
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s", ErrLocked, key)
		case <-time.After(lockPollInterval):
		}
	}

	var once sync.Once
	var unlockErr error
	return func(ctx context.Context) error {
		once.Do(func() {
			if err := unlockScript.Run(ctx, s.client, []string{key}, token).Err(); err != nil {
				unlockErr = fmt.Errorf("redis unlock failed: %w", err)
			}
		})
		return unlockErr
	}, nil
}

func lockKey(sid, name string) string {
	return fmt.Sprintf("%s:%s", sessionKey(sid), name)
}

// LocalLocker is an in-process Locker keyed by session and lock name.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]chan struct{}{}}
}

func (l *LocalLocker) Lock(ctx context.Context, sid, name string) (func(context.Context) error, error) {
	key := lockKey(sid, name)
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			released = make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
		}
	}
}
