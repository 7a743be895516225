package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Release gives a lease back. It is safe to call more than once.
type Release func(ctx context.Context) error

// RedisLocker hands out leases shared by every process using the same Redis.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, prefix: "salespilot:lease:"}
}

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock takes the lease for ttl. ok is false when another holder has it.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (Release, bool, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			err = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		})
		return err
	}
	return release, true, nil
}

// LocalLocker serializes lease holders inside one process. Used when Redis
// is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, name string, ttl time.Duration) (Release, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.held[name] = until

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[name].Equal(until) {
				delete(l.held, name)
			}
		})
		return nil
	}
	return release, true, nil
}
