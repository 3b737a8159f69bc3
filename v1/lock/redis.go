package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-guard/v1/notify"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

const (
	defaultRedisTTL  = 30 * time.Second
	redisCallTimeout = 5 * time.Second
)

// Redis is a distributed mutual exclusion lock over a single Redis key.
// Acquisition writes a per-holder token with SetNX; release deletes the key
// only when the token still matches, so an expired hold cannot release a
// newer holder. The TTL bounds how long a crashed holder can block others.
//
// Waiters subscribe to a notify bus and are woken when any node releases;
// the bus is advisory, acquisition always re-checks the key.
type Redis struct {
	client *redis.Client
	bus    notify.Bus
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// RedisOption configures a Redis lock.
type RedisOption func(*Redis)

// WithTTL sets how long an acquisition survives a crashed holder.
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = d
	}
}

// WithBus sets the notify bus used to wake waiters across nodes.
func WithBus(bus notify.Bus) RedisOption {
	return func(r *Redis) {
		r.bus = bus
	}
}

// NewRedis returns a Redis lock over key using the provided client.
func NewRedis(client *redis.Client, key string, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		key:    key,
		ttl:    defaultRedisTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = notify.NewInMemoryBus()
	}
	return r
}

func (r *Redis) unlockTopic() string {
	return "unlock:" + r.key
}

func (r *Redis) tryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		r.mu.Lock()
		r.token = token
		r.mu.Unlock()
	}
	return ok, nil
}

// TryLock attempts to obtain the lock without waiting. Transport errors
// count as not acquired.
func (r *Redis) TryLock() bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	ok, err := r.tryLock(ctx)
	return err == nil && ok
}

// Acquire blocks until the lock is obtained or ctx is done. Between
// attempts it waits for a release signal, with a periodic re-check so that
// a missed signal or an expired holder cannot stall a waiter forever.
func (r *Redis) Acquire(ctx context.Context) error {
	wake := r.ttl / 4
	if wake <= 0 || wake > time.Second {
		wake = time.Second
	}
	for {
		ok, err := r.tryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		ch, err := r.bus.Subscribe(ctx, r.unlockTopic())
		if err != nil {
			return err
		}
		timer := time.NewTimer(wake)
		select {
		case <-ch:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			_ = r.bus.Unsubscribe(context.Background(), r.unlockTopic(), ch)
			return ctx.Err()
		}
		timer.Stop()
		_ = r.bus.Unsubscribe(context.Background(), r.unlockTopic(), ch)
	}
}

// Lock blocks until the lock is obtained, retrying transport errors with
// backoff. Use Acquire to observe errors instead.
func (r *Redis) Lock() {
	backoff := 50 * time.Millisecond
	for {
		if err := r.Acquire(context.Background()); err == nil {
			return
		}
		time.Sleep(backoff)
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

// Unlock releases the lock and wakes waiters on all nodes. It panics if the
// lock is not held by this instance.
func (r *Redis) Unlock() {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()
	if token == "" {
		panic("lock: unlock of unheld Redis lock")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	if _, err := delScript.Run(ctx, r.client, []string{r.key}, token).Result(); err != nil && err != redis.Nil {
		// The key expires on its own; the TTL is the fallback for a
		// release that could not reach Redis.
		return
	}
	_ = r.bus.Publish(ctx, r.unlockTopic())
}
