package presets

import (
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-guard/v1/guard"
	"github.com/mirkobrombin/go-guard/v1/lock"
	"github.com/mirkobrombin/go-guard/v1/notify"
)

// NewMutex creates a guard over a plain sync.Mutex. This is the right
// default for values shared between goroutines in one process.
func NewMutex[T any](initial T) *guard.Guard[T] {
	return guard.New(initial)
}

// NewRW creates a read-write guard over a sync.RWMutex, for values that are
// read far more often than written.
func NewRW[T any](initial T) *guard.RWGuard[T] {
	return guard.NewRW(initial)
}

// NewSemaphore creates a guard whose locker is a weighted semaphore. Unlike
// the mutex preset it wakes waiters in FIFO order and supports native
// context-aware acquisition.
func NewSemaphore[T any](initial T) *guard.Guard[T] {
	return guard.New(initial, guard.WithLocker[T](lock.NewSemaphore()))
}

// RedisOptions configures the connection behind a distributed guard.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Key is the Redis key the lock is stored under.
	Key string
	// TTL bounds how long a crashed holder blocks other nodes.
	TTL time.Duration
}

// NewRedis creates a guard whose lock spans every node pointed at the same
// Redis key. The local payload is per-process; only mutual exclusion is
// distributed.
func NewRedis[T any](initial T, opts RedisOptions) *guard.Guard[T] {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	bus := notify.NewRedisBus(client)
	lockOpts := []lock.RedisOption{lock.WithBus(bus)}
	if opts.TTL > 0 {
		lockOpts = append(lockOpts, lock.WithTTL(opts.TTL))
	}
	l := lock.NewRedis(client, opts.Key, lockOpts...)
	return guard.New(initial, guard.WithLocker[T](l))
}
