package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockHeld means another ingestion of the same report is in flight.
var ErrLockHeld = errors.New("ingestion already in progress")

type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes ingestion per report across instances.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker adapts redislock. A nil client yields no locking. Without a
// Retry strategy a held key fails at once; with one, Obtain waits until the
// key frees up or ctx is done.
type RedisLocker struct {
	Client *redislock.Client
	Retry  redislock.RetryStrategy
}

func (l RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if l.Client == nil {
		return nil, nil
	}
	var opts *redislock.Options
	if l.Retry != nil {
		opts = &redislock.Options{RetryStrategy: l.Retry}
	}
	lock, err := l.Client.Obtain(ctx, key, ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockHeld
		}
		return nil, err
	}
	return lock, nil
}

func lockKey(reportId uint) string {
	return fmt.Sprintf("lock:ingest:%d", reportId)
}

// LocalLocker serializes holders of a key within one process. Obtain waits
// for the current holder to release, or fails with ErrLockHeld once ctx is done.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			released = make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()
			return &localLock{owner: l, key: key, released: released}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ErrLockHeld
		}
	}
}

type localLock struct {
	owner    *LocalLocker
	key      string
	released chan struct{}
	once     sync.Once
}

func (k *localLock) Release(context.Context) error {
	k.once.Do(func() {
		k.owner.mu.Lock()
		delete(k.owner.held, k.key)
		k.owner.mu.Unlock()
		close(k.released)
	})
	return nil
}
