package service

import (
	"context"
	"fmt"
	"sync"
)

// Locker serializes work on a key across goroutines, and across processes
// for distributed implementations.
type Locker interface {
	// Lock blocks until the key is held or ctx ends. The returned func
	// releases the lock and must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func rentalLockKey(rentalID string) string { return "rental:" + rentalID }

func unitLockKey(unitID string) string { return "unit:" + unitID }

func userLockKey(userID string) string { return "user:" + userID }

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocalLocker creates a new LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

// Lock acquires key, waiting for the current holder to release it.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			released = make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctx.Err())
		}
	}
}
