// Package lock provides per-account locking so that read-modify-write
// operations on the same account never interleave.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the deadline.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// userMutex wraps a mutex with reference counting for cleanup.
type userMutex struct {
	mu   sync.Mutex
	refs int
}

// UserLock serializes operations per user id. Mutexes are created on demand
// and dropped once nobody holds or waits for them.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

// acquire returns the mutex for userID with one more reference held.
func (ul *UserLock) acquire(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

// release drops one reference and forgets the mutex when unused.
func (ul *UserLock) release(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID int64) {
	ul.acquire(userID).mu.Lock()
}

// Unlock releases the lock for a user. Unlocking a user that is not locked
// is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	ul.release(userID, m)
}

// LockContext waits for the lock until ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	m := ul.acquire(userID)
	if m.mu.TryLock() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The goroutine still acquires eventually; hand the lock back then.
		go func() {
			<-done
			m.mu.Unlock()
			ul.release(userID, m)
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// LockMany locks every distinct id in ascending order and returns a function
// that unlocks them. Ascending order prevents deadlock between two callers
// locking the same pair. If ctx ends first, the locks already taken are
// released and the error from LockContext is returned.
func (ul *UserLock) LockMany(ctx context.Context, userIDs ...int64) (unlock func(), err error) {
	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for i, id := range ids {
		if err := ul.LockContext(ctx, id); err != nil {
			for j := i - 1; j >= 0; j-- {
				ul.Unlock(ids[j])
			}
			return nil, err
		}
	}
	return func() {
		for i := len(ids) - 1; i >= 0; i-- {
			ul.Unlock(ids[i])
		}
	}, nil
}

// size returns the number of tracked mutexes.
func (ul *UserLock) size() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
