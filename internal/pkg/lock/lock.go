// Package lock serializes event handling per user.
//
// telebot dispatches updates on separate goroutines. A user's check-in
// commands and media must still be applied in arrival order, so every
// handler that touches user state runs under that user's lock.
package lock

import (
	"context"
	"sync"
	"time"
)

type userMutex struct {
	ch   chan struct{} // one-slot semaphore
	refs int
}

// UserLock hands out one mutex per user id. Entries are dropped once no
// goroutine holds or waits for them.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

func (ul *UserLock) acquireRef(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{ch: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

func (ul *UserLock) releaseRef(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	m := ul.acquireRef(userID)
	m.ch <- struct{}{}
}

// Unlock releases the user's lock. Unlocking a user that is not locked is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.ch:
		ul.releaseRef(userID, m)
	default:
	}
}

// LockWithTimeout waits up to timeout for the user's lock.
// Returns false if the lock was not acquired.
func (ul *UserLock) LockWithTimeout(ctx context.Context, userID int64, timeout time.Duration) bool {
	m := ul.acquireRef(userID)

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case m.ch <- struct{}{}:
		return true
	case <-timeoutCtx.Done():
		ul.releaseRef(userID, m)
		return false
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, giving up
// with ErrLockTimeout if the lock is not acquired within timeout.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	if !ul.LockWithTimeout(ctx, userID, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)
	return fn()
}

// Len returns the number of users with a held or awaited lock.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
