package rtos

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Mutex is a kernel mutex: a binary semaphore that blocks the calling task
// only. Lock has no timeout.
type Mutex struct {
	sem *semaphore.Weighted
}

func newMutex() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	// Acquire only fails on context cancellation.
	_ = m.sem.Acquire(context.Background(), 1)
}

// LockContext blocks until the mutex is acquired or ctx is done.
func (m *Mutex) LockContext(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryLock acquires the mutex without blocking and reports whether it did.
func (m *Mutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// Unlock releases the mutex. Unlocking an unlocked mutex panics.
func (m *Mutex) Unlock() {
	m.sem.Release(1)
}
