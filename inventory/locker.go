package inventory

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker serializes work on a key. Lock blocks until the key is free or ctx is
// done; the returned function releases it and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is a per-key mutex for a single process. Entries are dropped once
// nobody holds or waits for a key, so the map only grows with live contention.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	kl := l.acquireRef(key)

	if err := kl.sem.Acquire(ctx, 1); err != nil {
		l.releaseRef(key, kl)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.sem.Release(1)
			l.releaseRef(key, kl)
		})
	}, nil
}

func (l *LocalLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
