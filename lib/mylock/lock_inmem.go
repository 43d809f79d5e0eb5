package mylock

import (
	"context"
	"fmt"
	"sync"
)

type keyLock struct {
	owner chan struct{}
	refs  int
}

type inMemoryLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

func NewInMemoryLocker() *inMemoryLocker {
	return &inMemoryLocker{
		keys: map[string]*keyLock{},
	}
}

func (l *inMemoryLocker) Lock(c context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, found := l.keys[key]
	if !found {
		kl = &keyLock{owner: make(chan struct{}, 1)}
		l.keys[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.owner <- struct{}{}:
		return func() {
			<-kl.owner
			l.release(key, kl)
		}, nil
	case <-c.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w %s: %s", ErrLockTimeout, key, c.Err())
	}
}

// release drops unused keys so the map does not grow with every session ever seen.
func (l *inMemoryLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, key)
	}
}

func (l *inMemoryLocker) Ping(c context.Context) error {
	return nil
}
