package mylock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("timeout acquiring lock")

// Locker serializes work on a single key, across goroutines or across instances.
//
//go:generate mockgen -source=api.go -package mylock -destination locker_mock.go Locker
type Locker interface {
	// Lock blocks until the key is owned by the caller or c is done.
	// The returned function releases the key and must be called exactly once.
	Lock(c context.Context, key string) (func(), error)
	Ping(c context.Context) error
}
