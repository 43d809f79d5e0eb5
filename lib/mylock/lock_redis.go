package mylock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MarcGrol/ticketshop/lib/myuuid"
)

const (
	lockTTL       = 30 * time.Second
	retryInterval = 20 * time.Millisecond
	maxWait       = 10 * time.Second
)

// Only the owner of the token may delete the key.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

type redisLocker struct {
	client redis.Cmdable
	uuider myuuid.UUIDer
}

func NewRedisLocker(client redis.Cmdable, uuider myuuid.UUIDer) *redisLocker {
	return &redisLocker{
		client: client,
		uuider: uuider,
	}
}

// NewRedisClient connects to the redis server at url and verifies it is reachable.
func NewRedisClient(c context.Context, url string) (*redis.Client, func(), error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr: url,
		}
	}
	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	c, cancel := context.WithTimeout(c, 5*time.Second)
	defer cancel()

	err = client.Ping(c).Err()
	if err != nil {
		client.Close()
		return nil, func() {}, fmt.Errorf("error connecting to redis: %s", err)
	}

	return client, func() {
		client.Close()
	}, nil
}

func (l *redisLocker) Lock(c context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := l.uuider.Create()

	c, cancel := context.WithTimeout(c, maxWait)
	defer cancel()

	for {
		acquired, err := l.client.SetNX(c, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("error acquiring lock %s: %s", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-c.Done():
			return nil, fmt.Errorf("%w %s: %s", ErrLockTimeout, key, c.Err())
		case <-time.After(retryInterval):
		}
	}

	return func() {
		// Use a fresh context: the callers context may be done by now.
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), time.Second)
		defer releaseCancel()
		l.client.Eval(releaseCtx, releaseScript, []string{lockKey}, token)
	}, nil
}

func (l *redisLocker) Ping(c context.Context) error {
	return l.client.Ping(c).Err()
}
