package scheduler

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker keeps a job from running on more than one instance at a time
type Locker interface {
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// LocalLock is used when only one instance runs
type LocalLock struct{}

// TryAcquire always succeeds
func (LocalLock) TryAcquire(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

// Release does nothing
func (LocalLock) Release(context.Context, string, string) error {
	return nil
}

const lockPrefix = "storefront:lock:"

// release deletes the key only if it is still held by owner
var release = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a lease stored under one key per job
type RedisLock struct {
	client *redis.Client
}

// NewRedisLock uses client for the leases
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// TryAcquire takes the lease if nobody holds it
func (l *RedisLock) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockPrefix+name, owner, ttl).Result()
}

// Release gives the lease back if owner still holds it
func (l *RedisLock) Release(ctx context.Context, name, owner string) error {
	return release.Run(ctx, l.client, []string{lockPrefix + name}, owner).Err()
}
