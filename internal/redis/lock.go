package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const deviceLockPrefix = "lock:device:"

// releaseScript deletes the lock only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles per-device ingest locks in Redis, so that only one
// instance applies a given device's samples at a time.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireDeviceLock tries to take the device's ingest lock for ttl. On success
// it returns the owner token that ReleaseDeviceLock needs; ok is false when
// another holder has the lock.
func (s *LockStore) AcquireDeviceLock(ctx context.Context, deviceID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = s.client.SetNX(ctx, deviceLockPrefix+deviceID, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseDeviceLock drops the lock if token still owns it. A lock that expired
// and was taken by someone else is left alone.
func (s *LockStore) ReleaseDeviceLock(ctx context.Context, deviceID, token string) error {
	err := releaseScript.Run(ctx, s.client, []string{deviceLockPrefix + deviceID}, token).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}
