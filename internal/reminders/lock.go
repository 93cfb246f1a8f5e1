package reminders

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

const defaultLockKey = "clinic:reminders:dispatch_lock"

// CycleLock is a best-effort Redis lock so overlapping timer fires from
// multiple instances skip instead of racing. Claim safety does not depend on
// it; the row-level lease in ClaimDue is the real guarantee.
type CycleLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

// NewCycleLock creates a dispatch cycle lock. A nil client disables locking.
func NewCycleLock(client *redis.Client, ttl time.Duration, logger *logging.Logger) *CycleLock {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CycleLock{client: client, key: defaultLockKey, ttl: ttl, logger: logger}
}

// Acquire attempts to take the lock. Redis being unavailable acquires
// trivially so dispatch keeps working without it.
func (l *CycleLock) Acquire(ctx context.Context) bool {
	if l == nil || l.client == nil {
		return true
	}
	ok, err := l.client.SetNX(ctx, l.key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		l.logger.Warn("cycle lock unavailable, proceeding without it", "error", err)
		return true
	}
	return ok
}

// Release frees the lock early so the next cycle does not wait out the TTL.
func (l *CycleLock) Release(ctx context.Context) {
	if l == nil || l.client == nil {
		return
	}
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		l.logger.Warn("cycle lock release failed", "error", err)
	}
}
