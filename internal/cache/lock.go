package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trailquest/trailquest/internal/apperr"
)

// LockStore is the subset of the cache a Locker needs.
type LockStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// Locker hands out short-lived exclusive locks keyed by string.
// Each lock holds a random token so a holder never releases somebody else's lock
// after its own TTL expired.
type Locker struct {
	store LockStore
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
}

// NewLocker creates a locker. Acquire keeps retrying for up to wait.
func NewLocker(store LockStore, ttl, wait time.Duration) *Locker {
	return &Locker{store: store, ttl: ttl, wait: wait, poll: 25 * time.Millisecond}
}

// PlayKey is the lock key serializing one user's submissions on one hunt.
func PlayKey(userID, huntID uint) string {
	return fmt.Sprintf("play:%d:%d", userID, huntID)
}

// Acquire takes the lock or returns apperr.ErrLockBusy once the wait budget
// is spent. The returned release func is safe to call more than once.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.store.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			released := false
			return func() {
				if released {
					return
				}
				released = true
				// Background context: release must run even if the request was cancelled.
				_, _ = l.store.DelIfValue(context.Background(), key, token)
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("lock %s: %w", key, apperr.ErrLockBusy)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
