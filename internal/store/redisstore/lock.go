package redisstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "mirror:session_lock:"

// release only deletes the key if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLocker serialises work on a session across processes. The key
// expires after ttl so a crashed holder cannot block the session forever.
type SessionLocker struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
}

func (s *Store) SessionLocker(ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SessionLocker{store: s, ttl: ttl, interval: 50 * time.Millisecond}
}

func (l *SessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	k := lockPrefix + key

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		ok, err := l.store.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// the caller's ctx may already be cancelled
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// a failed release is covered by the key's expiry
		_ = releaseScript.Run(cctx, l.store.rdb, []string{k}, token).Err()
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
