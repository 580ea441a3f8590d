package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := New(addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err := s.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLocker_ExclusiveUntilReleased(t *testing.T) {
	s := testStore(t)
	l := s.SessionLocker(5 * time.Second)
	key := "test:" + t.Name()

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to time out, got %v", err)
	}

	unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	unlock2, err := l.Lock(ctx2, key)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock2()
}

func TestSessionLocker_ReleaseKeepsForeignLock(t *testing.T) {
	s := testStore(t)
	l := s.SessionLocker(200 * time.Millisecond)
	key := "test:" + t.Name()

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	time.Sleep(300 * time.Millisecond) // first holder's key expires

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock2, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	defer unlock2()

	unlock() // stale holder must not free the new owner's lock

	n, err := s.rdb.Exists(context.Background(), lockPrefix+key).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 1 {
		t.Fatal("stale release deleted the current holder's lock")
	}
}
