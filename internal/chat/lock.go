package chat

import (
	"context"
	"strconv"
	"sync"
)

// SessionLocker serialises Reflect calls on the same session. Lock blocks until
// the session is free or ctx is done; the returned func releases it.
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SessionKey is the lock key for a (user, session) pair.
func SessionKey(userID uint64, sessionID string) string {
	return strconv.FormatUint(userID, 10) + ":" + sessionID
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process SessionLocker. It only serialises calls within
// one process; use a shared locker when running several replicas.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *LocalLocker) release(key string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many sessions currently have waiters or holders.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }
