package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmynk/splitledger/internal/storage"
)

// keyedLock serializes work per key. Each key is a one-slot semaphore so a
// waiter can give up on context cancellation or timeout.
type keyedLock struct {
	mu   sync.Mutex
	keys map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{keys: make(map[string]*slot)}
}

// acquire blocks until key is free, ctx is done, or timeout elapses.
// A timeout yields storage.ErrConcurrentMutation. A zero timeout waits
// for ctx only.
func (l *keyedLock) acquire(ctx context.Context, key string, timeout time.Duration) (release func(), err error) {
	l.mu.Lock()
	s, ok := l.keys[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	l.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.forget(key, s)
		}, nil
	case <-ctx.Done():
		l.forget(key, s)
		return nil, ctx.Err()
	case <-expired:
		l.forget(key, s)
		return nil, fmt.Errorf("%w: timed out after %s waiting for %s", storage.ErrConcurrentMutation, timeout, key)
	}
}

func (l *keyedLock) forget(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.keys, key)
	}
}

func receiptKey(receiptID string) string {
	return "receipt:" + receiptID
}

func groupKey(groupID, currency string) string {
	return "group:" + groupID + "|" + currency
}
