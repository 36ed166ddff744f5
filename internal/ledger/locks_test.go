package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/storage"
)

func TestKeyedLock_SerializesPerKey(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.acquire(ctx, "k", 0)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("%d holders at once, want 1", maxSeen)
	}
	if len(l.keys) != 0 {
		t.Errorf("lock table not cleaned up: %d keys", len(l.keys))
	}
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	l := newKeyedLock()
	ctx := context.Background()

	release, err := l.acquire(ctx, "a", 0)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	other, err := l.acquire(ctx, "b", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("independent key blocked: %v", err)
	}
	other()
}

func TestKeyedLock_TimeoutAndCancel(t *testing.T) {
	l := newKeyedLock()
	release, err := l.acquire(context.Background(), "k", 0)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if _, err := l.acquire(context.Background(), "k", 5*time.Millisecond); !errors.Is(err, storage.ErrConcurrentMutation) {
		t.Errorf("expected ErrConcurrentMutation on timeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.acquire(ctx, "k", time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	release()
	if len(l.keys) != 0 {
		t.Errorf("lock table not cleaned up: %d keys", len(l.keys))
	}
}
