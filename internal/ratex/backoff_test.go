// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package ratex

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_ConcurrencyBound(t *testing.T) {
	l := NewLimiter(0, 2)
	var inFlight, maxSeen int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() failed: %v", err)
				return
			}
			defer release()
			mu.Lock()
			inFlight++
			if inFlight > maxSeen {
				maxSeen = inFlight
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen > 2 {
		t.Fatalf("max concurrent acquisitions = %d, want <= 2", maxSeen)
	}
}

func TestLimiter_RollingWindow(t *testing.T) {
	l := NewLimiter(3, 10)
	fakeNow := time.Now()
	l.nowFunc = func() time.Time { return fakeNow }

	for i := 0; i < 3; i++ {
		release, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() failed: %v", err)
		}
		release()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Fatalf("Acquire() succeeded past rate limit, want blocking/error")
	}

	fakeNow = fakeNow.Add(61 * time.Second)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after window rollover failed: %v", err)
	}
	release()
}

func TestBackoffDelay(t *testing.T) {
	if got := BackoffDelay(0, time.Second, true); got != time.Second {
		t.Fatalf("BackoffDelay(0) = %v, want 1s", got)
	}
	if got := BackoffDelay(2, time.Second, true); got != 4*time.Second {
		t.Fatalf("BackoffDelay(2) = %v, want 4s", got)
	}
	if got := BackoffDelay(5, time.Second, false); got != time.Second {
		t.Fatalf("BackoffDelay non-exponential = %v, want 1s", got)
	}
}
