// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func TestAcquireEmptyClassIsNoOp(t *testing.T) {
	l := NewLimiters(nil)
	release, err := l.Acquire(context.Background(), "", time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire(\"\") error: %v", err)
	}
	release()
}

func TestAcquireBoundsConcurrency(t *testing.T) {
	l := NewLimiters(map[string]types.RateClassConfig{
		"api": {Concurrency: 2, MinInterval: 0},
	})

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "api", time.Second)
			if err != nil {
				t.Errorf("Acquire error: %v", err)
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			release()
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestAcquireTimeout(t *testing.T) {
	l := NewLimiters(map[string]types.RateClassConfig{
		"api": {Concurrency: 1, MinInterval: 0},
	})

	release, err := l.Acquire(context.Background(), "api", time.Second)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	defer release()

	if _, err := l.Acquire(context.Background(), "api", 10*time.Millisecond); err == nil {
		t.Fatal("second Acquire succeeded while slot was held, want timeout")
	}
}

func TestAcquireReleaseFreesSlot(t *testing.T) {
	l := NewLimiters(map[string]types.RateClassConfig{
		"api": {Concurrency: 1, MinInterval: 0},
	})

	release, err := l.Acquire(context.Background(), "api", time.Second)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	release()
	release() // idempotent

	release2, err := l.Acquire(context.Background(), "api", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
	release2()
}

func TestAcquirePacesRequests(t *testing.T) {
	l := NewLimiters(map[string]types.RateClassConfig{
		"slow": {Concurrency: 4, MinInterval: 30 * time.Millisecond},
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(context.Background(), "slow", time.Second)
		if err != nil {
			t.Fatalf("Acquire %d error: %v", i, err)
		}
		release()
	}
	// The first request is immediate, the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("three paced acquisitions took %v, want >= 50ms", elapsed)
	}
}
