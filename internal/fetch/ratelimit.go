// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// defaultRateClass is applied to classes with no explicit configuration:
// one request at a time, one second apart. Publishers we know nothing about
// get the most conservative treatment.
var defaultRateClass = types.RateClassConfig{Concurrency: 1, MinInterval: time.Second}

// classLimiter combines a concurrency bound with request pacing for one
// rate class.
type classLimiter struct {
	slots chan struct{}
	pace  *rate.Limiter
}

// Limiters hands out rate-limit slots scoped per route class. All
// identifiers in flight for a class share one limiter.
type Limiters struct {
	mu      sync.Mutex
	classes map[string]*classLimiter
	cfg     map[string]types.RateClassConfig
}

// NewLimiters builds a limiter set from per-class configuration. Classes
// absent from cfg are created on demand with the conservative default.
func NewLimiters(cfg map[string]types.RateClassConfig) *Limiters {
	return &Limiters{
		classes: make(map[string]*classLimiter),
		cfg:     cfg,
	}
}

func (l *Limiters) class(name string) *classLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.classes[name]; ok {
		return cl
	}

	cc, ok := l.cfg[name]
	if !ok || cc.Concurrency <= 0 {
		cc = defaultRateClass
	}

	var pace *rate.Limiter
	if cc.MinInterval > 0 {
		pace = rate.NewLimiter(rate.Every(cc.MinInterval), 1)
	} else {
		pace = rate.NewLimiter(rate.Inf, 1)
	}

	cl := &classLimiter{
		slots: make(chan struct{}, cc.Concurrency),
		pace:  pace,
	}
	l.classes[name] = cl
	return cl
}

// Acquire blocks until a slot for class is available and the pacing
// interval has elapsed, or until timeout (or ctx cancellation) expires.
// On success it returns a release function that must be called when the
// request finishes. An empty class means the route makes no network
// request and Acquire is a no-op.
func (l *Limiters) Acquire(ctx context.Context, class string, timeout time.Duration) (func(), error) {
	if class == "" {
		return func() {}, nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cl := l.class(class)

	select {
	case cl.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s rate-limit slot: %w", class, ctx.Err())
	}

	if err := cl.pace.Wait(ctx); err != nil {
		<-cl.slots
		return nil, fmt.Errorf("pacing %s request: %w", class, err)
	}

	released := false
	return func() {
		if !released {
			released = true
			<-cl.slots
		}
	}, nil
}
