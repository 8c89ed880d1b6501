// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch drives identifiers through their candidate access routes.
//
// Routes for one identifier are attempted strictly in order; retryable
// failures back off and retry up to a per-route cap, terminal failures
// advance to the next route. The raw artifact is written to scratch storage
// before the outcome is returned, so a recorded outcome is always backed by
// data. At most one fetch is in flight per identifier.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pdiddy/corpus-engine/internal/resolve"
	"github.com/pdiddy/corpus-engine/internal/scratch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 30 * time.Second
	defaultSlotTimeout = 2 * time.Minute
)

// inflightCall tracks an in-progress fetch so concurrent requests for the
// same identifier share one outcome.
type inflightCall struct {
	done    chan struct{}
	outcome types.FetchOutcome
}

// Orchestrator fetches artifacts over HTTP with per-class rate limiting
// and persists them to scratch storage.
type Orchestrator struct {
	client   *http.Client
	cfg      types.FetchConfig
	creds    Credentials
	limiters *Limiters
	store    *scratch.Store
	backoff  BackoffPolicy
	w        io.Writer

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// New builds an orchestrator. Status lines for each route attempt are
// written to w.
func New(client *http.Client, cfg types.FetchConfig, creds Credentials, store *scratch.Store, w io.Writer) *Orchestrator {
	if cfg.MaxAttemptsPerRoute <= 0 {
		cfg.MaxAttemptsPerRoute = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if cfg.SlotTimeout <= 0 {
		cfg.SlotTimeout = defaultSlotTimeout
	}

	return &Orchestrator{
		client:   client,
		cfg:      cfg,
		creds:    creds,
		limiters: NewLimiters(cfg.RateClasses),
		store:    store,
		backoff:  BackoffPolicy{Base: cfg.BackoffBase, Max: cfg.BackoffMax},
		w:        w,
		inflight: make(map[string]*inflightCall),
	}
}

// Fetch drives one identifier through its routes and returns the recorded
// outcome. A concurrent Fetch for the same identifier waits on the first
// call and observes its outcome rather than starting a second download.
func (o *Orchestrator) Fetch(ctx context.Context, id types.WorkIdentifier, routes []types.AccessRoute) types.FetchOutcome {
	key := resolve.Slug(id.ID)

	o.mu.Lock()
	if call, ok := o.inflight[key]; ok {
		o.mu.Unlock()
		select {
		case <-call.done:
			return call.outcome
		case <-ctx.Done():
			return failedOutcome(id, []types.RouteAttempt{{
				Route:  "in-flight-wait",
				Reason: types.ReasonRouteUnavailable,
				Detail: fmt.Sprintf("canceled while waiting on in-flight fetch: %v", ctx.Err()),
			}})
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	o.inflight[key] = call
	o.mu.Unlock()

	outcome := o.fetchRoutes(ctx, id, key, routes)

	o.mu.Lock()
	call.outcome = outcome
	delete(o.inflight, key)
	o.mu.Unlock()
	close(call.done)

	return outcome
}

func (o *Orchestrator) fetchRoutes(ctx context.Context, id types.WorkIdentifier, key string, routes []types.AccessRoute) types.FetchOutcome {
	var attempts []types.RouteAttempt
	var best *attemptResult
	var bestRoute string

	for _, route := range routes {
		res, ok := o.tryRoute(ctx, route, id, key)
		if !ok {
			// Run canceled; report what was attempted so far.
			return failedOutcome(id, append(attempts, types.RouteAttempt{
				Route:  route.Name(),
				Reason: types.ReasonRouteUnavailable,
				Detail: fmt.Sprintf("canceled: %v", ctx.Err()),
			}))
		}

		switch res.class {
		case classHardSuccess:
			if err := o.store.Put(key, res.format, res.data, route.Name()); err != nil {
				// Treat an unwritable artifact as a route failure: the
				// outcome must never report data that is not on disk.
				attempts = append(attempts, types.RouteAttempt{
					Route:  route.Name(),
					Reason: types.ReasonRouteUnavailable,
					Detail: fmt.Sprintf("persisting artifact: %v", err),
				})
				continue
			}
			fmt.Fprintf(o.w, "fetched: %s via %s (%s)\n", id.ID, route.Name(), res.format)
			return types.FetchOutcome{
				Identifier:  id.ID,
				Status:      types.FetchSuccess,
				Format:      res.format,
				ArtifactKey: key,
				Route:       route.Name(),
				Attempts:    attempts,
				FetchedAt:   time.Now().UTC(),
			}

		case classSoftSuccess:
			// Keep the largest soft candidate and keep trying for a hard
			// success on the remaining routes.
			if best == nil || len(res.data) > len(best.data) {
				r := res
				best = &r
				bestRoute = route.Name()
			}
			attempts = append(attempts, types.RouteAttempt{Route: route.Name(), Reason: res.reason, Detail: res.detail})

		case classDenied, classRetryable:
			attempts = append(attempts, types.RouteAttempt{Route: route.Name(), Reason: res.reason, Detail: res.detail})
		}
	}

	if best != nil {
		if err := o.store.Put(key, best.format, best.data, bestRoute); err != nil {
			return failedOutcome(id, append(attempts, types.RouteAttempt{
				Route:  bestRoute,
				Reason: types.ReasonRouteUnavailable,
				Detail: fmt.Sprintf("persisting partial artifact: %v", err),
			}))
		}
		fmt.Fprintf(o.w, "partial: %s via %s (%s)\n", id.ID, bestRoute, best.reason)
		return types.FetchOutcome{
			Identifier:  id.ID,
			Status:      types.FetchPartial,
			Format:      best.format,
			ArtifactKey: key,
			Route:       bestRoute,
			Reason:      best.reason,
			Attempts:    attempts,
			FetchedAt:   time.Now().UTC(),
		}
	}

	fmt.Fprintf(o.w, "failed:  %s (%d routes exhausted)\n", id.ID, len(routes))
	return failedOutcome(id, attempts)
}

// tryRoute runs one route with rate limiting, retries, and backoff. The
// returned result is the route's final classification; ok is false only
// when the run context is canceled.
func (o *Orchestrator) tryRoute(ctx context.Context, route types.AccessRoute, id types.WorkIdentifier, key string) (attemptResult, bool) {
	var last attemptResult

	for attempt := 0; attempt < o.cfg.MaxAttemptsPerRoute; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return last, false
			case <-time.After(o.backoff.Delay(attempt - 1)):
			}
		}

		release, err := o.limiters.Acquire(ctx, route.RateClass, o.cfg.SlotTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return last, false
			}
			// Slot wait timed out: retryable for this attempt.
			last = retryable(fmt.Sprintf("rate-limit slot: %v", err))
			continue
		}

		res := o.executeRoute(ctx, route, id, key)
		release()

		if res.class != classRetryable {
			return res, true
		}
		last = res
		if ctx.Err() != nil {
			return last, false
		}
	}

	// Attempt cap exhausted; the last transient failure stands as the
	// route's terminal reason.
	if last.detail == "" {
		last = retryable("attempt cap exhausted")
	}
	return last, true
}

// failedOutcome builds a Failed outcome whose overall reason is the last
// attempt's reason (attempts are in route order, so the final entry is the
// most conservative route's verdict).
func failedOutcome(id types.WorkIdentifier, attempts []types.RouteAttempt) types.FetchOutcome {
	reason := types.ReasonRouteUnavailable
	if n := len(attempts); n > 0 {
		reason = attempts[n-1].Reason
	}
	return types.FetchOutcome{
		Identifier: id.ID,
		Status:     types.FetchFailure,
		Reason:     reason,
		Attempts:   attempts,
		FetchedAt:  time.Now().UTC(),
	}
}
