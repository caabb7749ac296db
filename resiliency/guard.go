// Package resiliency wraps a cachestore.CacheStore with circuit-breaking,
// per-call timeouts, and singleflight de-duplication of concurrent lookups
// for the same key. It is a supporting driver concern, not part of the
// caching policy itself: the policy has no built-in timeout or retry
// behavior of its own, so a host that wants one wraps its store with a
// Guard before handing it to the policy.
package resiliency

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/cachingpolicy/cachestore"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	Circuit CircuitBreakerConfig
	Timeout TimeoutConfig
}

// Guard wraps a cachestore.CacheStore with resiliency behavior. It
// implements cachestore.CacheStore itself, so it can be substituted
// anywhere a plain store is expected.
type Guard struct {
	store    cachestore.CacheStore
	breaker  *circuitBreaker
	deadline time.Duration
	sfGroup  singleflight.Group
}

// NewGuard wraps store with the given resiliency configuration.
func NewGuard(store cachestore.CacheStore, cfg GuardConfig) *Guard {
	return &Guard{
		store:    store,
		breaker:  newCircuitBreaker(cfg.Circuit),
		deadline: cfg.Timeout.deadline(),
	}
}

// callOutcome carries a store call's result across the goroutine boundary
// used to race it against the deadline.
type callOutcome struct {
	read  *materializedRead
	write cachestore.WriteStream
	err   error
}

// guarded runs fn - a single GetBinary or PutBinary call against the
// wrapped store - through the circuit breaker and a per-call deadline,
// feeding fn's error back into the breaker once it settles or times out.
func (g *Guard) guarded(ctx context.Context, fn func(context.Context) callOutcome) callOutcome {
	if err := g.breaker.allow(); err != nil {
		return callOutcome{err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.deadline)
	defer cancel()

	done := make(chan callOutcome, 1)
	go func() { done <- fn(ctx) }()

	select {
	case o := <-done:
		g.breaker.recordResult(o.err)
		return o
	case <-ctx.Done():
		err := ErrTimeout
		if ctx.Err() != context.DeadlineExceeded {
			err = ctx.Err()
		}
		g.breaker.recordResult(err)
		return callOutcome{err: err}
	}
}

// materializedRead is a fully-buffered snapshot of a ReadStream, used so a
// single underlying read can be shared across callers collapsed by
// singleflight without racing over one stateful stream.
type materializedRead struct {
	head cachestore.Head
	body []byte
}

// GetBinary looks up key through the circuit breaker and timeout, collapsing
// concurrent lookups for the same key into a single underlying call. Each
// caller - whether it triggered the call or piggybacked on one in flight -
// receives its own independent ReadStream over the same materialized body.
func (g *Guard) GetBinary(ctx context.Context, key string) (cachestore.ReadStream, error) {
	v, err, _ := g.sfGroup.Do(key, func() (any, error) {
		o := g.guarded(ctx, func(ctx context.Context) callOutcome {
			stream, err := g.store.GetBinary(ctx, key)
			if err != nil {
				return callOutcome{err: err}
			}
			if stream == nil {
				return callOutcome{}
			}
			body, err := drain(ctx, stream)
			if err != nil {
				return callOutcome{err: err}
			}
			return callOutcome{read: &materializedRead{head: stream.Head(), body: body}}
		})
		if o.err != nil {
			return nil, o.err
		}
		if o.read == nil {
			return nil, nil
		}
		return o.read, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	mr := v.(*materializedRead)
	return &bufferedReadStream{head: mr.head, body: mr.body}, nil
}

// PutBinary opens a write-stream through the circuit breaker and timeout.
// The returned WriteStream's subsequent Write/End/Abort calls are not
// themselves time-boxed - only establishing the write is.
func (g *Guard) PutBinary(ctx context.Context, key string, head cachestore.Head, ttl time.Duration) (cachestore.WriteStream, error) {
	o := g.guarded(ctx, func(ctx context.Context) callOutcome {
		ws, err := g.store.PutBinary(ctx, key, head, ttl)
		return callOutcome{write: ws, err: err}
	})
	if o.err != nil {
		return nil, o.err
	}
	return o.write, nil
}

// State returns the underlying circuit breaker's current state.
func (g *Guard) State() State {
	return g.breaker.State()
}

func drain(ctx context.Context, stream cachestore.ReadStream) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, done, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(chunk) > 0 {
			buf.Write(chunk)
		}
		if done {
			break
		}
	}
	return buf.Bytes(), nil
}

// bufferedReadStream replays a materialized body independently per caller.
type bufferedReadStream struct {
	head  cachestore.Head
	body  []byte
	drawn bool
}

func (s *bufferedReadStream) Head() cachestore.Head { return s.head }

func (s *bufferedReadStream) Next(ctx context.Context) ([]byte, bool, error) {
	if s.drawn || len(s.body) == 0 {
		s.drawn = true
		return nil, true, nil
	}
	s.drawn = true
	return s.body, false, nil
}

var (
	_ cachestore.CacheStore = (*Guard)(nil)
	_ cachestore.ReadStream = (*bufferedReadStream)(nil)
)
