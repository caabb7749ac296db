// Package cachingpolicy implements the two-phase response caching state
// machine: request-phase lookup with content-type-aware fallback, and
// response-phase streaming tee-to-cache.
package cachingpolicy

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonwraymond/cachingpolicy/acceptranker"
	"github.com/jonwraymond/cachingpolicy/cachestore"
	"github.com/jonwraymond/cachingpolicy/gatewayctx"
	"github.com/jonwraymond/cachingpolicy/keybuilder"
	"github.com/jonwraymond/cachingpolicy/observability"
	"github.com/jonwraymond/cachingpolicy/replay"
	"github.com/jonwraymond/cachingpolicy/tee"
)

// Context attribute names, process-unique to the policy chain.
const (
	AttrShouldCache    = "caching.should-cache"
	AttrCacheID        = "caching.cache-id"
	AttrCachedResponse = "caching.cached-response"
)

// Policy is one configured binding of the response caching policy. A single
// Policy is configured once (its Config is fixed at construction, matching
// how a gateway applies one policy binding per API) and then invoked once
// per request via OnRequest/OnResponse/ResponseDataHandler.
type Policy struct {
	store   cachestore.CacheStore
	cfg     Config
	logger  observability.Logger
	metrics observability.Metrics
	tracer  observability.Tracer
}

// Option configures optional collaborators of a Policy.
type Option func(*Policy)

// WithLogger attaches a structured logger. Default: a logger that discards
// everything.
func WithLogger(l observability.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithMetrics attaches a metrics recorder. Default: a no-op recorder.
func WithMetrics(m observability.Metrics) Option {
	return func(p *Policy) { p.metrics = m }
}

// WithTracer attaches a tracer. Default: a no-op tracer.
func WithTracer(t observability.Tracer) Option {
	return func(p *Policy) { p.tracer = t }
}

// New creates a Policy bound to store and cfg.
func New(store cachestore.CacheStore, cfg Config, opts ...Option) *Policy {
	p := &Policy{
		store:   store,
		cfg:     cfg,
		logger:  observability.NewNoopLogger(),
		metrics: observability.NewNoopMetrics(),
		tracer:  observability.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnRequest implements the ENTER_REQUEST state diagram: ttl=0 disables
// caching outright; otherwise a content-typed lookup is attempted first
// (when Accept is present), falling back to the default key on miss. A hit
// at either key installs a replay interceptor and resumes the chain without
// ever reaching should-cache=true; a total miss resumes the chain with
// should-cache=true so the response phase knows to write through.
func (p *Policy) OnRequest(ctx context.Context, gctx *gatewayctx.Context, chain gatewayctx.Chain, fp gatewayctx.RequestFingerprint) error {
	ctx, span := p.tracer.StartSpan(ctx, observability.DecisionMeta{Phase: "request"})
	var spanErr error
	defer func() { p.tracer.EndSpan(span, spanErr) }()

	if p.cfg.TTL <= 0 {
		gctx.SetAttribute(AttrShouldCache, false)
		return chain.DoApplyRequest(ctx, fp)
	}

	if p.store == nil {
		p.logger.Warn(ctx, "no cache store configured, skipping cache lookup")
		gctx.SetAttribute(AttrShouldCache, false)
		return chain.DoApplyRequest(ctx, fp)
	}

	key := keybuilder.Build(fp, p.cfg.IncludeQueryInKey)
	gctx.SetAttribute(AttrCacheID, key)

	if accept, ok := fp.Headers.Get("Accept"); ok && strings.TrimSpace(accept) != "" {
		if mt, ok := acceptranker.Highest(accept); ok {
			suffixedKey := key + keybuilder.ContentTypeSuffix(mt.String())
			hit, err := p.lookup(ctx, suffixedKey)
			if err != nil {
				spanErr = err
				gctx.ThrowError(err)
				return err
			}
			if hit != nil {
				p.installReplay(gctx, suffixedKey, hit)
				return chain.DoApplyRequest(ctx, fp)
			}
		}
	}

	hit, err := p.lookup(ctx, key)
	if err != nil {
		spanErr = err
		gctx.ThrowError(err)
		return err
	}
	if hit != nil {
		p.installReplay(gctx, key, hit)
		return chain.DoApplyRequest(ctx, fp)
	}

	gctx.SetAttribute(AttrShouldCache, true)
	return chain.DoApplyRequest(ctx, fp)
}

// lookup performs one cache-store read, recording it on the metrics/logger
// collaborators. A (nil, nil) result is a clean miss.
func (p *Policy) lookup(ctx context.Context, key string) (cachestore.ReadStream, error) {
	stream, err := p.store.GetBinary(ctx, key)
	if err != nil {
		p.metrics.RecordLookup(ctx, key, false, err)
		p.logger.Error(ctx, "cache lookup failed",
			observability.Field{Key: "error", Value: err.Error()},
			observability.Field{Key: "cache.id", Value: key},
		)
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	p.metrics.RecordLookup(ctx, key, stream != nil, nil)
	return stream, nil
}

// installReplay sets a replay connector over the cached stream, copies the
// cached head into cached-response, and disqualifies this request from
// being re-cached - matching INSTALL_REPLAY in the state diagram.
func (p *Policy) installReplay(gctx *gatewayctx.Context, key string, stream cachestore.ReadStream) {
	head := stream.Head()
	gctx.SetAttribute(AttrCacheID, key)
	gctx.SetAttribute(AttrCachedResponse, gatewayctx.ResponseHead{Status: head.Status, Headers: head.Headers})
	gctx.SetAttribute(AttrShouldCache, false)
	gctx.SetConnectorInterceptor(replay.NewInterceptor(stream))
}

// OnResponse implements the ENTER_RESPONSE state diagram: a non-cacheable
// request (should-cache already false) passes straight through; a non-200
// status disqualifies caching; a 200 with a present Content-Type appends
// the content-type suffix to the working cache-id so the eventual write
// lands at the content-negotiated key.
func (p *Policy) OnResponse(ctx context.Context, gctx *gatewayctx.Context, chain gatewayctx.Chain, resp gatewayctx.ResponseHead) error {
	ctx, span := p.tracer.StartSpan(ctx, observability.DecisionMeta{Phase: "response"})
	defer func() { p.tracer.EndSpan(span, nil) }()

	shouldCache, _ := gctx.GetAttribute(AttrShouldCache, false).(bool)
	if !shouldCache {
		return chain.DoApplyResponse(ctx, resp)
	}

	if resp.Status != 200 {
		gctx.SetAttribute(AttrShouldCache, false)
		return chain.DoApplyResponse(ctx, resp)
	}

	if resp.Headers != nil {
		if ct, ok := resp.Headers.Get("Content-Type"); ok && strings.TrimSpace(ct) != "" {
			cacheID, _ := gctx.GetAttribute(AttrCacheID, "").(string)
			gctx.SetAttribute(AttrCacheID, cacheID+keybuilder.ContentTypeSuffix(ct))
		}
	}

	return chain.DoApplyResponse(ctx, resp)
}

// ResponseDataHandler installs a tee.WriteStream over downstream when this
// request is writing through to the cache, otherwise returns downstream
// unchanged. A missing cache-id (defensive - OnRequest sets it whenever it
// sets should-cache to true) or a missing store degrades to
// pass-through rather than failing the response.
func (p *Policy) ResponseDataHandler(ctx context.Context, gctx *gatewayctx.Context, resp gatewayctx.ResponseHead, downstream io.Writer) (io.Writer, error) {
	shouldCache, _ := gctx.GetAttribute(AttrShouldCache, false).(bool)
	if !shouldCache {
		return downstream, nil
	}

	cacheID, _ := gctx.GetAttribute(AttrCacheID, "").(string)
	if cacheID == "" {
		p.logger.Warn(ctx, "should-cache is true but no cache-id is set, skipping write-through")
		return downstream, nil
	}

	if p.store == nil {
		p.logger.Warn(ctx, "no cache store configured, skipping write-through")
		return downstream, nil
	}

	head := cachestore.Head{Status: resp.Status, Headers: resp.Headers}
	cacheSink, err := p.store.PutBinary(ctx, cacheID, head, time.Duration(p.cfg.TTL)*time.Second)
	if err != nil {
		p.logger.Warn(ctx, "failed to open cache write-stream, skipping write-through",
			observability.Field{Key: "error", Value: err.Error()},
			observability.Field{Key: "cache.id", Value: cacheID},
		)
		return downstream, nil
	}

	return tee.NewWriteStream(downstream, cacheSink, head), nil
}

// RequestDataHandler is a no-op: the policy never inspects or transforms
// the request body.
func (p *Policy) RequestDataHandler(ctx context.Context, gctx *gatewayctx.Context) io.Writer {
	return nil
}
