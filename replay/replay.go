// Package replay implements a synthetic upstream connector that replays a
// cached read-stream instead of opening a network connection.
package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/cachingpolicy/cachestore"
	"github.com/jonwraymond/cachingpolicy/gatewayctx"
)

// ErrReplayFailed wraps an error from the underlying cached stream
// encountered while replaying it as a synthetic upstream response.
var ErrReplayFailed = errors.New("replay: cached stream errored during replay")

// Interceptor is a gatewayctx.ConnectorInterceptor that plays back a single
// cache entry. It opens no network connections and produces exactly one
// response per Intercept call.
type Interceptor struct {
	stream cachestore.ReadStream
}

// NewInterceptor wraps stream as a replay connector.
func NewInterceptor(stream cachestore.ReadStream) *Interceptor {
	return &Interceptor{stream: stream}
}

// Intercept emits the cached head synchronously and pumps body chunks in
// arrival order on the returned channel until the stream ends. Any error
// from the underlying read-stream is forwarded as an upstream transport
// error on the final chunk.
func (r *Interceptor) Intercept(ctx context.Context) (gatewayctx.ResponseHead, <-chan gatewayctx.Chunk, error) {
	head := r.stream.Head()
	out := make(chan gatewayctx.Chunk)

	go func() {
		defer close(out)
		for {
			data, done, err := r.stream.Next(ctx)
			if err != nil {
				out <- gatewayctx.Chunk{Err: fmt.Errorf("%w: %v", ErrReplayFailed, err), Done: true}
				return
			}
			if done {
				out <- gatewayctx.Chunk{Done: true}
				return
			}
			select {
			case out <- gatewayctx.Chunk{Data: data}:
			case <-ctx.Done():
				out <- gatewayctx.Chunk{Err: ctx.Err(), Done: true}
				return
			}
		}
	}()

	return gatewayctx.ResponseHead{Status: head.Status, Headers: head.Headers}, out, nil
}

var _ gatewayctx.ConnectorInterceptor = (*Interceptor)(nil)
