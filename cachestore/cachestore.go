// Package cachestore defines the asynchronous, streaming binary store a
// caching policy reads and writes cache entries through. It is an external
// collaborator with no algorithm of its own - only a contract.
package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/cachingpolicy/internal/headers"
)

// ErrClosed is returned by a WriteStream's Write once the stream has been
// ended or aborted.
var ErrClosed = errors.New("cachestore: stream closed")

// Head is the response metadata stored alongside a cache entry's body.
type Head struct {
	Status  int
	Headers *headers.Map
}

// ReadStream is a lazy, finite, single-shot read over a stored entry. Head
// is available synchronously; Next yields body chunks in order, finally
// reporting done=true.
type ReadStream interface {
	Head() Head
	Next(ctx context.Context) (chunk []byte, done bool, err error)
}

// WriteStream is a single-shot, finite write handle returned by PutBinary.
// End commits the entry; Abort (or simply never calling End) discards it.
type WriteStream interface {
	Write(chunk []byte) error
	End() error
	Abort() error
}

// CacheStore is the async binary get/put contract a caching policy depends
// on. Implementations must be safe for concurrent use by many requests.
type CacheStore interface {
	// GetBinary looks up key. A (nil, nil) result means a clean miss; a
	// non-nil error means the lookup itself failed and must be surfaced as
	// a fatal chain error, never silently treated as a miss.
	GetBinary(ctx context.Context, key string) (ReadStream, error)

	// PutBinary acquires a write handle for key with the given head and
	// TTL. The TTL is fixed at the moment of this call; there is no
	// refresh-on-read.
	PutBinary(ctx context.Context, key string, head Head, ttl time.Duration) (WriteStream, error)
}
