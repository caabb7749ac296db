// Package tee provides a write-through cache tee: a stream transformer
// that forwards each response chunk both downstream to the client and into
// a cache write-stream, with the two sinks independently fallible.
package tee

import (
	"io"
	"log"

	"github.com/jonwraymond/cachingpolicy/cachestore"
)

// WriteStream forwards chunks to a downstream writer and, best-effort, to
// a cache write-stream. A downstream write failure is surfaced to the
// caller and abandons the cache write; a cache write failure is logged and
// dropped silently, leaving the downstream delivery unaffected and the
// entry uncommitted.
type WriteStream struct {
	downstream io.Writer
	cacheSink  cachestore.WriteStream
	head       cachestore.Head
	cacheDead  bool
}

// NewWriteStream captures head once (the same object later passed as the
// cache entry's head) and returns a tee over downstream and cacheSink.
// cacheSink may be nil, in which case the tee degrades to a pure pass
// through.
func NewWriteStream(downstream io.Writer, cacheSink cachestore.WriteStream, head cachestore.Head) *WriteStream {
	return &WriteStream{downstream: downstream, cacheSink: cacheSink, head: head}
}

// Head returns the response head captured at construction.
func (w *WriteStream) Head() cachestore.Head {
	return w.head
}

// Write sends chunk to the downstream writer and, if still alive, to the
// cache sink. The cache write is attempted before the downstream write
// returns, so the two are offered to both sinks for the same chunk before
// the next chunk is considered - ordering required so a tee installed
// mid-stream never loses cache bytes relative to what the client saw.
func (w *WriteStream) Write(chunk []byte) (int, error) {
	if w.cacheSink != nil && !w.cacheDead {
		if err := w.cacheSink.Write(chunk); err != nil {
			log.Printf("tee: cache write failed, dropping cache entry: %v", err)
			_ = w.cacheSink.Abort()
			w.cacheDead = true
		}
	}

	n, err := w.downstream.Write(chunk)
	if err != nil {
		if w.cacheSink != nil && !w.cacheDead {
			_ = w.cacheSink.Abort()
			w.cacheDead = true
		}
		return n, err
	}
	return n, nil
}

// End commits the cache sink, unless it was already abandoned, and is
// invoked after the last chunk has been offered to both sinks. It does not
// signal the downstream writer: an io.Writer has no end-of-stream call, and
// End neither closes nor otherwise touches it.
func (w *WriteStream) End() error {
	if w.cacheSink != nil && !w.cacheDead {
		if err := w.cacheSink.End(); err != nil {
			log.Printf("tee: cache commit failed, dropping cache entry: %v", err)
		}
	}
	return nil
}

var _ io.Writer = (*WriteStream)(nil)
