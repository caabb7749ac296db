// Package memstore is an in-process implementation of cachestore.CacheStore
// backed by a mutex-guarded map, with lazy expiry checked on read and TTL
// fixed at write time - the same shape as a typical in-memory response
// cache, generalized to the streaming get/put contract.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/cachingpolicy/cachestore"
)

// Store is an in-process cachestore.CacheStore. The zero value is not
// usable; construct with New.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	head      cachestore.Head
	body      []byte
	expiresAt time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// GetBinary returns a read stream for key, or (nil, nil) on a clean miss
// (including on lazy expiry).
func (s *Store) GetBinary(_ context.Context, key string) (cachestore.ReadStream, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}

	return &readStream{head: e.head, body: e.body}, nil
}

// PutBinary acquires a write handle for key. If ttl is zero or negative
// the returned stream discards everything written to it - matching the
// policy's own contract that ttl=0 disables caching - rather than storing
// an entry with no expiry.
func (s *Store) PutBinary(_ context.Context, key string, head cachestore.Head, ttl time.Duration) (cachestore.WriteStream, error) {
	return &writeStream{store: s, key: key, head: head, ttl: ttl}, nil
}

// readStream is a single-shot, whole-body read over a stored entry.
type readStream struct {
	head  cachestore.Head
	body  []byte
	drawn bool
}

func (r *readStream) Head() cachestore.Head { return r.head }

func (r *readStream) Next(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, true, err
	}
	if r.drawn {
		return nil, true, nil
	}
	r.drawn = true
	if len(r.body) == 0 {
		return nil, true, nil
	}
	return r.body, false, nil
}

// writeStream buffers chunks until End commits them to the store, or
// Abort (or an unended writer left behind by a cancelled request) discards
// them.
type writeStream struct {
	mu      sync.Mutex
	store   *Store
	key     string
	head    cachestore.Head
	ttl     time.Duration
	buf     []byte
	ended   bool
	aborted bool
}

func (w *writeStream) Write(chunk []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended || w.aborted {
		return cachestore.ErrClosed
	}
	w.buf = append(w.buf, chunk...)
	return nil
}

func (w *writeStream) End() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended || w.aborted {
		return nil
	}
	w.ended = true

	if w.ttl <= 0 {
		return nil
	}

	e := &entry{
		head:      w.head,
		body:      w.buf,
		expiresAt: time.Now().Add(w.ttl),
	}
	w.store.mu.Lock()
	w.store.entries[w.key] = e
	w.store.mu.Unlock()
	return nil
}

func (w *writeStream) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aborted = true
	w.buf = nil
	return nil
}

var _ cachestore.CacheStore = (*Store)(nil)
