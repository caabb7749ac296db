package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/jonwraymond/cachingpolicy/cachestore"
)

func TestStore_MissOnEmpty(t *testing.T) {
	s := New()
	rs, err := s.GetBinary(context.Background(), "nope")
	if err != nil || rs != nil {
		t.Errorf("GetBinary(miss) = (%v, %v), want (nil, nil)", rs, err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	head := cachestore.Head{Status: 200}
	ws, err := s.PutBinary(ctx, "k", head, time.Minute)
	if err != nil {
		t.Fatalf("PutBinary() error = %v", err)
	}
	if err := ws.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := ws.Write([]byte("world")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := ws.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	rs, err := s.GetBinary(ctx, "k")
	if err != nil || rs == nil {
		t.Fatalf("GetBinary() = (%v, %v), want hit", rs, err)
	}
	if rs.Head().Status != 200 {
		t.Errorf("Head().Status = %d, want 200", rs.Head().Status)
	}

	chunk, done, err := rs.Next(ctx)
	if err != nil || done || string(chunk) != "hello world" {
		t.Errorf("Next() = (%q, %v, %v), want (\"hello world\", false, nil)", chunk, done, err)
	}

	_, done, err = rs.Next(ctx)
	if err != nil || !done {
		t.Errorf("second Next() = (_, %v, %v), want done=true", done, err)
	}
}

func TestStore_TTLZeroNeverCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, _ := s.PutBinary(ctx, "k", cachestore.Head{Status: 200}, 0)
	ws.Write([]byte("data"))
	ws.End()

	rs, err := s.GetBinary(ctx, "k")
	if err != nil || rs != nil {
		t.Errorf("GetBinary() after ttl=0 put = (%v, %v), want miss", rs, err)
	}
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, _ := s.PutBinary(ctx, "k", cachestore.Head{Status: 200}, 10*time.Millisecond)
	ws.Write([]byte("data"))
	ws.End()

	time.Sleep(30 * time.Millisecond)

	rs, err := s.GetBinary(ctx, "k")
	if err != nil || rs != nil {
		t.Errorf("GetBinary() after expiry = (%v, %v), want miss", rs, err)
	}
}

func TestStore_AbortedWriteNeverCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, _ := s.PutBinary(ctx, "k", cachestore.Head{Status: 200}, time.Minute)
	ws.Write([]byte("data"))
	if err := ws.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}

	rs, err := s.GetBinary(ctx, "k")
	if err != nil || rs != nil {
		t.Errorf("GetBinary() after abort = (%v, %v), want miss", rs, err)
	}
}

func TestStore_WriteAfterEndFails(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, _ := s.PutBinary(ctx, "k", cachestore.Head{Status: 200}, time.Minute)
	ws.End()
	if err := ws.Write([]byte("too late")); err != cachestore.ErrClosed {
		t.Errorf("Write() after End() = %v, want ErrClosed", err)
	}
}

func TestStore_DistinctKeysIndependent(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws1, _ := s.PutBinary(ctx, "a", cachestore.Head{Status: 200}, time.Minute)
	ws1.Write([]byte("A"))
	ws1.End()

	ws2, _ := s.PutBinary(ctx, "b", cachestore.Head{Status: 200}, time.Minute)
	ws2.Write([]byte("B"))
	ws2.End()

	ra, _ := s.GetBinary(ctx, "a")
	chunkA, _, _ := ra.Next(ctx)
	rb, _ := s.GetBinary(ctx, "b")
	chunkB, _, _ := rb.Next(ctx)

	if string(chunkA) != "A" || string(chunkB) != "B" {
		t.Errorf("got (%q, %q), want (A, B)", chunkA, chunkB)
	}
}
