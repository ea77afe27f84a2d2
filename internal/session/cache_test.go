package session

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	c, err := NewRedisCache(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	st := FromDTO(baseGame())

	if err := c.Save(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(stateKey("42")); ttl != DefaultCacheTTL {
		t.Fatalf("ttl=%v", ttl)
	}

	got, err := c.Load(ctx, "42")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.White.Username != "alice" || got.Remaining.White != st.Remaining.White {
		t.Fatalf("loaded=%+v", got)
	}

	missing, err := c.Load(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing should be nil,nil got %v %v", missing, err)
	}

	ids, err := c.Recent(ctx, "1", 10)
	if err != nil || len(ids) != 1 || ids[0] != "42" {
		t.Fatalf("recent=%v err=%v", ids, err)
	}

	if err := c.Forget(ctx, "42"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if got, _ := c.Load(ctx, "42"); got != nil {
		t.Fatalf("forgotten state still present")
	}
}

func TestRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache(""); err == nil {
		t.Fatalf("empty url must fail")
	}
	if _, err := NewRedisCache("http://localhost:6379"); err == nil {
		t.Fatalf("bad scheme must fail")
	}
}

func TestMemoryCacheRecentOrder(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	a := FromDTO(baseGame())
	b := FromDTO(baseGame())
	b.ID = "43"
	_ = c.Save(ctx, a)
	_ = c.Save(ctx, b)
	_ = c.Save(ctx, a)
	ids, _ := c.Recent(ctx, "2", 0)
	if len(ids) != 2 || ids[0] != "42" || ids[1] != "43" {
		t.Fatalf("recent=%v", ids)
	}

	got, _ := c.Load(ctx, "43")
	got.Moves = append(got.Moves, Move{Ply: 1})
	again, _ := c.Load(ctx, "43")
	if len(again.Moves) != 0 {
		t.Fatalf("memory cache leaked a mutable reference")
	}
}
