package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss on empty store")
	}
	payload := []byte("posts")
	if err := store.Set(ctx, "k", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload[0] = 'X'
	data, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(data) != "posts" {
		t.Fatalf("expected stored copy, got %q %v %v", data, ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	_ = store.Set(ctx, "a", []byte("1"))
	_ = store.Set(ctx, "b", []byte("2"))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		if _, ok, _ := store.Get(ctx, key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(20 * time.Second)
	store.now = func() time.Time { return now }

	_ = store.Set(ctx, "k", []byte("v"))
	now = now.Add(19 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before ttl")
	}
	now = now.Add(time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss at ttl")
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "timeline", 20*time.Second)
	if _, ok, err := store.Get(ctx, IndexKey); ok || err != nil {
		t.Fatalf("expected clean miss, got %v %v", ok, err)
	}

	if err := store.Set(ctx, IndexKey, []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !srv.Exists("timeline:index_page") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := srv.TTL("timeline:index_page"); ttl != 20*time.Second {
		t.Fatalf("expected ttl, got %v", ttl)
	}
	data, ok, err := store.Get(ctx, IndexKey)
	if err != nil || !ok || string(data) != "v1" {
		t.Fatalf("expected hit, got %q %v %v", data, ok, err)
	}

	if err := store.Delete(ctx, IndexKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if srv.Exists("timeline:index_page") {
		t.Fatalf("expected key deleted")
	}
}

func TestRedisStoreClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	_ = srv.Set("sessions:abc", "keep")
	store := NewRedisStore(client, "timeline", 0)
	_ = store.Set(ctx, "a", []byte("1"))
	_ = store.Set(ctx, "b", []byte("2"))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if srv.Exists("timeline:a") || srv.Exists("timeline:b") {
		t.Fatalf("expected timeline keys removed")
	}
	if !srv.Exists("sessions:abc") {
		t.Fatalf("expected unrelated key kept")
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear on empty prefix: %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "timeline", 20*time.Second)
	_ = store.Set(ctx, IndexKey, []byte("v"))
	srv.FastForward(21 * time.Second)
	if _, ok, _ := store.Get(ctx, IndexKey); ok {
		t.Fatalf("expected key expired")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	srv.Close()

	store := NewRedisStore(client, "timeline", 0)
	if _, _, err := store.Get(ctx, IndexKey); err == nil {
		t.Fatalf("expected get error")
	}
	if err := store.Set(ctx, IndexKey, []byte("v")); err == nil {
		t.Fatalf("expected set error")
	}
	if err := store.Clear(ctx); err == nil {
		t.Fatalf("expected clear error")
	}
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	var store NoopStore
	_ = store.Set(ctx, "k", []byte("v"))
	if _, ok, err := store.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected noop miss")
	}
	if store.Delete(ctx, "k") != nil || store.Clear(ctx) != nil {
		t.Fatalf("expected noop success")
	}
}

func TestRedisStoreSetIfGeneration(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "timeline", 0)
	gen, err := store.Generation(ctx)
	if err != nil || gen != 0 {
		t.Fatalf("expected initial generation 0, got %d %v", gen, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err := store.SetIfGeneration(ctx, IndexKey, []byte("old"), gen)
	if err != nil || stored {
		t.Fatalf("expected stale write dropped, got %v %v", stored, err)
	}
	if srv.Exists("timeline:" + IndexKey) {
		t.Fatalf("expected no key after stale write")
	}
	if !srv.Exists("timeline#gen") {
		t.Fatalf("expected generation key kept by clear")
	}

	gen, _ = store.Generation(ctx)
	stored, err = store.SetIfGeneration(ctx, IndexKey, []byte("new"), gen)
	if err != nil || !stored {
		t.Fatalf("expected current write stored, got %v %v", stored, err)
	}
	if data, ok, _ := store.Get(ctx, IndexKey); !ok || string(data) != "new" {
		t.Fatalf("expected new payload, got %q", data)
	}

	if err := store.Delete(ctx, IndexKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if next, _ := store.Generation(ctx); next != gen+1 {
		t.Fatalf("expected delete to bump generation, got %d", next)
	}
}
