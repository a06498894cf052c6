package store_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ignite-service/internal/model"
	"ignite-service/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDBStore(t *testing.T) (*gorm.DB, *store.DBStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		t.Fatalf("failed to migrate kv entries: %v", err)
	}
	return db, store.NewDBStore(db)
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *store.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, store.NewRedisStore(rdb)
}

func backends(t *testing.T) map[string]store.Store {
	_, dbStore := newDBStore(t)
	_, redisStore := newRedisStore(t)
	return map[string]store.Store{"db": dbStore, "redis": redisStore}
}

func TestGetMissingKey(t *testing.T) {
	for name, s := range backends(t) {
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		if err := s.Set(ctx, "k", []byte("one"), 0); err != nil {
			t.Fatalf("%s: set failed: %v", name, err)
		}
		if err := s.Set(ctx, "k", []byte("two"), time.Hour); err != nil {
			t.Fatalf("%s: overwrite failed: %v", name, err)
		}
		got, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("%s: get failed: %v", name, err)
		}
		if string(got) != "two" {
			t.Fatalf("%s: expected two, got %q", name, got)
		}
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		ok, err := s.SetNX(ctx, "lock", []byte("a"), time.Minute)
		if err != nil || !ok {
			t.Fatalf("%s: first SetNX should win, ok=%v err=%v", name, ok, err)
		}
		ok, err = s.SetNX(ctx, "lock", []byte("b"), time.Minute)
		if err != nil {
			t.Fatalf("%s: second SetNX failed: %v", name, err)
		}
		if ok {
			t.Fatalf("%s: second SetNX should lose", name)
		}
		got, _ := s.Get(ctx, "lock")
		if string(got) != "a" {
			t.Fatalf("%s: expected original value, got %q", name, got)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		_ = s.Set(ctx, "gone", []byte("x"), 0)
		if err := s.Delete(ctx, "gone"); err != nil {
			t.Fatalf("%s: delete failed: %v", name, err)
		}
		if _, err := s.Get(ctx, "gone"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound after delete, got %v", name, err)
		}
	}
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisStore(t)

	if err := s.Set(ctx, "ttl", []byte("x"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := s.Get(ctx, "ttl"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
	ok, err := s.SetNX(ctx, "ttl", []byte("y"), time.Second)
	if err != nil || !ok {
		t.Fatalf("expected SetNX to win after expiry, ok=%v err=%v", ok, err)
	}
}

func TestDBExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	db, s := newDBStore(t)

	if err := s.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected expired row to be hidden, got %v", err)
	}

	ok, err := s.SetNX(ctx, "short", []byte("z"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected SetNX to replace expired row, ok=%v err=%v", ok, err)
	}
	got, _ := s.Get(ctx, "short")
	if string(got) != "z" {
		t.Fatalf("expected replacement value, got %q", got)
	}

	if err := s.Set(ctx, "stale", []byte("s"), time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	removed, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged row, got %d", removed)
	}
	var count int64
	db.Model(&model.KVEntry{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 remaining rows, got %d", count)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	_, s := newRedisStore(t)

	type doc struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	ok, err := store.SetNXJSON(ctx, s, "doc", doc{ID: "a", Count: 1}, 0)
	if err != nil || !ok {
		t.Fatalf("SetNXJSON failed: ok=%v err=%v", ok, err)
	}
	if err := store.SetJSON(ctx, s, "doc", doc{ID: "a", Count: 2}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	var out doc
	if err := store.GetJSON(ctx, s, "doc", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("expected count 2, got %d", out.Count)
	}
}
