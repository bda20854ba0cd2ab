package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Unit tests skip when no local
// Redis is available; the testcontainers-backed integration tests in
// tests/integration cover the real backend.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisCache_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisCache should panic with nil redis client")
		}
	}()
	NewRedisCache(nil)
}

func TestRedisCache_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	shared := NewRedisCache(client)
	ctx := context.Background()

	key := Key{Path: "/work/detail", Params: map[string]string{"id": "VJ012345"}}.String()
	entry := &Entry{
		Body:       []byte(`{"id": "VJ012345"}`),
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		FetchedAt:  time.Now(),
		Expires:    time.Now().Add(5 * time.Minute),
	}

	if err := shared.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := shared.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Body) != string(entry.Body) {
		t.Errorf("Body = %s, want %s", got.Body, entry.Body)
	}
	if got.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, entry.StatusCode)
	}
}

func TestRedisCache_GetMiss(t *testing.T) {
	client := setupTestRedis(t)
	shared := NewRedisCache(client)

	_, err := shared.Get(context.Background(), "catalog:absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_ExpiredEntryNotStored(t *testing.T) {
	client := setupTestRedis(t)
	shared := NewRedisCache(client)
	ctx := context.Background()

	entry := &Entry{
		Body:    []byte("stale"),
		Expires: time.Now().Add(-time.Minute),
	}

	if err := shared.Set(ctx, "catalog:stale", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := shared.Get(ctx, "catalog:stale"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss for expired entry", err)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	client := setupTestRedis(t)
	shared := NewRedisCache(client)
	ctx := context.Background()

	entry := &Entry{
		Body:    []byte("data"),
		Expires: time.Now().Add(time.Minute),
	}
	if err := shared.Set(ctx, "catalog:del", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := shared.Delete(ctx, "catalog:del"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := shared.Get(ctx, "catalog:del"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete() error = %v, want ErrCacheMiss", err)
	}
}
