package feedcache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when Redis is
// not available locally.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
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

func TestMemoryStore_GetSetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}

	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get(ctx, "key"); err != ErrNotFound {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	redisClient := setupTestRedis(t)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}

	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get(ctx, "key"); err != ErrNotFound {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestCache_WithRedisStore(t *testing.T) {
	redisClient := setupTestRedis(t)
	cache := New(NewRedisStore(redisClient))
	ctx := context.Background()

	cache.Set(ctx, "https://gw.example/api/feed?path=/x", []byte(`{"data": 1}`))

	got, ok := cache.Get(ctx, "https://gw.example/api/feed?path=/x", time.Minute)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != `{"data": 1}` {
		t.Errorf("payload = %s, want %s", got, `{"data": 1}`)
	}
}
