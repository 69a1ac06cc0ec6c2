package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TestRedisStore runs against a live server and is skipped unless
// REDIS_TEST_ADDR is set. Each subtest writes under its own key prefix.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	runStoreSuite(t, func(t *testing.T) credentialStore {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			t.Fatalf("ping redis: %v", err)
		}

		prefix := "authserver-test-" + uuid.NewString()
		t.Cleanup(func() {
			ctx := context.Background()
			iter := client.Scan(ctx, 0, prefix+":*", 100).Iterator()
			for iter.Next(ctx) {
				_ = client.Del(ctx, iter.Val()).Err()
			}
			_ = client.Close()
		})
		return NewRedisStore(client, prefix)
	})
}
