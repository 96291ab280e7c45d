package db_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/anony/internal/db"
	"github.com/wuwenbin0122/anony/internal/utils"
)

func exerciseKV(t *testing.T, kv db.KV) {
	t.Helper()
	ctx := context.Background()
	key := uuid.NewString()

	if _, err := kv.Get(ctx, key); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh key, got %v", err)
	}

	if err := kv.Put(ctx, key, []byte(`[{"role":"user","content":"hi"}]`), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	value, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(string(value), `"hi"`) {
		t.Fatalf("unexpected value %s", value)
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := kv.Get(ctx, key); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	store, err := db.NewRedis(context.Background(), utils.RedisConfig{Addr: addr, KeyPrefix: "anony_test:"})
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	defer store.Close(context.Background())

	exerciseKV(t, store)
}

func TestMongoKV(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	cfg := utils.MongoConfig{
		URI:            uri,
		Database:       "anony_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		ConnectTimeout: 5 * time.Second,
	}

	store, err := db.NewMongo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	}()

	if err := store.EnsureCollections(context.Background()); err != nil {
		t.Fatalf("ensure collections failed: %v", err)
	}

	exerciseKV(t, store)
}

func TestPostgresKV(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	store, err := db.NewPostgres(context.Background(), utils.PostgresConfig{DSN: dsn, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}

	exerciseKV(t, store)

	ctx := context.Background()
	key := uuid.NewString()
	if err := store.Put(ctx, key, []byte("x"), -time.Second); err != nil {
		t.Fatalf("put expired: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected expired row hidden, got %v", err)
	}
	if _, err := store.PurgeExpired(ctx); err != nil {
		t.Fatalf("purge expired: %v", err)
	}
}
