// Package db holds the key-value backends that persist serialized
// conversation history under a session key with a time-to-live.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wuwenbin0122/anony/internal/utils"
)

var (
	ErrNotFound      = errors.New("db: key not found")
	ErrUnknownDriver = errors.New("db: unknown store driver")
)

// KV is the storage capability the history store is built on. Put overwrites
// any prior value and the backend expires it after ttl. Delete of a missing
// key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// NewKV connects the backend named by cfg.Driver.
func NewKV(ctx context.Context, cfg utils.StoreConfig) (KV, error) {
	switch cfg.Driver {
	case utils.DriverMemory:
		return NewMemory(), nil
	case utils.DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	case utils.DriverMongo:
		store, err := NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollections(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	case utils.DriverPostgres:
		store, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
