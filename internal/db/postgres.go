package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wuwenbin0122/anony/internal/utils"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg utils.PostgresConfig) (*Postgres, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close(context.Context) error {
	if p == nil || p.Pool == nil {
		return nil
	}
	p.Pool.Close()
	return nil
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	statements := []string{
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS conversation_history (",
			"    session_id TEXT PRIMARY KEY,",
			"    payload BYTEA NOT NULL,",
			"    expires_at TIMESTAMPTZ NOT NULL",
			")",
		}, "\n"),
		"CREATE INDEX IF NOT EXISTS conversation_history_expires_at_idx ON conversation_history (expires_at)",
	}

	for _, stmt := range statements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}

	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT payload FROM conversation_history WHERE session_id = $1 AND expires_at > NOW()`

	var payload []byte
	if err := p.Pool.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: query history: %w", err)
	}

	return payload, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `INSERT INTO conversation_history (session_id, payload, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at`

	if _, err := p.Pool.Exec(ctx, query, key, value, time.Now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("postgres: upsert history: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.Pool.Exec(ctx, `DELETE FROM conversation_history WHERE session_id = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete history: %w", err)
	}
	return nil
}

// PurgeExpired removes rows past their expiry and reports how many went.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM conversation_history WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
