package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/dbx"
	"github.com/MrEthical07/authcore/kvstore"
)

// KV implements kvstore.Store over kv_entries.
type KV struct {
	db  dbx.DBTX
	now func() time.Time
}

var _ kvstore.Store = (*KV)(nil)

func NewKV(db dbx.DBTX) *KV {
	return &KV{db: db, now: time.Now}
}

// WithClock sets the time source used for expiry and returns k.
func (k *KV) WithClock(now func() time.Time) *KV {
	k.now = now
	return k
}

// Backend names the store in Engine.SecurityReport.
func (k *KV) Backend() string { return "postgres" }

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := k.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, k.now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	return k.scan(k.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1 AND expires_at > $2`, key, k.now().UTC()))
}

// GetAndDelete removes the row in the same statement that reads it, so two
// callers can never both receive the value.
func (k *KV) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	return k.scan(k.db.QueryRowContext(ctx,
		`DELETE FROM kv_entries WHERE key = $1 AND expires_at > $2 RETURNING value`, key, k.now().UTC()))
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	return nil
}

func (k *KV) scan(row *sql.Row) ([]byte, error) {
	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kvstore.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	return value, nil
}
