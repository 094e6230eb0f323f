package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyInFlight indicates the key was claimed by a request that has
// not finished yet.
var ErrIdempotencyInFlight = errors.New("idempotent request still in progress")

// IdempotencyStore remembers which resource a client supplied key produced so
// a retried form submission does not create a second invoice.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Claim reserves key for scope. When the key was already used and completed
// it returns the resource id created by the first request and claimed=false.
func (s *IdempotencyStore) Claim(ctx context.Context, key uuid.UUID, scope string) (resourceID int64, claimed bool, err error) {
	if s == nil || s.pool == nil {
		return 0, false, errors.New("idempotency store not initialised")
	}
	if key == uuid.Nil {
		return 0, false, Validation("idempotency_key", "must be a non-nil uuid")
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, scope, created_at) VALUES ($1, $2, $3)`, key, scope, time.Now())
	if err == nil {
		return 0, true, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return 0, false, Store("idempotency: claim", err)
	}
	var existing *int64
	err = s.pool.QueryRow(ctx, `SELECT resource_id FROM idempotency_keys WHERE key = $1 AND scope = $2`, key, scope).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrConflict
	}
	if err != nil {
		return 0, false, Store("idempotency: lookup", err)
	}
	if existing == nil {
		return 0, false, ErrIdempotencyInFlight
	}
	return *existing, false, nil
}

// Complete binds the produced resource to the key.
func (s *IdempotencyStore) Complete(ctx context.Context, key uuid.UUID, resourceID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE idempotency_keys SET resource_id = $2 WHERE key = $1`, key, resourceID)
	return Store("idempotency: complete", err)
}

// Release drops a claim after the guarded operation failed.
func (s *IdempotencyStore) Release(ctx context.Context, key uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND resource_id IS NULL`, key)
	return Store("idempotency: release", err)
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().Add(-olderThan))
	return Store("idempotency: cleanup", err)
}
