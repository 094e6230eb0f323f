package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopledger/coopledger/internal/shared"
)

const timelineSelect = `SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::bigint IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC`

// PGRepository reads the audit trail from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window returns q.Limit rows starting at q.Offset.
func (r *PGRepository) Window(ctx context.Context, q Query) ([]TimelineRow, error) {
	args := append(filterArgs(q), q.Limit, q.Offset)
	rows, err := r.pool.Query(ctx, timelineSelect+` LIMIT $7 OFFSET $8`, args...)
	if err != nil {
		return nil, shared.Store("audit: timeline", err)
	}
	return collect(rows)
}

// All returns every matching row.
func (r *PGRepository) All(ctx context.Context, q Query) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineSelect, filterArgs(q)...)
	if err != nil {
		return nil, shared.Store("audit: export", err)
	}
	return collect(rows)
}

func filterArgs(q Query) []any {
	return []any{
		optionalTime(q.FromAt),
		optionalTime(q.ToBefore),
		optionalInt(q.ActorID),
		optionalText(q.Entity),
		optionalText(q.EntityID),
		optionalText(q.Action),
	}
}

func collect(rows pgx.Rows) ([]TimelineRow, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			tr   TimelineRow
			meta []byte
		)
		if err := row.Scan(&tr.At, &tr.ActorID, &tr.Action, &tr.Entity, &tr.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 && string(meta) != "null" {
			tr.Meta = meta
		}
		return tr, nil
	})
	if err != nil {
		return nil, shared.Store("audit: scan", err)
	}
	return out, nil
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalInt(v int64) pgtype.Int8 {
	if v <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
