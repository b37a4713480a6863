package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const windowQuery = `
SELECT occurred_at, actor_id, action, entity, entity_id, correlation_id::text, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::bigint IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT $8`

// Window returns one page of rows, newest first.
func (r *PGRepository) Window(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	f := params.Filters
	to := f.To
	if !to.IsZero() {
		// The upper bound is an inclusive calendar day.
		to = to.AddDate(0, 0, 1)
	}
	rows, err := r.pool.Query(ctx, windowQuery,
		toPgTime(f.From), toPgTime(to), optionalInt(f.ActorID),
		optionalText(f.Entity), optionalText(f.EntityID), optionalText(f.Action),
		params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var (
			row   TimelineRow
			at    pgtype.Timestamptz
			actor pgtype.Int8
			meta  []byte
		)
		if err := rows.Scan(&at, &actor, &row.Action, &row.Entity, &row.EntityID, &row.CorrelationID, &meta); err != nil {
			return nil, err
		}
		if at.Valid {
			row.At = at.Time
		}
		if actor.Valid {
			row.ActorID = actor.Int64
		}
		row.Meta = meta
		out = append(out, row)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
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
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
