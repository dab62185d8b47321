// internal/database/audit.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tilewire/mahjong/internal/audit"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id                UUID PRIMARY KEY,
    ts                TIMESTAMPTZ NOT NULL,
    table_id          UUID NOT NULL,
    actor_id          UUID,
    action            TEXT NOT NULL,
    payload           JSONB,
    state_hash_before TEXT NOT NULL DEFAULT '',
    state_hash_after  TEXT NOT NULL DEFAULT '',
    prev_hash         TEXT NOT NULL DEFAULT '',
    hash              TEXT NOT NULL,
    signature         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_table_ts ON audit_entries (table_id, ts);
CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries (action);
`

// AuditSink persists audit entries to Postgres. Appends are fire-and-forget
// from the chain's point of view; Query serves out-of-band audit tooling.
type AuditSink struct {
	pool *pgxpool.Pool
}

// NewAuditSink ensures the schema exists and returns the sink.
func NewAuditSink(ctx context.Context, pool *pgxpool.Pool) (*AuditSink, error) {
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &AuditSink{pool: pool}, nil
}

func (s *AuditSink) Append(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_entries
			(id, ts, table_id, actor_id, action, payload,
			 state_hash_before, state_hash_after, prev_hash, hash, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Timestamp, e.TableID, e.ActorID, e.Action, payload,
		e.StateHashBefore, e.StateHashAfter, e.PrevHash, e.Hash, e.Signature,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter in timestamp order.
func (s *AuditSink) Query(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT id, ts, table_id, actor_id, action, payload,
		       state_hash_before, state_hash_after, prev_hash, hash, signature
		FROM audit_entries WHERE 1=1`
	args := []any{}
	n := 0

	if f.TableID != nil {
		n++
		query += fmt.Sprintf(" AND table_id = $%d", n)
		args = append(args, *f.TableID)
	}
	if f.ActorID != nil {
		n++
		query += fmt.Sprintf(" AND actor_id = $%d", n)
		args = append(args, *f.ActorID)
	}
	if f.Action != "" {
		n++
		query += fmt.Sprintf(" AND action = $%d", n)
		args = append(args, f.Action)
	}
	if !f.From.IsZero() {
		n++
		query += fmt.Sprintf(" AND ts >= $%d", n)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		n++
		query += fmt.Sprintf(" AND ts <= $%d", n)
		args = append(args, f.To)
	}
	query += " ORDER BY ts"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.TableID, &e.ActorID, &e.Action, &payload,
			&e.StateHashBefore, &e.StateHashAfter, &e.PrevHash, &e.Hash, &e.Signature); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
