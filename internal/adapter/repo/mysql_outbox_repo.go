package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aq2208/gorder-pos/internal/usecase"
)

const (
	outboxPending  = "PENDING"
	outboxInflight = "INFLIGHT"
	outboxSent     = "SENT"
)

// MySQLOutboxRepo writes events inside the caller's transaction (q) and
// drains them through the pool (db). Every timestamp is computed here in
// UTC; the server clock and session time zone are never consulted.
type MySQLOutboxRepo struct {
	db  *sql.DB
	q   dbtx
	now func() time.Time
}

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo {
	return &MySQLOutboxRepo{db: db, q: db, now: time.Now}
}

func (r *MySQLOutboxRepo) utcNow() time.Time {
	if r.now == nil {
		return time.Now().UTC()
	}
	return r.now().UTC()
}

func (r *MySQLOutboxRepo) Insert(ctx context.Context, channel, key string, payload []byte) error {
	now := r.utcNow()
	_, err := r.q.ExecContext(ctx, `
INSERT INTO outbox (channel,msg_key,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, ?, 'PENDING', 0, ?, ?)
`, channel, key, payload, now, now)
	return err
}

// ClaimPending locks due rows with SKIP LOCKED so several relays can run
// side by side, then leases them until now+lease.
func (r *MySQLOutboxRepo) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]usecase.OutboxRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := r.utcNow()
	rows, err := tx.QueryContext(ctx, `
SELECT id,channel,msg_key,payload,retry_count,next_attempt_at
FROM outbox
WHERE status IN ('PENDING','INFLIGHT') AND next_attempt_at <= ?
ORDER BY id
LIMIT ?
FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, err
	}

	var (
		recs []usecase.OutboxRecord
		ids  []any
	)
	for rows.Next() {
		var (
			id  int64
			rec usecase.OutboxRecord
		)
		if err := rows.Scan(&id, &rec.Channel, &rec.Key, &rec.Payload, &rec.RetryCount, &rec.NextAttempt); err != nil {
			rows.Close()
			return nil, err
		}
		rec.ID = strconv.FormatInt(id, 10)
		recs = append(recs, rec)
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	args := append([]any{outboxInflight, now.Add(lease)}, ids...)
	if _, err := tx.ExecContext(ctx, `
UPDATE outbox SET status=?, next_attempt_at=?
WHERE id IN (`+placeholders(len(ids))+`)`, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return recs, nil
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status=?, sent_at=? WHERE id=?`, outboxSent, r.utcNow(), id)
	return err
}

func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id string, retryAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status=?, retry_count = retry_count + 1, next_attempt_at=? WHERE id=?`,
		outboxPending, retryAt.UTC(), id)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var (
	_ usecase.OutboxRepo  = (*MySQLOutboxRepo)(nil)
	_ usecase.OutboxQueue = (*MySQLOutboxRepo)(nil)
)
