package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS failed_notifications (
	id                   BIGSERIAL PRIMARY KEY,
	ack_id               TEXT NOT NULL,
	transport_message_id TEXT NOT NULL DEFAULT '',
	history_id           BIGINT NOT NULL DEFAULT 0,
	message_id           TEXT NOT NULL DEFAULT '',
	outcome              TEXT NOT NULL,
	error_message        TEXT NOT NULL DEFAULT '',
	payload              BYTEA,
	attempts             BIGINT NOT NULL DEFAULT 1,
	trace_id             TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'pending',
	failed_at            TIMESTAMPTZ NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type FailedNotificationRepository struct {
	db DBTX
}

func NewFailedNotificationRepository(db DBTX) *FailedNotificationRepository {
	return &FailedNotificationRepository{db: db}
}

// EnsureSchema creates the failed_notifications table if it is missing.
func (r *FailedNotificationRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Insert 插入失败的通知记录
func (r *FailedNotificationRepository) Insert(ctx context.Context, n FailedNotification) error {
	query := `
		INSERT INTO failed_notifications
			(ack_id, transport_message_id, history_id, message_id, outcome, error_message, payload, attempts, trace_id, status, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10)
	`
	_, err := r.db.Exec(ctx, query,
		n.AckID, n.TransportMsgID, int64(n.HistoryID), n.MessageID, n.Outcome,
		n.ErrorMessage, n.Payload, n.Attempts, n.TraceID, n.FailedAt,
	)
	return err
}

// ListPending 获取待处理的失败通知
func (r *FailedNotificationRepository) ListPending(ctx context.Context, limit int) ([]FailedNotification, error) {
	query := `
		SELECT id, ack_id, transport_message_id, history_id, message_id, outcome, error_message, payload, attempts, trace_id, status, failed_at
		FROM failed_notifications
		WHERE status = 'pending'
		ORDER BY failed_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailedNotification
	for rows.Next() {
		var n FailedNotification
		var historyID int64
		if err := rows.Scan(&n.ID, &n.AckID, &n.TransportMsgID, &historyID, &n.MessageID, &n.Outcome,
			&n.ErrorMessage, &n.Payload, &n.Attempts, &n.TraceID, &n.Status, &n.FailedAt); err != nil {
			return nil, err
		}
		n.HistoryID = uint64(historyID)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkResolved 标记记录为已处理
func (r *FailedNotificationRepository) MarkResolved(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE failed_notifications SET status = 'resolved' WHERE id = $1`, id)
	return err
}

type FailedNotification struct {
	ID             int64
	AckID          string
	TransportMsgID string
	HistoryID      uint64
	MessageID      string
	Outcome        string
	ErrorMessage   string
	Payload        []byte
	Attempts       int64
	TraceID        string
	Status         string
	FailedAt       time.Time
}
