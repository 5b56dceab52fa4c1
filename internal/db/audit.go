package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"guidance-rag/internal/logging"
)

// AuditRepo implements logging.AuditSink by persisting each event as a
// row in audit_log.
type AuditRepo struct {
	conn *sql.DB
}

func NewAuditRepo(conn *sql.DB) *AuditRepo {
	return &AuditRepo{conn: conn}
}

func (r *AuditRepo) Record(ctx context.Context, e logging.Event) error {
	ctxJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context: %w", err)
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO audit_log (id, event, actor_id, subject, outcome, context_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		NewID(), string(e.Type), e.ActorID, e.Subject, string(e.Outcome), string(ctxJSON), formatTime(ts))
	return err
}

// ListBySubject returns audit entries for a subject, newest first.
func (r *AuditRepo) ListBySubject(ctx context.Context, subject string) ([]AuditEntry, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT
		id, event, actor_id, subject, outcome, context_json, created_at
		FROM audit_log WHERE subject = ? ORDER BY created_at DESC`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var a AuditEntry
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Event, &a.ActorID, &a.Subject, &a.Outcome, &a.ContextJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		a.CreatedAt, err = parseTimeOrZero(createdAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
