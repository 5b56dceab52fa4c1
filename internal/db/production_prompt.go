package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/logging"
	"guidance-rag/internal/shared/errs"
)

// BackupWriter persists the outgoing production prompt text before it is
// overwritten, so a promotion can always be rolled back by hand. Backed
// by internal/objectstore in production.
type BackupWriter interface {
	WritePromptBackup(ctx context.Context, path string, content string) error
}

// ProductionPromptRepo manages the singleton production_prompt row (id=1).
type ProductionPromptRepo struct {
	conn *sql.DB
}

func NewProductionPromptRepo(conn *sql.DB) *ProductionPromptRepo {
	return &ProductionPromptRepo{conn: conn}
}

// Init creates the singleton row if it does not already exist, per the
// invariant that exactly one row must exist at all times after init.
func (r *ProductionPromptRepo) Init(ctx context.Context, initialText, actorID string, at time.Time) error {
	exists, err := tableExists(ctx, r.conn, "production_prompt")
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("production_prompt table missing; run migrations first")
	}
	var count int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM production_prompt`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO production_prompt (id, prompt_text, promoted_at, promoter_id, previous_backup_path, optimistic_lock_counter)
		VALUES (1, ?, ?, ?, '', 0)`, initialText, formatTime(at), actorID)
	return err
}

func (r *ProductionPromptRepo) Get(ctx context.Context) (ProductionPrompt, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT
		prompt_text, promoted_at, promoter_id, previous_backup_path, optimistic_lock_counter
		FROM production_prompt WHERE id = 1`)

	var p ProductionPrompt
	var promotedAt string
	err := row.Scan(&p.PromptText, &promotedAt, &p.PromoterID, &p.PreviousBackupPath, &p.OptimisticLockCounter)
	if err == sql.ErrNoRows {
		return ProductionPrompt{}, errs.New(errs.KindValidation, "production prompt not initialized")
	}
	if err != nil {
		return ProductionPrompt{}, fmt.Errorf("scan production prompt: %w", err)
	}
	if p.PromotedAt, err = time.Parse(time.RFC3339, promotedAt); err != nil {
		return ProductionPrompt{}, err
	}
	return p, nil
}

// Preview compares a candidate version's text against the current
// production text, returning character and line deltas.
type PreviewResult struct {
	CurrentText   string
	NewText       string
	CharDelta     int
	LineDelta     int
	BackupSizeEst int
}

func (r *ProductionPromptRepo) Preview(ctx context.Context, versionID string, versions *PromptVersionRepo) (PreviewResult, error) {
	current, err := r.Get(ctx)
	if err != nil {
		return PreviewResult{}, err
	}
	v, err := versions.GetByID(ctx, versionID)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{
		CurrentText:   current.PromptText,
		NewText:       v.PromptText,
		CharDelta:     len(v.PromptText) - len(current.PromptText),
		LineDelta:     countLines(v.PromptText) - countLines(current.PromptText),
		BackupSizeEst: len(current.PromptText),
	}, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

// Promote implements the promotion flow in full: reject soft-deleted
// versions or a false confirmation, back up the outgoing text, swap in
// the new text under the optimistic lock, and emit the matching audit
// entry. Exactly one concurrent caller succeeds; the rest observe a
// Conflict and must retry with a refreshed view.
func (r *ProductionPromptRepo) Promote(ctx context.Context, versionID, actorID string, confirmation bool, versions *PromptVersionRepo, backup BackupWriter, audit logging.AuditSink, now time.Time) error {
	subject := "prompt_version:" + versionID

	if !confirmation {
		r.audit(ctx, audit, logging.EventPromptPromoteFailure, actorID, subject, logging.OutcomeFailure,
			map[string]any{"reason": "confirmation required"})
		return errs.New(errs.KindValidation, "promotion requires confirmation=true")
	}

	v, err := versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if v.DeletedAt != nil {
		r.audit(ctx, audit, logging.EventPromptPromoteFailure, actorID, subject, logging.OutcomeFailure,
			map[string]any{"reason": "version is soft-deleted"})
		return errs.New(errs.KindValidation, "cannot promote a soft-deleted prompt version")
	}

	current, err := r.Get(ctx)
	if err != nil {
		return err
	}

	backupPath := fmt.Sprintf("prompt-backups/%s.md", now.UTC().Format(time.RFC3339))
	if err := backup.WritePromptBackup(ctx, backupPath, current.PromptText); err != nil {
		r.audit(ctx, audit, logging.EventPromptPromoteFailure, actorID, subject, logging.OutcomeFailure,
			map[string]any{"reason": "object store write failed", "error": err.Error()})
		return errs.Wrap(errs.KindProvider, "backup current production prompt", err)
	}

	res, err := r.conn.ExecContext(ctx, `
		UPDATE production_prompt SET
			prompt_text = ?, promoted_at = ?, promoter_id = ?, previous_backup_path = ?,
			optimistic_lock_counter = optimistic_lock_counter + 1
		WHERE id = 1 AND optimistic_lock_counter = ?`,
		v.PromptText, formatTime(now), actorID, backupPath, current.OptimisticLockCounter)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		r.audit(ctx, audit, logging.EventPromptPromoteFailure, actorID, subject, logging.OutcomeFailure,
			map[string]any{"reason": "optimistic lock conflict"})
		return errs.New(errs.KindConflict, "production prompt was modified concurrently; refresh and retry")
	}

	r.audit(ctx, audit, logging.EventPromptPromoteSuccess, actorID, subject, logging.OutcomeSuccess,
		map[string]any{"backup_path": backupPath, "previous_promoter": current.PromoterID})
	return nil
}

func (r *ProductionPromptRepo) audit(ctx context.Context, sink logging.AuditSink, event logging.EventType, actorID, subject string, outcome logging.Outcome, context map[string]any) {
	if sink == nil {
		return
	}
	_ = sink.Record(ctx, logging.Event{
		Type:      event,
		ActorID:   actorID,
		Subject:   subject,
		Outcome:   outcome,
		Context:   context,
		Timestamp: time.Now().UTC(),
	})
}
