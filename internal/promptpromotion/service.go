// Package promptpromotion composes the prompt-version CRUD and
// production-prompt promotion repositories into the single service
// surface component K exposes, per spec §4.K.
package promptpromotion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guidance-rag/internal/db"
	"guidance-rag/internal/logging"
)

// Service is the thin orchestration layer over db.PromptVersionRepo and
// db.ProductionPromptRepo; all invariants (name uniqueness, 10,000-char
// limit, 30-day hard-delete rule, optimistic-lock promotion) already
// live in those repositories, so this layer's job is wiring, not policy.
type Service struct {
	versions   *db.PromptVersionRepo
	production *db.ProductionPromptRepo
	backup     db.BackupWriter
	audit      logging.AuditSink
	log        *zap.Logger
}

func New(versions *db.PromptVersionRepo, production *db.ProductionPromptRepo, backup db.BackupWriter, audit logging.AuditSink, log *zap.Logger) *Service {
	if audit == nil {
		audit = logging.NopAuditSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{versions: versions, production: production, backup: backup, audit: audit, log: log}
}

// List returns prompt versions, optionally including soft-deleted ones.
func (s *Service) List(ctx context.Context, includeDeleted bool) ([]db.PromptVersion, error) {
	return s.versions.List(ctx, includeDeleted)
}

// Get returns one prompt version by id.
func (s *Service) Get(ctx context.Context, id string) (db.PromptVersion, error) {
	return s.versions.GetByID(ctx, id)
}

// CreateParams are the fields a caller supplies; ID and CreatedAt are
// derived here so callers never mint identifiers themselves.
type CreateParams struct {
	Name       string
	PromptText string
	AuthorID   string
	Notes      string
}

// Create persists a new prompt version and emits the matching audit
// entry.
func (s *Service) Create(ctx context.Context, p CreateParams, now time.Time) (db.PromptVersion, error) {
	v := db.PromptVersion{
		ID:         db.NewID(),
		Name:       p.Name,
		PromptText: p.PromptText,
		AuthorID:   p.AuthorID,
		Notes:      p.Notes,
		CreatedAt:  now,
	}
	if err := s.versions.Create(ctx, v); err != nil {
		return db.PromptVersion{}, err
	}
	_ = s.audit.Record(ctx, logging.Event{
		Type: logging.EventPromptVersionCreate, ActorID: p.AuthorID, Subject: "prompt_version:" + v.ID,
		Outcome: logging.OutcomeSuccess, Timestamp: now,
	})
	return v, nil
}

func (s *Service) SoftDelete(ctx context.Context, id, actorID string, now time.Time) error {
	if err := s.versions.SoftDelete(ctx, id, now); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, logging.Event{
		Type: logging.EventPromptVersionDelete, ActorID: actorID, Subject: "prompt_version:" + id,
		Outcome: logging.OutcomeSuccess, Timestamp: now,
	})
	return nil
}

func (s *Service) Restore(ctx context.Context, id, actorID string, now time.Time) error {
	if err := s.versions.Restore(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, logging.Event{
		Type: logging.EventPromptVersionRestore, ActorID: actorID, Subject: "prompt_version:" + id,
		Outcome: logging.OutcomeSuccess, Timestamp: now,
	})
	return nil
}

// HardDelete permanently removes a version whose soft-delete is at
// least 30 days old; no audit event is specified for this operation
// since the row ceases to exist to reference.
func (s *Service) HardDelete(ctx context.Context, id string, now time.Time) error {
	return s.versions.HardDelete(ctx, id, now)
}

// Preview compares a candidate version against the current production
// prompt text.
func (s *Service) Preview(ctx context.Context, versionID string) (db.PreviewResult, error) {
	return s.production.Preview(ctx, versionID, s.versions)
}

// Promote swaps versionID into production, backing up the outgoing text
// first, under the production row's optimistic lock.
func (s *Service) Promote(ctx context.Context, versionID, actorID string, confirmation bool, now time.Time) error {
	return s.production.Promote(ctx, versionID, actorID, confirmation, s.versions, s.backup, s.audit, now)
}

// CurrentProduction returns the live production prompt.
func (s *Service) CurrentProduction(ctx context.Context) (db.ProductionPrompt, error) {
	return s.production.Get(ctx)
}
