// Package audit records auditable actions to the repository, the event
// bus, and the per-tenant run counters.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// counterWindow bounds the per-tenant run counters kept in cache.
const counterWindow = 24 * time.Hour

// Recorder writes audit entries. Recording is best-effort: failures are
// logged and never propagate to the operation being audited.
type Recorder struct {
	repo   domain.Repository
	bus    domain.EventBus
	cache  domain.Cache
	logger *slog.Logger
}

// NewRecorder creates a recorder. Bus and cache may be nil; the
// corresponding side effects are then skipped.
func NewRecorder(repo domain.Repository, bus domain.EventBus, cache domain.Cache, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		repo:   repo,
		bus:    bus,
		cache:  cache,
		logger: logger,
	}
}

// Record persists one audit entry, publishes it on the audit topic and
// bumps the per-tenant action counter.
func (r *Recorder) Record(ctx context.Context, tenantID, actor, action string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal audit payload",
			"tenant_id", tenantID,
			"action", action,
			"error", err,
		)
		body = nil
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Actor:     actor,
		Action:    action,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.repo.SaveAuditEntry(ctx, entry); err != nil {
		r.logger.Error("failed to save audit entry",
			"tenant_id", tenantID,
			"action", action,
			"error", err,
		)
	}

	if r.bus != nil {
		data, err := json.Marshal(entry)
		if err == nil {
			err = r.bus.Publish(ctx, tenantID, domain.TopicAudit, data)
		}
		if err != nil {
			r.logger.Warn("failed to publish audit event",
				"tenant_id", tenantID,
				"action", action,
				"error", err,
			)
		}
	}

	if r.cache != nil {
		if _, err := r.cache.IncrementCounter(ctx, tenantID, action, counterWindow); err != nil {
			r.logger.Warn("failed to increment audit counter",
				"tenant_id", tenantID,
				"action", action,
				"error", err,
			)
		}
	}
}

// RecordEngineRun audits one completed engine evaluation.
func (r *Recorder) RecordEngineRun(ctx context.Context, tenantID, actor string, snap *domain.Snapshot) {
	payload := map[string]any{
		"snapshot_id":      snap.ID,
		"model_version_id": snap.ModelVersion.ID,
		"state":            snap.State,
		"total_score":      snap.Breakdown.TotalScore,
	}
	r.Record(ctx, tenantID, actor, domain.AuditActionEngineRun, payload)
}

// RecordConfigChange audits one configuration write.
func (r *Recorder) RecordConfigChange(ctx context.Context, tenantID, actor, entity, entityID string) {
	payload := map[string]any{
		"entity":    entity,
		"entity_id": entityID,
	}
	r.Record(ctx, tenantID, actor, domain.AuditActionConfigChanged, payload)
}
