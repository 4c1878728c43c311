package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// auditRepo captures saved entries and optionally fails.
type auditRepo struct {
	domain.Repository

	mu      sync.Mutex
	entries []*domain.AuditEntry
	fail    bool
}

func (r *auditRepo) SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	if r.fail {
		return errors.New("database unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *auditRepo) saved() []*domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AuditEntry(nil), r.entries...)
}

func TestRecordEngineRun(t *testing.T) {
	repo := &auditRepo{}
	c := cache.NewLRUCache(10)
	rec := NewRecorder(repo, nil, c, slog.Default())

	ctx := context.Background()
	snap := &domain.Snapshot{
		ID:    "snap-001",
		State: "CRITICAL_ZONE",
		ModelVersion: domain.ModelVersionRef{
			ID: "mv-001",
		},
		Breakdown: domain.ScoreBreakdown{TotalScore: 84},
	}

	rec.RecordEngineRun(ctx, "tenant-001", "api", snap)

	entries := repo.saved()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Action != domain.AuditActionEngineRun {
		t.Errorf("expected action %s, got %s", domain.AuditActionEngineRun, entry.Action)
	}
	if entry.Actor != "api" {
		t.Errorf("expected actor api, got %s", entry.Actor)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("expected ID and timestamp to be assigned")
	}

	var payload map[string]any
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload["snapshot_id"] != "snap-001" {
		t.Errorf("expected snapshot_id in payload, got %v", payload["snapshot_id"])
	}
	if payload["state"] != "CRITICAL_ZONE" {
		t.Errorf("expected state in payload, got %v", payload["state"])
	}

	// Counter was bumped once for this tenant and action
	count, err := c.IncrementCounter(ctx, "tenant-001", domain.AuditActionEngineRun, time.Minute)
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected counter at 2 after one recorded run, got %d", count)
	}
}

func TestRecordConfigChange(t *testing.T) {
	repo := &auditRepo{}
	rec := NewRecorder(repo, nil, nil, nil)

	rec.RecordConfigChange(context.Background(), "tenant-001", "api", "rule", "rule-42")

	entries := repo.saved()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != domain.AuditActionConfigChanged {
		t.Errorf("expected action %s, got %s", domain.AuditActionConfigChanged, entries[0].Action)
	}

	var payload map[string]any
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload["entity_id"] != "rule-42" {
		t.Errorf("expected entity_id rule-42, got %v", payload["entity_id"])
	}
}

func TestRecordFailureIsSilent(t *testing.T) {
	repo := &auditRepo{fail: true}
	rec := NewRecorder(repo, nil, nil, nil)

	// Must not panic or propagate the repository error
	rec.Record(context.Background(), "tenant-001", "api", domain.AuditActionEngineRun, map[string]any{"k": "v"})

	if len(repo.saved()) != 0 {
		t.Error("expected no saved entries when repository fails")
	}
}
