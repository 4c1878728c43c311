package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestAppendFirstSnapshot(t *testing.T) {
	snap := json.RawMessage(`{"state":"NORMAL"}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	packed, err := Append(nil, snap, now)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	h := Unpack(packed)
	if h.Version != 1 {
		t.Errorf("expected version 1, got %d", h.Version)
	}
	if string(h.Latest) != string(snap) {
		t.Errorf("expected latest %s, got %s", snap, h.Latest)
	}
	if len(h.History) != 1 {
		t.Fatalf("expected 1 history event, got %d", len(h.History))
	}
	if h.History[0].Version != 1 {
		t.Errorf("expected event version 1, got %d", h.History[0].Version)
	}
	if !h.History[0].CreatedAt.Equal(now) {
		t.Errorf("expected event time %v, got %v", now, h.History[0].CreatedAt)
	}
}

func TestAppendGrowsHistory(t *testing.T) {
	var payload []byte
	var err error

	for i := 1; i <= 3; i++ {
		snap := json.RawMessage(fmt.Sprintf(`{"run":%d}`, i))
		payload, err = Append(payload, snap, time.Now())
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	h := Unpack(payload)
	if h.Version != 3 {
		t.Errorf("expected version 3, got %d", h.Version)
	}
	if len(h.History) != 3 {
		t.Fatalf("expected 3 history events, got %d", len(h.History))
	}
	if string(h.Latest) != `{"run":3}` {
		t.Errorf("expected latest to mirror newest snapshot, got %s", h.Latest)
	}
	for i, ev := range h.History {
		if ev.Version != i+1 {
			t.Errorf("expected event %d to have version %d, got %d", i, i+1, ev.Version)
		}
	}
}

func TestLegacyPayloadRecovery(t *testing.T) {
	// A pre-versioning payload: a bare snapshot object
	legacy := []byte(`{"state":"ELEVATED_RISK","score_breakdown":{"total_score":40}}`)

	packed, err := Append(legacy, json.RawMessage(`{"state":"NORMAL"}`), time.Now())
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	h := Unpack(packed)
	if h.Version != 1 {
		t.Errorf("expected version 1 after recovery, got %d", h.Version)
	}
	if h.LegacySnapshot != string(legacy) {
		t.Errorf("expected legacy payload preserved, got %q", h.LegacySnapshot)
	}
	if len(h.History) != 1 {
		t.Errorf("expected 1 history event, got %d", len(h.History))
	}
}

func TestUnparsablePayloadRecovery(t *testing.T) {
	h := Unpack([]byte("not json at all"))
	if h.Version != 0 {
		t.Errorf("expected version 0, got %d", h.Version)
	}
	if h.LegacySnapshot != "not json at all" {
		t.Errorf("expected raw text preserved, got %q", h.LegacySnapshot)
	}
	if h.History == nil {
		t.Error("expected non-nil history slice")
	}
}

// sessionRepo stubs the two repository methods the manager touches.
type sessionRepo struct {
	domain.Repository

	session *domain.Session
	updated []byte
}

func (r *sessionRepo) GetSession(ctx context.Context, tenantID, sessionID string) (*domain.Session, error) {
	return r.session, nil
}

func (r *sessionRepo) UpdateSessionSnapshot(ctx context.Context, tenantID, sessionID string, payload []byte) error {
	r.updated = payload
	return nil
}

func TestManagerAppendSnapshot(t *testing.T) {
	repo := &sessionRepo{
		session: &domain.Session{ID: "sess-001", TenantID: "tenant-001"},
	}
	mgr := NewManager(repo)

	snap := &domain.Snapshot{State: "NORMAL"}
	if err := mgr.AppendSnapshot(context.Background(), "tenant-001", "sess-001", snap); err != nil {
		t.Fatalf("AppendSnapshot failed: %v", err)
	}

	if repo.updated == nil {
		t.Fatal("expected session payload to be written")
	}

	h := Unpack(repo.updated)
	if h.Version != 1 {
		t.Errorf("expected version 1, got %d", h.Version)
	}

	var stored domain.Snapshot
	if err := json.Unmarshal(h.Latest, &stored); err != nil {
		t.Fatalf("failed to unmarshal latest: %v", err)
	}
	if stored.State != "NORMAL" {
		t.Errorf("expected stored state NORMAL, got %s", stored.State)
	}
}
