// Package session maintains versioned snapshot histories on evaluation
// sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Event is one appended history entry.
type Event struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// History is the packed payload stored in a session's snapshot column.
// Version counts appends; Latest always mirrors the newest snapshot.
type History struct {
	Version int             `json:"version"`
	Latest  json.RawMessage `json:"latest"`
	History []Event         `json:"history"`

	// LegacySnapshot preserves an unparsable pre-versioning payload
	// found during recovery.
	LegacySnapshot string `json:"legacy_snapshot,omitempty"`
}

// Unpack parses a stored history payload. Payloads that predate the
// versioned format, or that fail to parse, are recovered into an empty
// history with the raw text kept in LegacySnapshot.
func Unpack(payload []byte) *History {
	if len(payload) == 0 {
		return &History{History: []Event{}}
	}

	var h History
	if err := json.Unmarshal(payload, &h); err != nil || (h.Version == 0 && h.Latest == nil && h.History == nil) {
		return &History{
			History:        []Event{},
			LegacySnapshot: string(payload),
		}
	}
	if h.History == nil {
		h.History = []Event{}
	}
	return &h
}

// Append packs an existing payload with one more snapshot and returns
// the new payload.
func Append(existing []byte, snapshot json.RawMessage, now time.Time) ([]byte, error) {
	h := Unpack(existing)

	h.Version++
	h.Latest = snapshot
	h.History = append(h.History, Event{
		Version:   h.Version,
		CreatedAt: now.UTC(),
		Snapshot:  snapshot,
	})

	return json.Marshal(h)
}

// Manager appends snapshots to stored sessions.
type Manager struct {
	repo domain.Repository
}

// NewManager creates a session manager.
func NewManager(repo domain.Repository) *Manager {
	return &Manager{repo: repo}
}

// AppendSnapshot loads the session, appends the snapshot to its
// history and writes the packed payload back.
func (m *Manager) AppendSnapshot(ctx context.Context, tenantID, sessionID string, snap *domain.Snapshot) error {
	s, err := m.repo.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	packed, err := Append(s.Snapshot, body, time.Now())
	if err != nil {
		return fmt.Errorf("failed to pack session history: %w", err)
	}

	if err := m.repo.UpdateSessionSnapshot(ctx, tenantID, sessionID, packed); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}
