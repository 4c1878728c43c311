// Package worker provides async engine run processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/audit"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/engine"
	"github.com/opensource-finance/kestrel/internal/session"
)

// Worker processes engine run requests asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	loader   *engine.Loader
	sessions *session.Manager
	recorder *audit.Recorder

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, loader *engine.Loader, sessions *session.Manager, recorder *audit.Recorder) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		loader:   loader,
		sessions: sessions,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing run requests for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants.
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.GlobalTenant, domain.TopicRunRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicRunRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processRun(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicRunRequested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processRun(ctx, msg.TenantID, msg)
}

// RunResult is published on the completed and failed topics.
type RunResult struct {
	RequestID  string           `json:"requestId"`
	SnapshotID string           `json:"snapshotId,omitempty"`
	State      string           `json:"state,omitempty"`
	TotalScore float64          `json:"totalScore,omitempty"`
	Snapshot   *domain.Snapshot `json:"snapshot,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// processRun resolves the model configuration, evaluates it against
// the request inputs and persists the resulting snapshot.
func (w *Worker) processRun(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var req domain.RunRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse run request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if req.TenantID != "" {
		tenantID = req.TenantID
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = msg.ID
	}

	slog.Debug("processing run request",
		"request_id", requestID,
		"tenant_id", tenantID,
		"model_version_id", req.ModelVersionID,
	)

	cfg, err := w.loader.Resolve(ctx, tenantID, req.ModelVersionID)
	if err != nil {
		return w.publishFailure(ctx, tenantID, requestID, err)
	}

	snap := engine.Evaluate(cfg, req.Inputs)
	snap.ID = uuid.New().String()
	snap.TenantID = tenantID
	snap.CreatedAt = time.Now().UTC()

	if err := w.repo.SaveSnapshot(ctx, tenantID, snap); err != nil {
		slog.Error("failed to save snapshot",
			"request_id", requestID,
			"error", err,
		)
		return w.publishFailure(ctx, tenantID, requestID, err)
	}

	if req.SessionID != "" && w.sessions != nil {
		if err := w.sessions.AppendSnapshot(ctx, tenantID, req.SessionID, snap); err != nil {
			slog.Error("failed to append session snapshot",
				"request_id", requestID,
				"session_id", req.SessionID,
				"error", err,
			)
		}
	}

	if w.recorder != nil {
		w.recorder.RecordEngineRun(ctx, tenantID, "worker", snap)
	}

	result := RunResult{
		RequestID:  requestID,
		SnapshotID: snap.ID,
		State:      snap.State,
		TotalScore: snap.Breakdown.TotalScore,
		Snapshot:   snap,
	}
	payload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicRunCompleted, payload); err != nil {
		slog.Error("failed to publish run result",
			"request_id", requestID,
			"error", err,
		)
	}

	slog.Info("run request processed",
		"request_id", requestID,
		"tenant_id", tenantID,
		"snapshot_id", snap.ID,
		"state", snap.State,
		"total_score", snap.Breakdown.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

func (w *Worker) publishFailure(ctx context.Context, tenantID, requestID string, cause error) error {
	result := RunResult{
		RequestID: requestID,
		Error:     cause.Error(),
	}
	payload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicRunFailed, payload); err != nil {
		slog.Error("failed to publish run failure",
			"request_id", requestID,
			"error", err,
		)
	}
	return cause
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
