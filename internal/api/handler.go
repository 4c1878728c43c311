package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/audit"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/engine"
	"github.com/opensource-finance/kestrel/internal/expr"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/session"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	loader   *engine.Loader
	sessions *session.Manager
	recorder *audit.Recorder
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, loader *engine.Loader, sessions *session.Manager, recorder *audit.Recorder, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		loader:   loader,
		sessions: sessions,
		recorder: recorder,
		version:  version,
	}
}

// RunRequest is the request body for POST /engine/run.
type RunRequest struct {
	ModelVersionID string             `json:"model_version_id,omitempty"`
	SessionID      string             `json:"session_id,omitempty"`
	Input          map[string]float64 `json:"input"`
}

// RunEngine handles POST /engine/run: synchronous evaluation.
func (h *Handler) RunEngine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Input == nil {
		req.Input = map[string]float64{}
	}

	cfg, err := h.loader.Resolve(ctx, tenantID, req.ModelVersionID)
	if err != nil {
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			if h.recorder != nil {
				h.recorder.Record(ctx, tenantID, "engine_api", domain.AuditActionEngineRun, map[string]any{
					"model_version_id": req.ModelVersionID,
					"session_id":       req.SessionID,
					"input":            req.Input,
					"error":            resErr.Code,
				})
			}
			writeJSON(w, http.StatusBadRequest, resErr)
			return
		}
		slog.Error("model resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to resolve model configuration",
		})
		return
	}

	snap := engine.Evaluate(cfg, req.Input)
	snap.ID = uuid.New().String()
	snap.TenantID = tenantID
	snap.CreatedAt = time.Now().UTC()

	if err := h.repo.SaveSnapshot(ctx, tenantID, snap); err != nil {
		slog.Error("failed to save snapshot", "snapshot_id", snap.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to persist snapshot",
		})
		return
	}

	if req.SessionID != "" && h.sessions != nil {
		if err := h.sessions.AppendSnapshot(ctx, tenantID, req.SessionID, snap); err != nil {
			slog.Error("failed to append session snapshot",
				"session_id", req.SessionID,
				"snapshot_id", snap.ID,
				"error", err,
			)
		}
	}

	if h.recorder != nil {
		h.recorder.RecordEngineRun(ctx, tenantID, "engine_api", snap)
	}

	slog.Info("engine run completed",
		"tenant_id", tenantID,
		"snapshot_id", snap.ID,
		"state", snap.State,
		"total_score", snap.Breakdown.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	writeJSON(w, http.StatusOK, snap)
}

// RunEngineAsync handles POST /engine/run/async: publishes the request
// for worker-side evaluation and returns immediately.
func (h *Handler) RunEngineAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Input == nil {
		req.Input = map[string]float64{}
	}

	runReq := domain.RunRequest{
		TenantID:       tenantID,
		ModelVersionID: req.ModelVersionID,
		SessionID:      req.SessionID,
		RequestID:      uuid.New().String(),
		Inputs:         req.Input,
	}

	payload, err := json.Marshal(runReq)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode run request",
		})
		return
	}

	if err := h.bus.Publish(ctx, tenantID, domain.TopicRunRequested, payload); err != nil {
		slog.Error("failed to publish run request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to enqueue run request",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": runReq.RequestID,
		"status":     "accepted",
	})
}

// GetSnapshot handles GET /snapshots/{id}.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	snapshotID := chi.URLParam(r, "id")

	snap, err := h.repo.GetSnapshot(ctx, tenantID, snapshotID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "snapshot not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get snapshot", "id", snapshotID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load snapshot",
		})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// CreateModelVersionRequest is the request body for POST /model-versions.
// Metrics and coefficients may be declared inline.
type CreateModelVersionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`

	Metrics []struct {
		Name string `json:"name"`
	} `json:"metrics,omitempty"`
	Coefficients []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"coefficients,omitempty"`
}

// CreateModelVersion handles POST /model-versions.
func (h *Handler) CreateModelVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateModelVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	mv := &domain.ModelVersion{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	}
	if err := h.repo.SaveModelVersion(ctx, tenantID, mv); err != nil {
		slog.Error("failed to save model version", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save model version",
		})
		return
	}

	for _, m := range req.Metrics {
		metric := &domain.Metric{ModelVersionID: mv.ID, Name: m.Name, Active: true}
		if err := h.repo.SaveMetric(ctx, tenantID, metric); err != nil {
			slog.Error("failed to save metric", "name", m.Name, "error", err)
		}
	}
	for _, c := range req.Coefficients {
		coeff := &domain.Coefficient{ModelVersionID: mv.ID, Name: c.Name, Value: c.Value, Active: true}
		if err := h.repo.SaveCoefficient(ctx, tenantID, coeff); err != nil {
			slog.Error("failed to save coefficient", "name", c.Name, "error", err)
		}
	}

	h.loader.Invalidate(ctx, tenantID, mv.ID)
	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "model_version", mv.ID)
	}

	writeJSON(w, http.StatusCreated, mv)
}

// ListModelVersions handles GET /model-versions.
func (h *Handler) ListModelVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	versions, err := h.repo.ListModelVersions(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list model versions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list model versions",
		})
		return
	}
	if versions == nil {
		versions = []*domain.ModelVersion{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model_versions": versions,
		"count":          len(versions),
	})
}

// GetModelVersion handles GET /model-versions/{id}.
func (h *Handler) GetModelVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	mv, err := h.repo.GetModelVersion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "model version not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get model version", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load model version",
		})
		return
	}

	writeJSON(w, http.StatusOK, mv)
}

// ActivateModelVersion handles POST /model-versions/{id}/activate.
func (h *Handler) ActivateModelVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	err := h.repo.ActivateModelVersion(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "model version not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to activate model version", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to activate model version",
		})
		return
	}

	h.loader.Invalidate(ctx, tenantID, id)
	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "model_version", id)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "activated",
	})
}

// CreateRuleRequest is the request body for POST /rules.
type CreateRuleRequest struct {
	ModelVersionID string   `json:"model_version_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Active         bool     `json:"active"`
	Conditions     []string `json:"conditions,omitempty"`
	Impacts        []string `json:"impacts,omitempty"`
}

// CreateRule handles POST /rules. Condition expressions are validated
// against the closed grammar before the rule is stored.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" || req.ModelVersionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and model_version_id are required",
		})
		return
	}

	for _, cond := range req.Conditions {
		if exprErr := expr.Validate(cond); exprErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":      string(exprErr.Code),
				"detail":     exprErr.Detail,
				"expression": cond,
			})
			return
		}
	}

	rule := &domain.Rule{
		ModelVersionID: req.ModelVersionID,
		Name:           req.Name,
		Description:    req.Description,
		Active:         req.Active,
	}
	for _, cond := range req.Conditions {
		rule.Conditions = append(rule.Conditions, domain.RuleCondition{Expression: cond, Active: true})
	}
	for _, imp := range req.Impacts {
		rule.Impacts = append(rule.Impacts, domain.RuleImpact{Impact: imp, Active: true})
	}

	if err := h.repo.SaveRule(ctx, tenantID, rule); err != nil {
		slog.Error("failed to save rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	h.loader.Invalidate(ctx, tenantID, req.ModelVersionID)
	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "rule", rule.ID)
	}

	writeJSON(w, http.StatusCreated, rule)
}

// ListRules handles GET /rules?model_version_id=...
// Without the query parameter the active model version is used.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	modelVersionID := r.URL.Query().Get("model_version_id")
	if modelVersionID == "" {
		mv, err := h.repo.GetActiveModelVersion(ctx, tenantID)
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no active model version",
			})
			return
		}
		if err != nil {
			slog.Error("failed to resolve active model version", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to resolve active model version",
			})
			return
		}
		modelVersionID = mv.ID
	}

	rules, err := h.repo.ListRules(ctx, modelVersionID)
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}
	if rules == nil {
		rules = []*domain.Rule{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	rule, err := h.repo.GetRule(ctx, tenantID, ruleID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// ValidateExpressionRequest is the request body for POST /expressions/validate.
type ValidateExpressionRequest struct {
	Expression string `json:"expression"`
}

// ValidateExpression handles POST /expressions/validate. It checks an
// expression against the closed grammar without evaluating it.
func (h *Handler) ValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req ValidateExpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if exprErr := expr.Validate(req.Expression); exprErr != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":  false,
			"error":  string(exprErr.Code),
			"detail": exprErr.Detail,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
	})
}

// CreateStateRequest is the request body for POST /states.
type CreateStateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SeverityRank int    `json:"severity_rank,omitempty"`
}

// CreateState handles POST /states. A zero severity rank falls back to
// the default ranking for the well-known state names.
func (h *Handler) CreateState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	rank := req.SeverityRank
	if rank == 0 {
		rank = domain.DefaultSeverityRank(req.Name)
	}

	sd := &domain.StateDefinition{
		Name:         req.Name,
		Description:  req.Description,
		SeverityRank: rank,
	}
	if err := h.repo.SaveStateDefinition(ctx, tenantID, sd); err != nil {
		slog.Error("failed to save state definition", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save state definition",
		})
		return
	}

	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "state_definition", sd.ID)
	}

	writeJSON(w, http.StatusCreated, sd)
}

// ListStates handles GET /states.
func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	states, err := h.repo.ListStateDefinitions(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list states", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list states",
		})
		return
	}
	if states == nil {
		states = []domain.StateDefinition{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"states": states,
		"count":  len(states),
	})
}

// CreateStateThresholdRequest is the request body for POST /state-thresholds.
type CreateStateThresholdRequest struct {
	StateDefinitionID string `json:"state_definition_id"`
	Threshold         string `json:"threshold"`
}

// CreateStateThreshold handles POST /state-thresholds.
func (h *Handler) CreateStateThreshold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateStateThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.StateDefinitionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "state_definition_id is required",
		})
		return
	}

	st := &domain.StateThreshold{
		StateDefinitionID: req.StateDefinitionID,
		Threshold:         req.Threshold,
	}
	if err := h.repo.SaveStateThreshold(ctx, tenantID, st); err != nil {
		slog.Error("failed to save state threshold", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save state threshold",
		})
		return
	}

	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "state_threshold", st.ID)
	}

	writeJSON(w, http.StatusCreated, st)
}

// ListStateThresholds handles GET /state-thresholds, returning the
// joined bands the classifier works with.
func (h *Handler) ListStateThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	bands, err := h.repo.ListStateBands(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list state bands", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list state thresholds",
		})
		return
	}
	if bands == nil {
		bands = []domain.StateBand{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thresholds": bands,
		"count":      len(bands),
	})
}

// CreateRestructuringTemplateRequest is the request body for
// POST /restructuring-templates.
type CreateRestructuringTemplateRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Bind creates a restructuring rule for the template in the same
	// call, making it eligible for selection.
	Bind bool `json:"bind,omitempty"`
}

// CreateRestructuringTemplate handles POST /restructuring-templates.
func (h *Handler) CreateRestructuringTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateRestructuringTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	tmpl := &domain.RestructuringTemplate{
		Name:    req.Name,
		Payload: req.Payload,
	}
	if err := h.repo.SaveRestructuringTemplate(ctx, tenantID, tmpl); err != nil {
		slog.Error("failed to save restructuring template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save restructuring template",
		})
		return
	}

	if req.Bind {
		rr := &domain.RestructuringRule{TemplateID: tmpl.ID}
		if err := h.repo.SaveRestructuringRule(ctx, tenantID, rr); err != nil {
			slog.Error("failed to save restructuring rule", "template_id", tmpl.ID, "error", err)
		}
	}

	if h.recorder != nil {
		h.recorder.RecordConfigChange(ctx, tenantID, "engine_api", "restructuring_template", tmpl.ID)
	}

	writeJSON(w, http.StatusCreated, tmpl)
}

// ListRestructuringTemplates handles GET /restructuring-templates.
func (h *Handler) ListRestructuringTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	templates, err := h.repo.ListRestructuringTemplates(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list restructuring templates", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list restructuring templates",
		})
		return
	}
	if templates == nil {
		templates = []domain.RestructuringTemplate{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// CreateSessionRequest is the request body for POST /sessions.
type CreateSessionRequest struct {
	ModelVersionID string `json:"model_version_id,omitempty"`
	Name           string `json:"name,omitempty"`
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	s := &domain.Session{
		ModelVersionID: req.ModelVersionID,
		Name:           req.Name,
	}
	if err := h.repo.SaveSession(ctx, tenantID, s); err != nil {
		slog.Error("failed to save session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save session",
		})
		return
	}

	writeJSON(w, http.StatusCreated, s)
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	sessions, err := h.repo.ListSessions(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list sessions",
		})
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// SessionResponse is the response for GET /sessions/{id}, with the
// packed snapshot history unpacked.
type SessionResponse struct {
	ID             string           `json:"id"`
	ModelVersionID string           `json:"modelVersionId"`
	Name           string           `json:"name,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	Snapshot       *session.History `json:"snapshot"`
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	s, err := h.repo.GetSession(ctx, tenantID, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "session not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get session", "id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load session",
		})
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		ID:             s.ID,
		ModelVersionID: s.ModelVersionID,
		Name:           s.Name,
		CreatedAt:      s.CreatedAt,
		Snapshot:       session.Unpack(s.Snapshot),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
