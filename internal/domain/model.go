package domain

import (
	"encoding/json"
	"time"
)

// ModelVersion identifies one named rule/scoring configuration set.
// Exactly one model version must resolve per evaluation call, either by
// explicit ID or as the unique active version for a tenant.
type ModelVersion struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Metric declares a named numeric input a model version expects.
// It carries no value itself; it only marks which input-map keys are
// coerced to numbers and exposed to coefficient formulas.
type Metric struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenantId"`
	ModelVersionID string `json:"modelVersionId"`
	Name           string `json:"name"`
	Active         bool   `json:"active"`
}

// Coefficient is a named weighting entry. Its raw value string is either
// a float (scalar mode: multiplied with the same-named input) or DSL
// source (formula mode: evaluated numerically against the run context).
type Coefficient struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenantId"`
	ModelVersionID string `json:"modelVersionId"`
	Name           string `json:"name"`
	Value          string `json:"value"`
	Active         bool   `json:"active"`
}

// Rule is a named, independently activatable decision unit owning
// boolean conditions and numeric impacts.
type Rule struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	ModelVersionID string          `json:"modelVersionId"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Active         bool            `json:"active"`
	Conditions     []RuleCondition `json:"conditions,omitempty"`
	Impacts        []RuleImpact    `json:"impacts,omitempty"`
}

// RuleCondition is one boolean-mode DSL expression gating a rule.
// A rule triggers when any one of its active conditions evaluates true.
type RuleCondition struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	RuleID     string `json:"ruleId"`
	Expression string `json:"expression"`
	Active     bool   `json:"active"`
}

// RuleImpact contributes to the rule impact score when its rule triggers.
// The impact string is parsed as a float; non-numeric impacts are skipped.
type RuleImpact struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	RuleID   string `json:"ruleId"`
	Impact   string `json:"impact"`
	Active   bool   `json:"active"`
}

// StateDefinition names a classification state for a tenant.
// SeverityRank orders override states: a matched state with a higher
// rank wins over any higher-threshold match with a lower rank. Rank 0
// means "no override"; the two well-known severity names get default
// ranks when none is configured.
type StateDefinition struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenantId"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SeverityRank int    `json:"severityRank,omitempty"`
}

// StateThreshold attaches a numeric floor to a state definition.
// A state matches when the calibrated state score is >= its threshold.
// The threshold is stored as text; non-numeric thresholds are ignored.
type StateThreshold struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenantId"`
	StateDefinitionID string `json:"stateDefinitionId"`
	Threshold         string `json:"threshold"`
}

// StateBand is a resolved state definition joined with its numeric
// threshold, ready for classification.
type StateBand struct {
	Name         string  `json:"name"`
	Threshold    float64 `json:"threshold"`
	SeverityRank int     `json:"severityRank"`
}

// RestructuringTemplate is a named remediation payload surfaced only in
// the worst classified state. The payload is opaque structured data.
type RestructuringTemplate struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenantId"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// RestructuringRule binds a template to a tenant scope.
type RestructuringRule struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TemplateID string `json:"templateId"`
}

// RestructuringBinding is a resolved restructuring rule joined with its
// template.
type RestructuringBinding struct {
	RuleID   string                `json:"ruleId"`
	Template RestructuringTemplate `json:"template"`
}

// ModelConfig is the fully resolved, immutable configuration bundle one
// engine evaluation runs against. The loader assembles it; the engine
// only reads it, so concurrent evaluations over the same bundle need no
// coordination.
type ModelConfig struct {
	Version        ModelVersion           `json:"version"`
	Metrics        []Metric               `json:"metrics,omitempty"`
	Coefficients   []Coefficient          `json:"coefficients,omitempty"`
	Rules          []Rule                 `json:"rules,omitempty"`
	States         []StateBand            `json:"states,omitempty"`
	Restructurings []RestructuringBinding `json:"restructurings,omitempty"`
}

// Session is a named evaluation session whose snapshot column holds a
// versioned history of engine snapshots.
type Session struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	ModelVersionID string    `json:"modelVersionId"`
	Name           string    `json:"name,omitempty"`
	Snapshot       []byte    `json:"-"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// AuditEntry records one auditable action, such as an engine run.
type AuditEntry struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// Audit action names.
const (
	AuditActionEngineRun     = "ENGINE_RUN"
	AuditActionConfigChanged = "CONFIG_CHANGED"
)

// Well-known state names. These are data-driven state definitions, but
// the classifier treats the two severity names as overrides and falls
// back to the default state when no threshold matches.
const (
	StateDefault      = "NORMAL"
	StateElevatedRisk = "ELEVATED_RISK"
	StateCriticalZone = "CRITICAL_ZONE"
)

// Default severity ranks applied when a state definition carries none.
const (
	SeverityRankElevated = 1
	SeverityRankCritical = 2
)

// DefaultSeverityRank returns the built-in override rank for a state
// name. States without a built-in rank return 0.
func DefaultSeverityRank(name string) int {
	switch name {
	case StateCriticalZone:
		return SeverityRankCritical
	case StateElevatedRisk:
		return SeverityRankElevated
	default:
		return 0
	}
}
