package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the complete, immutable result of one engine evaluation.
// The engine fills every field except ID and CreatedAt, which the caller
// assigns when persisting; identical (config, inputs) pairs therefore
// produce byte-identical snapshot bodies.
type Snapshot struct {
	ID       string `json:"id,omitempty"`
	TenantID string `json:"tenantId,omitempty"`

	ModelVersion ModelVersionRef `json:"model_version"`

	RuleCount           int    `json:"rule_count"`
	TriggeredRuleCount  int    `json:"triggered_rule_count"`
	ConditionsEvaluated int    `json:"conditions_evaluated"`
	State               string `json:"state"`

	// Contributions holds one record per evaluated condition, including
	// per-condition errors.
	Contributions []ConditionContribution `json:"contributions"`

	// Scores maps triggered rule IDs to their floored impact sums.
	Scores map[string]float64 `json:"scores"`

	Breakdown ScoreBreakdown `json:"score_breakdown"`

	RestructuringActions []RestructuringAction `json:"restructuring_actions"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ModelVersionRef identifies the model version a snapshot was produced
// from.
type ModelVersionRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
}

// ConditionContribution records one rule condition outcome. Errors are
// inline values; an errored condition counts as false.
type ConditionContribution struct {
	RuleID      string `json:"rule_id"`
	ConditionID string `json:"condition_id"`
	Expression  string `json:"expression"`
	Result      bool   `json:"result"`
	Error       string `json:"error,omitempty"`
}

// CoefficientContribution records one coefficient's share of the
// weighted input score. Scalar mode fills Input and Coefficient;
// formula mode fills Formula.
type CoefficientContribution struct {
	Name         string   `json:"name"`
	Mode         string   `json:"mode"`
	Input        *float64 `json:"input"`
	Coefficient  *float64 `json:"coefficient"`
	Formula      string   `json:"formula,omitempty"`
	Contribution float64  `json:"contribution"`
	Error        string   `json:"error,omitempty"`
}

// Coefficient evaluation modes.
const (
	CoefficientModeScalar  = "scalar"
	CoefficientModeFormula = "formula"
)

// ScoreBreakdown separates the composite score into its parts. The
// state score is the calibrated value used for classification only;
// its constants are a preserved policy choice, not derivable.
type ScoreBreakdown struct {
	WeightedInputScore       float64                   `json:"weighted_input_score"`
	RuleImpactScore          float64                   `json:"rule_impact_score"`
	TotalScore               float64                   `json:"total_score"`
	StateScore               float64                   `json:"state_score"`
	CoefficientContributions []CoefficientContribution `json:"coefficient_contributions"`
}

// RestructuringAction is one resolved remediation action, emitted only
// when the classified state is the critical severity.
type RestructuringAction struct {
	RestructuringRuleID string          `json:"restructuring_rule_id"`
	TemplateID          string          `json:"template_id"`
	TemplateName        string          `json:"template_name"`
	Payload             json.RawMessage `json:"payload,omitempty"`
}

// Snapshot coefficient error recorded when a scalar coefficient has no
// numeric input to multiply.
const ErrMissingOrNonNumericInput = "missing_or_non_numeric_input"

// Resolution error codes. These are the only faults allowed to
// short-circuit a whole evaluation; everything below them stays inline
// in the snapshot.
const (
	ResolutionNoModelVersion        = "no_model_version"
	ResolutionInvalidModelVersionID = "invalid_model_version_id"
)

// ResolutionError is the tagged, machine-readable failure returned when
// no model configuration can be resolved for an evaluation call.
type ResolutionError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewResolutionError builds a resolution error with the given code.
func NewResolutionError(code, message string) *ResolutionError {
	return &ResolutionError{Code: code, Message: message}
}
