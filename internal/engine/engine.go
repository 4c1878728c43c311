// Package engine implements the deterministic rule-and-scoring engine:
// condition evaluation, score aggregation, state classification, and
// restructuring selection, assembled into one immutable snapshot.
//
// Evaluate is a pure function of (resolved configuration, inputs). It
// performs no I/O, mutates nothing it is handed, and never panics;
// expression-level faults stay inline in the snapshot while resolution
// faults are handled upstream by the Loader.
package engine

import (
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/expr"
)

// RuleImpactScoreVar is the reserved runtime variable exposing the
// aggregate rule impact score to coefficient formulas.
const RuleImpactScoreVar = "rule_impact_score"

// Calibration constants for the state score. These down-weight raw
// input magnitude and up-weight discrete rule triggers so large inputs
// alone cannot force the worst state. Preserved exactly for output
// compatibility; do not rederive.
const (
	stateScoreInputWeight  = 0.1
	stateScoreTriggerBonus = 20.0
)

// Evaluate runs the full scoring pipeline against one resolved
// configuration bundle and returns the snapshot. ID and CreatedAt are
// left zero so identical calls produce byte-identical bodies; the
// caller assigns them when persisting.
func Evaluate(cfg *domain.ModelConfig, inputs map[string]float64) *domain.Snapshot {
	if inputs == nil {
		inputs = map[string]float64{}
	}

	contributions := make([]domain.ConditionContribution, 0)
	triggered := make(map[string]bool)
	activeRules := 0
	conditionsEvaluated := 0

	for _, rule := range cfg.Rules {
		if !rule.Active {
			continue
		}
		activeRules++
		for _, cond := range rule.Conditions {
			if !cond.Active {
				continue
			}
			source := strings.TrimSpace(cond.Expression)
			if source == "" {
				continue
			}
			conditionsEvaluated++

			out := expr.EvalBool(source, inputs)
			contributions = append(contributions, domain.ConditionContribution{
				RuleID:      rule.ID,
				ConditionID: cond.ID,
				Expression:  source,
				Result:      out.Result,
				Error:       out.Err.String(),
			})
			if out.Result {
				// One true condition triggers the rule (OR semantics
				// across a rule's conditions).
				triggered[rule.ID] = true
			}
		}
	}

	ruleScores := scoreTriggeredRules(cfg.Rules, triggered)
	ruleImpactScore := 0.0
	for _, s := range ruleScores {
		ruleImpactScore += s
	}

	weightedInputScore, coeffContribs := scoreCoefficients(cfg, inputs, ruleImpactScore)

	totalScore := weightedInputScore + ruleImpactScore

	// Calibrated score used only for state classification.
	stateScore := max(0, weightedInputScore)*stateScoreInputWeight +
		ruleImpactScore +
		float64(len(triggered))*stateScoreTriggerBonus

	state := Classify(cfg.States, stateScore)

	actions := make([]domain.RestructuringAction, 0)
	if state == domain.StateCriticalZone {
		for _, binding := range cfg.Restructurings {
			actions = append(actions, domain.RestructuringAction{
				RestructuringRuleID: binding.RuleID,
				TemplateID:          binding.Template.ID,
				TemplateName:        binding.Template.Name,
				Payload:             binding.Template.Payload,
			})
		}
	}

	return &domain.Snapshot{
		TenantID: cfg.Version.TenantID,
		ModelVersion: domain.ModelVersionRef{
			ID:       cfg.Version.ID,
			Name:     cfg.Version.Name,
			TenantID: cfg.Version.TenantID,
		},
		RuleCount:           activeRules,
		TriggeredRuleCount:  len(triggered),
		ConditionsEvaluated: conditionsEvaluated,
		State:               state,
		Contributions:       contributions,
		Scores:              ruleScores,
		Breakdown: domain.ScoreBreakdown{
			WeightedInputScore:       weightedInputScore,
			RuleImpactScore:          ruleImpactScore,
			TotalScore:               totalScore,
			StateScore:               stateScore,
			CoefficientContributions: coeffContribs,
		},
		RestructuringActions: actions,
	}
}

// scoreTriggeredRules sums each triggered rule's parsable impact values.
// A non-positive sum still contributes the floor of 1.0, preserving
// "triggered but not quantified" semantics.
func scoreTriggeredRules(rules []domain.Rule, triggered map[string]bool) map[string]float64 {
	scores := make(map[string]float64)
	for _, rule := range rules {
		if !triggered[rule.ID] {
			continue
		}
		total := 0.0
		for _, imp := range rule.Impacts {
			if !imp.Active {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(imp.Impact), 64)
			if err != nil {
				continue
			}
			total += v
		}
		if total <= 0 {
			total = 1.0
		}
		scores[rule.ID] = total
	}
	return scores
}

// scoreCoefficients computes the weighted input score. Scalar
// coefficients multiply the same-named input; formula coefficients
// evaluate against the supplied inputs plus declared metric values plus
// the reserved rule impact score variable.
func scoreCoefficients(cfg *domain.ModelConfig, inputs map[string]float64, ruleImpactScore float64) (float64, []domain.CoefficientContribution) {
	contribs := make([]domain.CoefficientContribution, 0)

	runtime := make(map[string]float64, len(inputs)+len(cfg.Metrics)+1)
	for k, v := range inputs {
		runtime[k] = v
	}
	for _, m := range cfg.Metrics {
		if !m.Active {
			continue
		}
		if v, ok := inputs[m.Name]; ok {
			runtime[m.Name] = v
		}
	}
	runtime[RuleImpactScoreVar] = ruleImpactScore

	score := 0.0
	for _, coeff := range cfg.Coefficients {
		if !coeff.Active {
			continue
		}
		raw := strings.TrimSpace(coeff.Value)

		if scalar, err := strconv.ParseFloat(raw, 64); err == nil {
			input, ok := runtime[coeff.Name]
			if !ok {
				contribs = append(contribs, domain.CoefficientContribution{
					Name:        coeff.Name,
					Mode:        domain.CoefficientModeScalar,
					Coefficient: f64ptr(scalar),
					Error:       domain.ErrMissingOrNonNumericInput,
				})
				continue
			}
			contribution := input * scalar
			score += contribution
			contribs = append(contribs, domain.CoefficientContribution{
				Name:         coeff.Name,
				Mode:         domain.CoefficientModeScalar,
				Input:        f64ptr(input),
				Coefficient:  f64ptr(scalar),
				Contribution: contribution,
			})
			continue
		}

		out := expr.EvalNumeric(raw, runtime)
		if !out.Valid {
			contribs = append(contribs, domain.CoefficientContribution{
				Name:    coeff.Name,
				Mode:    domain.CoefficientModeFormula,
				Formula: raw,
				Error:   out.Err.String(),
			})
			continue
		}
		score += out.Value
		contribs = append(contribs, domain.CoefficientContribution{
			Name:         coeff.Name,
			Mode:         domain.CoefficientModeFormula,
			Formula:      raw,
			Contribution: out.Value,
		})
	}

	return score, contribs
}

func f64ptr(v float64) *float64 { return &v }
