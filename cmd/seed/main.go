// Seed tool that loads a deterministic baseline model into Kestrel.
//
// Usage:
//
//	go run cmd/seed/main.go -db ./kestrel.db -tenant tenant-001
//
// This tool:
//  1. Creates an active "baseline" model version for the tenant
//  2. Registers metrics, coefficients, rules, states and thresholds
//  3. Installs restructuring templates with their bindings
//
// Running it twice is safe; all writes are upserts keyed by fixed IDs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

type seedRule struct {
	id         string
	name       string
	desc       string
	conditions []string
	impact     string
}

func main() {
	dbPath := flag.String("db", "./kestrel.db", "SQLite database path")
	tenantID := flag.String("tenant", "tenant-001", "Tenant to seed")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: *dbPath,
	})
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := seed(ctx, repo, *tenantID); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	slog.Info("seeding complete", "tenant", *tenantID, "db", *dbPath)
}

func seed(ctx context.Context, repo domain.Repository, tenantID string) error {
	mv := &domain.ModelVersion{
		ID:          "mv-baseline",
		Name:        "baseline",
		Description: "Deterministic baseline scoring model",
		Active:      true,
	}
	if err := repo.SaveModelVersion(ctx, tenantID, mv); err != nil {
		return fmt.Errorf("save model version: %w", err)
	}
	slog.Info("model version seeded", "id", mv.ID, "name", mv.Name)

	for i, name := range []string{"revenue", "cost", "margin", "technical_debt"} {
		m := &domain.Metric{
			ID:             fmt.Sprintf("metric-%02d", i+1),
			ModelVersionID: mv.ID,
			Name:           name,
			Active:         true,
		}
		if err := repo.SaveMetric(ctx, tenantID, m); err != nil {
			return fmt.Errorf("save metric %s: %w", name, err)
		}
	}

	coefficients := map[string]string{
		"revenue":          "0.08",
		"cost":             "-0.05",
		"margin":           "0.40",
		"composite_stress": "(cost - margin) * 0.02 + technical_debt * 0.015",
	}
	i := 0
	for _, name := range []string{"revenue", "cost", "margin", "composite_stress"} {
		i++
		c := &domain.Coefficient{
			ID:             fmt.Sprintf("coeff-%02d", i),
			ModelVersionID: mv.ID,
			Name:           name,
			Value:          coefficients[name],
			Active:         true,
		}
		if err := repo.SaveCoefficient(ctx, tenantID, c); err != nil {
			return fmt.Errorf("save coefficient %s: %w", name, err)
		}
	}
	slog.Info("metrics and coefficients seeded", "metrics", 4, "coefficients", 4)

	rules := []seedRule{
		{"rule-01", "high_cost_pressure", "Cost above sustainable band", []string{"cost > 220"}, "12"},
		{"rule-02", "negative_margin", "Margin has gone negative", []string{"margin < 0"}, "18"},
		{"rule-03", "revenue_collapse", "Revenue below viability floor", []string{"revenue < 50"}, "25"},
		{"rule-04", "debt_overhang", "Technical debt dominates cost", []string{"technical_debt > cost * 0.5"}, "10"},
		{"rule-05", "thin_margin", "Margin squeezed below 5 percent of revenue", []string{"margin < revenue * 0.05 and revenue > 0"}, "8"},
		{"rule-06", "cost_revenue_inversion", "Cost exceeds revenue", []string{"cost > revenue"}, "20"},
		{"rule-07", "stagnation", "Low revenue with high debt", []string{"revenue < 100", "technical_debt > 80"}, "6"},
	}
	for _, sr := range rules {
		rule := &domain.Rule{
			ID:             sr.id,
			ModelVersionID: mv.ID,
			Name:           sr.name,
			Description:    sr.desc,
			Active:         true,
		}
		for j, expr := range sr.conditions {
			rule.Conditions = append(rule.Conditions, domain.RuleCondition{
				ID:         fmt.Sprintf("%s-cond-%d", sr.id, j+1),
				RuleID:     sr.id,
				Expression: expr,
				Active:     true,
			})
		}
		rule.Impacts = append(rule.Impacts, domain.RuleImpact{
			ID:     sr.id + "-impact-1",
			RuleID: sr.id,
			Impact: sr.impact,
			Active: true,
		})
		if err := repo.SaveRule(ctx, tenantID, rule); err != nil {
			return fmt.Errorf("save rule %s: %w", sr.name, err)
		}
	}
	slog.Info("rules seeded", "count", len(rules))

	states := []struct {
		id        string
		name      string
		desc      string
		rank      int
		threshold string
	}{
		{"state-normal", "NORMAL", "Operating within expected bands", 0, "0"},
		{"state-elevated", "ELEVATED_RISK", "Watch conditions present", 1, "35"},
		{"state-critical", "CRITICAL_ZONE", "Restructuring review required", 2, "60"},
	}
	for _, s := range states {
		sd := &domain.StateDefinition{
			ID:           s.id,
			Name:         s.name,
			Description:  s.desc,
			SeverityRank: s.rank,
		}
		if err := repo.SaveStateDefinition(ctx, tenantID, sd); err != nil {
			return fmt.Errorf("save state %s: %w", s.name, err)
		}
		st := &domain.StateThreshold{
			ID:                s.id + "-threshold",
			StateDefinitionID: s.id,
			Threshold:         s.threshold,
		}
		if err := repo.SaveStateThreshold(ctx, tenantID, st); err != nil {
			return fmt.Errorf("save threshold for %s: %w", s.name, err)
		}
	}
	slog.Info("states seeded", "count", len(states))

	templates := []struct {
		id      string
		name    string
		payload string
	}{
		{
			"tmpl-rationalization", "portfolio_rationalization",
			`{"actions":["divest non-core units","consolidate vendors"],"horizon_months":6}`,
		},
		{
			"tmpl-cost-containment", "cost_containment_program",
			`{"actions":["freeze discretionary spend","renegotiate contracts"],"horizon_months":3}`,
		},
	}
	for _, t := range templates {
		tmpl := &domain.RestructuringTemplate{
			ID:      t.id,
			Name:    t.name,
			Payload: []byte(t.payload),
		}
		if err := repo.SaveRestructuringTemplate(ctx, tenantID, tmpl); err != nil {
			return fmt.Errorf("save template %s: %w", t.name, err)
		}
		rr := &domain.RestructuringRule{
			ID:         t.id + "-binding",
			TemplateID: t.id,
		}
		if err := repo.SaveRestructuringRule(ctx, tenantID, rr); err != nil {
			return fmt.Errorf("bind template %s: %w", t.name, err)
		}
	}
	slog.Info("restructuring templates seeded", "count", len(templates))

	return nil
}
