package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

// Loader resolves the immutable configuration bundle one evaluation
// runs against. Resolution is the only phase allowed to fail an entire
// evaluation; its failures carry the machine-readable resolution codes.
//
// Resolved bundles are cached per model version. Configuration writes
// go through Invalidate so the next resolution reads fresh state.
type Loader struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewLoader creates a loader. The cache is optional; pass nil to
// resolve from the repository on every call.
func NewLoader(repo domain.Repository, cache domain.Cache) *Loader {
	return &Loader{
		repo:  repo,
		cache: cache,
		ttl:   5 * time.Minute,
	}
}

// Resolve returns the configuration bundle for the given model version
// ID, or the unique active model version for the tenant when the ID is
// empty. Failures are *domain.ResolutionError values.
func (l *Loader) Resolve(ctx context.Context, tenantID string, modelVersionID string) (*domain.ModelConfig, error) {
	var mv *domain.ModelVersion

	if modelVersionID != "" {
		if _, err := uuid.Parse(modelVersionID); err != nil {
			return nil, domain.NewResolutionError(domain.ResolutionInvalidModelVersionID, "model_version_id must be a UUID")
		}

		if l.cache != nil {
			cached, err := l.cache.GetModelConfig(ctx, tenantID, modelVersionID)
			if err != nil {
				slog.Warn("model config cache read failed", "error", err, "model_version_id", modelVersionID)
			} else if cached != nil {
				return cached, nil
			}
		}

		found, err := l.repo.GetModelVersion(ctx, modelVersionID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewResolutionError(domain.ResolutionNoModelVersion, "no model version with the given id")
		}
		if err != nil {
			return nil, err
		}
		mv = found
	} else {
		found, err := l.repo.GetActiveModelVersion(ctx, tenantID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewResolutionError(domain.ResolutionNoModelVersion, "no active model version found")
		}
		if err != nil {
			return nil, err
		}
		mv = found
	}

	cfg, err := l.load(ctx, mv)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.SetModelConfig(ctx, cfg.Version.TenantID, cfg.Version.ID, cfg, l.ttl); err != nil {
			slog.Warn("model config cache write failed", "error", err, "model_version_id", cfg.Version.ID)
		}
	}

	return cfg, nil
}

// Invalidate drops the cached bundle for a model version after a
// configuration write.
func (l *Loader) Invalidate(ctx context.Context, tenantID string, modelVersionID string) {
	if l.cache == nil || modelVersionID == "" {
		return
	}
	if err := l.cache.InvalidateModelConfig(ctx, tenantID, modelVersionID); err != nil {
		slog.Warn("model config cache invalidation failed", "error", err, "model_version_id", modelVersionID)
	}
}

func (l *Loader) load(ctx context.Context, mv *domain.ModelVersion) (*domain.ModelConfig, error) {
	metrics, err := l.repo.ListMetrics(ctx, mv.ID)
	if err != nil {
		return nil, err
	}
	coefficients, err := l.repo.ListCoefficients(ctx, mv.ID)
	if err != nil {
		return nil, err
	}
	ruleList, err := l.repo.ListRules(ctx, mv.ID)
	if err != nil {
		return nil, err
	}
	rules := make([]domain.Rule, 0, len(ruleList))
	for _, r := range ruleList {
		rules = append(rules, *r)
	}
	states, err := l.repo.ListStateBands(ctx, mv.TenantID)
	if err != nil {
		return nil, err
	}
	restructurings, err := l.repo.ListRestructurings(ctx, mv.TenantID)
	if err != nil {
		return nil, err
	}

	return &domain.ModelConfig{
		Version:        *mv,
		Metrics:        metrics,
		Coefficients:   coefficients,
		Rules:          rules,
		States:         states,
		Restructurings: restructurings,
	}, nil
}
