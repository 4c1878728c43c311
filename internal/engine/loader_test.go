package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

// loaderRepo is an in-memory repository stub for resolution tests.
type loaderRepo struct {
	domain.Repository

	versions map[string]*domain.ModelVersion
	active   *domain.ModelVersion

	getCalls int
}

func (r *loaderRepo) GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error) {
	r.getCalls++
	mv, ok := r.versions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return mv, nil
}

func (r *loaderRepo) GetActiveModelVersion(ctx context.Context, tenantID string) (*domain.ModelVersion, error) {
	if r.active == nil {
		return nil, repository.ErrNotFound
	}
	return r.active, nil
}

func (r *loaderRepo) ListMetrics(ctx context.Context, modelVersionID string) ([]domain.Metric, error) {
	return []domain.Metric{{ID: "m-1", Name: "revenue", Active: true}}, nil
}

func (r *loaderRepo) ListCoefficients(ctx context.Context, modelVersionID string) ([]domain.Coefficient, error) {
	return []domain.Coefficient{{ID: "c-1", Name: "revenue", Value: "0.08", Active: true}}, nil
}

func (r *loaderRepo) ListRules(ctx context.Context, modelVersionID string) ([]*domain.Rule, error) {
	return nil, nil
}

func (r *loaderRepo) ListStateBands(ctx context.Context, tenantID string) ([]domain.StateBand, error) {
	return []domain.StateBand{{Name: "NORMAL", Threshold: 0}}, nil
}

func (r *loaderRepo) ListRestructurings(ctx context.Context, tenantID string) ([]domain.RestructuringBinding, error) {
	return nil, nil
}

func TestResolveByID(t *testing.T) {
	repo := &loaderRepo{
		versions: map[string]*domain.ModelVersion{
			testModelID: {ID: testModelID, TenantID: testTenantID, Name: "baseline", Active: true},
		},
	}
	loader := NewLoader(repo, nil)

	cfg, err := loader.Resolve(context.Background(), testTenantID, testModelID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Version.Name != "baseline" {
		t.Errorf("expected version baseline, got %s", cfg.Version.Name)
	}
	if len(cfg.Metrics) != 1 || cfg.Metrics[0].Name != "revenue" {
		t.Errorf("expected loaded metrics, got %+v", cfg.Metrics)
	}
	if len(cfg.States) != 1 {
		t.Errorf("expected loaded state bands, got %+v", cfg.States)
	}
}

func TestResolveActiveVersion(t *testing.T) {
	repo := &loaderRepo{
		active: &domain.ModelVersion{ID: testModelID, TenantID: testTenantID, Name: "active-model", Active: true},
	}
	loader := NewLoader(repo, nil)

	cfg, err := loader.Resolve(context.Background(), testTenantID, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Version.Name != "active-model" {
		t.Errorf("expected active-model, got %s", cfg.Version.Name)
	}
}

func TestResolveInvalidID(t *testing.T) {
	loader := NewLoader(&loaderRepo{}, nil)

	_, err := loader.Resolve(context.Background(), testTenantID, "not-a-uuid")

	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if resErr.Code != domain.ResolutionInvalidModelVersionID {
		t.Errorf("expected code %s, got %s", domain.ResolutionInvalidModelVersionID, resErr.Code)
	}
}

func TestResolveMissingVersion(t *testing.T) {
	loader := NewLoader(&loaderRepo{versions: map[string]*domain.ModelVersion{}}, nil)

	_, err := loader.Resolve(context.Background(), testTenantID, testModelID)

	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if resErr.Code != domain.ResolutionNoModelVersion {
		t.Errorf("expected code %s, got %s", domain.ResolutionNoModelVersion, resErr.Code)
	}
}

func TestResolveNoActiveVersion(t *testing.T) {
	loader := NewLoader(&loaderRepo{}, nil)

	_, err := loader.Resolve(context.Background(), testTenantID, "")

	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if resErr.Code != domain.ResolutionNoModelVersion {
		t.Errorf("expected code %s, got %s", domain.ResolutionNoModelVersion, resErr.Code)
	}
}

func TestResolveUsesCache(t *testing.T) {
	repo := &loaderRepo{
		versions: map[string]*domain.ModelVersion{
			testModelID: {ID: testModelID, TenantID: testTenantID, Name: "baseline", Active: true},
		},
	}
	loader := NewLoader(repo, cache.NewLRUCache(10))
	ctx := context.Background()

	if _, err := loader.Resolve(ctx, testTenantID, testModelID); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if _, err := loader.Resolve(ctx, testTenantID, testModelID); err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if repo.getCalls != 1 {
		t.Errorf("expected 1 repository read, got %d", repo.getCalls)
	}

	loader.Invalidate(ctx, testTenantID, testModelID)

	if _, err := loader.Resolve(ctx, testTenantID, testModelID); err != nil {
		t.Fatalf("third Resolve failed: %v", err)
	}
	if repo.getCalls != 2 {
		t.Errorf("expected repository read after invalidation, got %d calls", repo.getCalls)
	}
}
