package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, tenantID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, tenantID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, tenantID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "tenant-a", "shared-key", []byte("a-value"), time.Minute)
		_ = cache.Set(ctx, "tenant-b", "shared-key", []byte("b-value"), time.Minute)

		valA, _ := cache.Get(ctx, "tenant-a", "shared-key")
		valB, _ := cache.Get(ctx, "tenant-b", "shared-key")

		if string(valA) != "a-value" {
			t.Errorf("expected 'a-value', got '%s'", string(valA))
		}
		if string(valB) != "b-value" {
			t.Errorf("expected 'b-value', got '%s'", string(valB))
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for missing tenantID")
		}
		if err := cache.Set(ctx, "", "key", []byte("v"), time.Minute); err == nil {
			t.Error("expected error for missing tenantID")
		}
	})
}

func TestLRUEviction(t *testing.T) {
	cache := NewLRUCache(3)
	ctx := context.Background()
	tenantID := "tenant-001"

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key%d", i)
		_ = cache.Set(ctx, tenantID, key, []byte("v"), time.Minute)
	}

	// Touch key0 so key1 becomes the oldest
	_, _ = cache.Get(ctx, tenantID, "key0")

	_ = cache.Set(ctx, tenantID, "key3", []byte("v"), time.Minute)

	if val, _ := cache.Get(ctx, tenantID, "key1"); val != nil {
		t.Error("expected key1 to be evicted")
	}
	if val, _ := cache.Get(ctx, tenantID, "key0"); val == nil {
		t.Error("expected key0 to survive eviction")
	}

	size, capacity := cache.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected size 3 capacity 3, got %d/%d", size, capacity)
	}
}

func TestLRUModelConfig(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"
	modelID := "mv-001"

	cfg := &domain.ModelConfig{
		Version: domain.ModelVersion{ID: modelID, Name: "baseline", Active: true},
		Metrics: []domain.Metric{{ID: "m-1", Name: "revenue", Active: true}},
		Coefficients: []domain.Coefficient{
			{ID: "c-1", Name: "revenue", Value: "0.08", Active: true},
		},
	}

	if err := cache.SetModelConfig(ctx, tenantID, modelID, cfg, time.Minute); err != nil {
		t.Fatalf("SetModelConfig failed: %v", err)
	}

	got, err := cache.GetModelConfig(ctx, tenantID, modelID)
	if err != nil {
		t.Fatalf("GetModelConfig failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached config")
	}
	if got.Version.Name != "baseline" {
		t.Errorf("expected version name baseline, got %s", got.Version.Name)
	}
	if len(got.Coefficients) != 1 || got.Coefficients[0].Value != "0.08" {
		t.Errorf("unexpected coefficients: %+v", got.Coefficients)
	}

	if err := cache.InvalidateModelConfig(ctx, tenantID, modelID); err != nil {
		t.Fatalf("InvalidateModelConfig failed: %v", err)
	}

	got, err = cache.GetModelConfig(ctx, tenantID, modelID)
	if err != nil {
		t.Fatalf("GetModelConfig failed: %v", err)
	}
	if got != nil {
		t.Error("expected miss after invalidation")
	}
}

func TestLRUIncrementCounter(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	for want := int64(1); want <= 3; want++ {
		got, err := cache.IncrementCounter(ctx, tenantID, "runs", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("expected counter %d, got %d", want, got)
		}
	}

	t.Run("WindowReset", func(t *testing.T) {
		_, _ = cache.IncrementCounter(ctx, tenantID, "windowed", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		got, err := cache.IncrementCounter(ctx, tenantID, "windowed", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != 1 {
			t.Errorf("expected counter reset to 1, got %d", got)
		}
	})
}

func TestNewFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
