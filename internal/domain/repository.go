// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for configuration and result
// persistence. All tenant-scoped methods require tenantID for strict
// multi-tenancy isolation. The engine itself never touches the
// repository; the loader reads through it once per evaluation and hands
// the engine an immutable ModelConfig.
type Repository interface {
	// Model version operations
	SaveModelVersion(ctx context.Context, tenantID string, mv *ModelVersion) error
	GetModelVersion(ctx context.Context, id string) (*ModelVersion, error)
	GetActiveModelVersion(ctx context.Context, tenantID string) (*ModelVersion, error)
	ListModelVersions(ctx context.Context, tenantID string) ([]*ModelVersion, error)
	ActivateModelVersion(ctx context.Context, tenantID string, id string) error

	// Model configuration children
	SaveMetric(ctx context.Context, tenantID string, m *Metric) error
	ListMetrics(ctx context.Context, modelVersionID string) ([]Metric, error)
	SaveCoefficient(ctx context.Context, tenantID string, c *Coefficient) error
	ListCoefficients(ctx context.Context, modelVersionID string) ([]Coefficient, error)

	// Rule operations; ListRules returns rules with their active
	// conditions and impacts populated, in stable load order.
	SaveRule(ctx context.Context, tenantID string, rule *Rule) error
	GetRule(ctx context.Context, tenantID string, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, modelVersionID string) ([]*Rule, error)
	SaveRuleCondition(ctx context.Context, tenantID string, cond *RuleCondition) error
	SaveRuleImpact(ctx context.Context, tenantID string, imp *RuleImpact) error

	// State classification configuration
	SaveStateDefinition(ctx context.Context, tenantID string, sd *StateDefinition) error
	ListStateDefinitions(ctx context.Context, tenantID string) ([]StateDefinition, error)
	SaveStateThreshold(ctx context.Context, tenantID string, st *StateThreshold) error
	ListStateBands(ctx context.Context, tenantID string) ([]StateBand, error)

	// Restructuring configuration
	SaveRestructuringTemplate(ctx context.Context, tenantID string, t *RestructuringTemplate) error
	ListRestructuringTemplates(ctx context.Context, tenantID string) ([]RestructuringTemplate, error)
	SaveRestructuringRule(ctx context.Context, tenantID string, r *RestructuringRule) error
	ListRestructurings(ctx context.Context, tenantID string) ([]RestructuringBinding, error)

	// Snapshot persistence (the engine hands snapshots to the caller;
	// the caller stores them here)
	SaveSnapshot(ctx context.Context, tenantID string, snap *Snapshot) error
	GetSnapshot(ctx context.Context, tenantID string, snapshotID string) (*Snapshot, error)

	// Session operations
	SaveSession(ctx context.Context, tenantID string, s *Session) error
	GetSession(ctx context.Context, tenantID string, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, tenantID string) ([]*Session, error)
	UpdateSessionSnapshot(ctx context.Context, tenantID string, sessionID string, payload []byte) error

	// Audit log
	SaveAuditEntry(ctx context.Context, entry *AuditEntry) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
