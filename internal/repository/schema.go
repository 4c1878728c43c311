package repository

// Schema definitions for the Kestrel configuration store.
// Compatible with both SQLite and PostgreSQL.

const schemaModelVersions = `
CREATE TABLE IF NOT EXISTS model_versions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_versions_tenant ON model_versions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_model_versions_active ON model_versions(tenant_id, active);
`

const schemaMetrics = `
CREATE TABLE IF NOT EXISTS metrics (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    model_version_id TEXT NOT NULL,
    name TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_model ON metrics(model_version_id);
`

const schemaCoefficients = `
CREATE TABLE IF NOT EXISTS coefficients (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    model_version_id TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coefficients_model ON coefficients(model_version_id);
`

const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    model_version_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_model ON rules(model_version_id);
CREATE INDEX IF NOT EXISTS idx_rules_tenant ON rules(tenant_id);
`

const schemaRuleConditions = `
CREATE TABLE IF NOT EXISTS rule_conditions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    expression TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_conditions_rule ON rule_conditions(rule_id);
`

const schemaRuleImpacts = `
CREATE TABLE IF NOT EXISTS rule_impacts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    impact TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_impacts_rule ON rule_impacts(rule_id);
`

const schemaStateDefinitions = `
CREATE TABLE IF NOT EXISTS state_definitions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    severity_rank INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_state_definitions_tenant ON state_definitions(tenant_id);
`

const schemaStateThresholds = `
CREATE TABLE IF NOT EXISTS state_thresholds (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    state_definition_id TEXT NOT NULL,
    threshold TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_state_thresholds_tenant ON state_thresholds(tenant_id);
`

const schemaRestructuring = `
CREATE TABLE IF NOT EXISTS restructuring_templates (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    payload TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_restructuring_templates_tenant ON restructuring_templates(tenant_id);

CREATE TABLE IF NOT EXISTS restructuring_rules (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    template_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_restructuring_rules_tenant ON restructuring_rules(tenant_id);
`

const schemaSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    model_version_id TEXT NOT NULL,
    state TEXT NOT NULL,
    total_score REAL NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_tenant ON snapshots(tenant_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_model ON snapshots(tenant_id, model_version_id);
`

const schemaSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    model_version_id TEXT NOT NULL,
    name TEXT,
    snapshot TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_tenant ON sessions(tenant_id);
`

const schemaAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    tenant_id TEXT,
    actor TEXT,
    action TEXT NOT NULL,
    payload TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_tenant ON audit_log(tenant_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaModelVersions,
		schemaMetrics,
		schemaCoefficients,
		schemaRules,
		schemaRuleConditions,
		schemaRuleImpacts,
		schemaStateDefinitions,
		schemaStateThresholds,
		schemaRestructuring,
		schemaSnapshots,
		schemaSessions,
		schemaAuditLog,
	}
}
