// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveModelVersion stores or updates a model version.
func (r *SQLRepository) SaveModelVersion(ctx context.Context, tenantID string, mv *domain.ModelVersion) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&mv.ID)
	now := time.Now().UTC()
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = now
	}
	mv.UpdatedAt = now
	mv.TenantID = tenantID

	query := `
		INSERT INTO model_versions (id, tenant_id, name, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		mv.ID, tenantID, mv.Name, mv.Description, boolToInt(mv.Active), mv.CreatedAt, mv.UpdatedAt,
	)
	return err
}

// GetModelVersion retrieves a model version by ID.
func (r *SQLRepository) GetModelVersion(ctx context.Context, id string) (*domain.ModelVersion, error) {
	query := `
		SELECT id, tenant_id, name, description, active, created_at, updated_at
		FROM model_versions
		WHERE id = ?
	`
	return r.scanModelVersion(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// GetActiveModelVersion retrieves the unique active model version for a
// tenant. The most recently updated active version wins if several are
// flagged active.
func (r *SQLRepository) GetActiveModelVersion(ctx context.Context, tenantID string) (*domain.ModelVersion, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, name, description, active, created_at, updated_at
		FROM model_versions
		WHERE tenant_id = ? AND active = 1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.scanModelVersion(r.db.QueryRowContext(ctx, r.rebind(query), tenantID))
}

func (r *SQLRepository) scanModelVersion(row *sql.Row) (*domain.ModelVersion, error) {
	var mv domain.ModelVersion
	var description sql.NullString
	var active int

	err := row.Scan(&mv.ID, &mv.TenantID, &mv.Name, &description, &active, &mv.CreatedAt, &mv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	mv.Description = description.String
	mv.Active = active == 1
	return &mv, nil
}

// ListModelVersions retrieves all model versions for a tenant.
func (r *SQLRepository) ListModelVersions(ctx context.Context, tenantID string) ([]*domain.ModelVersion, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, name, description, active, created_at, updated_at
		FROM model_versions
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*domain.ModelVersion
	for rows.Next() {
		var mv domain.ModelVersion
		var description sql.NullString
		var active int
		if err := rows.Scan(&mv.ID, &mv.TenantID, &mv.Name, &description, &active, &mv.CreatedAt, &mv.UpdatedAt); err != nil {
			return nil, err
		}
		mv.Description = description.String
		mv.Active = active == 1
		versions = append(versions, &mv)
	}
	return versions, rows.Err()
}

// ActivateModelVersion flags one model version active and deactivates
// every other version owned by the tenant, preserving the "exactly one
// active configuration" invariant.
func (r *SQLRepository) ActivateModelVersion(ctx context.Context, tenantID string, id string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	deactivate := `UPDATE model_versions SET active = 0, updated_at = ? WHERE tenant_id = ? AND id != ?`
	if _, err := r.db.ExecContext(ctx, r.rebind(deactivate), now, tenantID, id); err != nil {
		return err
	}

	activate := `UPDATE model_versions SET active = 1, updated_at = ? WHERE tenant_id = ? AND id = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(activate), now, tenantID, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMetric stores a declared metric.
func (r *SQLRepository) SaveMetric(ctx context.Context, tenantID string, m *domain.Metric) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&m.ID)
	m.TenantID = tenantID

	query := `
		INSERT INTO metrics (id, tenant_id, model_version_id, name, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		m.ID, tenantID, m.ModelVersionID, m.Name, boolToInt(m.Active), time.Now().UTC(),
	)
	return err
}

// ListMetrics retrieves the active metrics declared by a model version.
func (r *SQLRepository) ListMetrics(ctx context.Context, modelVersionID string) ([]domain.Metric, error) {
	query := `
		SELECT id, tenant_id, model_version_id, name
		FROM metrics
		WHERE model_version_id = ? AND active = 1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), modelVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []domain.Metric
	for rows.Next() {
		m := domain.Metric{Active: true}
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ModelVersionID, &m.Name); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// SaveCoefficient stores a coefficient.
func (r *SQLRepository) SaveCoefficient(ctx context.Context, tenantID string, c *domain.Coefficient) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&c.ID)
	c.TenantID = tenantID

	query := `
		INSERT INTO coefficients (id, tenant_id, model_version_id, name, value, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			value = excluded.value,
			active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, tenantID, c.ModelVersionID, c.Name, c.Value, boolToInt(c.Active), time.Now().UTC(),
	)
	return err
}

// ListCoefficients retrieves the active coefficients of a model version.
func (r *SQLRepository) ListCoefficients(ctx context.Context, modelVersionID string) ([]domain.Coefficient, error) {
	query := `
		SELECT id, tenant_id, model_version_id, name, value
		FROM coefficients
		WHERE model_version_id = ? AND active = 1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), modelVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coefficients []domain.Coefficient
	for rows.Next() {
		c := domain.Coefficient{Active: true}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ModelVersionID, &c.Name, &c.Value); err != nil {
			return nil, err
		}
		coefficients = append(coefficients, c)
	}
	return coefficients, rows.Err()
}

// SaveRule stores a rule together with any attached conditions and
// impacts.
func (r *SQLRepository) SaveRule(ctx context.Context, tenantID string, rule *domain.Rule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&rule.ID)
	rule.TenantID = tenantID

	query := `
		INSERT INTO rules (id, tenant_id, model_version_id, name, description, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.ModelVersionID, rule.Name, rule.Description, boolToInt(rule.Active), time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	for i := range rule.Conditions {
		rule.Conditions[i].RuleID = rule.ID
		if err := r.SaveRuleCondition(ctx, tenantID, &rule.Conditions[i]); err != nil {
			return err
		}
	}
	for i := range rule.Impacts {
		rule.Impacts[i].RuleID = rule.ID
		if err := r.SaveRuleImpact(ctx, tenantID, &rule.Impacts[i]); err != nil {
			return err
		}
	}
	return nil
}

// SaveRuleCondition stores one rule condition.
func (r *SQLRepository) SaveRuleCondition(ctx context.Context, tenantID string, cond *domain.RuleCondition) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&cond.ID)
	cond.TenantID = tenantID

	query := `
		INSERT INTO rule_conditions (id, tenant_id, rule_id, expression, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			expression = excluded.expression,
			active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		cond.ID, tenantID, cond.RuleID, cond.Expression, boolToInt(cond.Active), time.Now().UTC(),
	)
	return err
}

// SaveRuleImpact stores one rule impact.
func (r *SQLRepository) SaveRuleImpact(ctx context.Context, tenantID string, imp *domain.RuleImpact) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&imp.ID)
	imp.TenantID = tenantID

	query := `
		INSERT INTO rule_impacts (id, tenant_id, rule_id, impact, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			impact = excluded.impact,
			active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		imp.ID, tenantID, imp.RuleID, imp.Impact, boolToInt(imp.Active), time.Now().UTC(),
	)
	return err
}

// GetRule retrieves one rule with its active conditions and impacts.
func (r *SQLRepository) GetRule(ctx context.Context, tenantID string, ruleID string) (*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, model_version_id, name, description, active
		FROM rules
		WHERE tenant_id = ? AND id = ?
	`
	var rule domain.Rule
	var description sql.NullString
	var active int
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.ModelVersionID, &rule.Name, &description, &active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rule.Description = description.String
	rule.Active = active == 1

	if err := r.attachRuleChildren(ctx, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules retrieves the active rules of a model version, each with
// its active conditions and impacts, in stable load order.
func (r *SQLRepository) ListRules(ctx context.Context, modelVersionID string) ([]*domain.Rule, error) {
	query := `
		SELECT id, tenant_id, model_version_id, name, description
		FROM rules
		WHERE model_version_id = ? AND active = 1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), modelVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule := domain.Rule{Active: true}
		var description sql.NullString
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.ModelVersionID, &rule.Name, &description); err != nil {
			return nil, err
		}
		rule.Description = description.String
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if err := r.attachRuleChildren(ctx, rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (r *SQLRepository) attachRuleChildren(ctx context.Context, rule *domain.Rule) error {
	condQuery := `
		SELECT id, tenant_id, rule_id, expression
		FROM rule_conditions
		WHERE rule_id = ? AND active = 1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(condQuery), rule.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		c := domain.RuleCondition{Active: true}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.RuleID, &c.Expression); err != nil {
			rows.Close()
			return err
		}
		rule.Conditions = append(rule.Conditions, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	impQuery := `
		SELECT id, tenant_id, rule_id, impact
		FROM rule_impacts
		WHERE rule_id = ? AND active = 1
		ORDER BY created_at, id
	`
	rows, err = r.db.QueryContext(ctx, r.rebind(impQuery), rule.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		imp := domain.RuleImpact{Active: true}
		if err := rows.Scan(&imp.ID, &imp.TenantID, &imp.RuleID, &imp.Impact); err != nil {
			return err
		}
		rule.Impacts = append(rule.Impacts, imp)
	}
	return rows.Err()
}

// SaveStateDefinition stores a state definition.
func (r *SQLRepository) SaveStateDefinition(ctx context.Context, tenantID string, sd *domain.StateDefinition) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&sd.ID)
	sd.TenantID = tenantID

	query := `
		INSERT INTO state_definitions (id, tenant_id, name, description, severity_rank, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			severity_rank = excluded.severity_rank
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		sd.ID, tenantID, sd.Name, sd.Description, sd.SeverityRank, time.Now().UTC(),
	)
	return err
}

// ListStateDefinitions retrieves a tenant's state definitions.
func (r *SQLRepository) ListStateDefinitions(ctx context.Context, tenantID string) ([]domain.StateDefinition, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, name, description, severity_rank
		FROM state_definitions
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.StateDefinition
	for rows.Next() {
		var sd domain.StateDefinition
		var description sql.NullString
		if err := rows.Scan(&sd.ID, &sd.TenantID, &sd.Name, &description, &sd.SeverityRank); err != nil {
			return nil, err
		}
		sd.Description = description.String
		defs = append(defs, sd)
	}
	return defs, rows.Err()
}

// SaveStateThreshold stores a state threshold.
func (r *SQLRepository) SaveStateThreshold(ctx context.Context, tenantID string, st *domain.StateThreshold) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&st.ID)
	st.TenantID = tenantID

	query := `
		INSERT INTO state_thresholds (id, tenant_id, state_definition_id, threshold, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			threshold = excluded.threshold
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		st.ID, tenantID, st.StateDefinitionID, st.Threshold, time.Now().UTC(),
	)
	return err
}

// ListStateBands joins a tenant's thresholds with their state
// definitions. Thresholds whose text is not parsable as a float are
// skipped rather than failing the load.
func (r *SQLRepository) ListStateBands(ctx context.Context, tenantID string) ([]domain.StateBand, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT sd.name, st.threshold, sd.severity_rank
		FROM state_thresholds st
		JOIN state_definitions sd ON sd.id = st.state_definition_id
		WHERE st.tenant_id = ? AND sd.tenant_id = ?
		ORDER BY st.created_at, st.id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bands []domain.StateBand
	for rows.Next() {
		var name, raw string
		var rank int
		if err := rows.Scan(&name, &raw, &rank); err != nil {
			return nil, err
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		bands = append(bands, domain.StateBand{Name: name, Threshold: threshold, SeverityRank: rank})
	}
	return bands, rows.Err()
}

// SaveRestructuringTemplate stores a restructuring template.
func (r *SQLRepository) SaveRestructuringTemplate(ctx context.Context, tenantID string, t *domain.RestructuringTemplate) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&t.ID)
	t.TenantID = tenantID

	query := `
		INSERT INTO restructuring_templates (id, tenant_id, name, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		t.ID, tenantID, t.Name, string(t.Payload), time.Now().UTC(),
	)
	return err
}

// ListRestructuringTemplates retrieves a tenant's templates.
func (r *SQLRepository) ListRestructuringTemplates(ctx context.Context, tenantID string) ([]domain.RestructuringTemplate, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, name, payload
		FROM restructuring_templates
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.RestructuringTemplate
	for rows.Next() {
		var t domain.RestructuringTemplate
		var payload sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &payload); err != nil {
			return nil, err
		}
		if payload.String != "" {
			t.Payload = json.RawMessage(payload.String)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SaveRestructuringRule stores a restructuring rule.
func (r *SQLRepository) SaveRestructuringRule(ctx context.Context, tenantID string, rr *domain.RestructuringRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&rr.ID)
	rr.TenantID = tenantID

	query := `
		INSERT INTO restructuring_rules (id, tenant_id, template_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_id = excluded.template_id
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rr.ID, tenantID, rr.TemplateID, time.Now().UTC(),
	)
	return err
}

// ListRestructurings joins a tenant's restructuring rules with their
// templates. Rules pointing at missing templates are skipped.
func (r *SQLRepository) ListRestructurings(ctx context.Context, tenantID string) ([]domain.RestructuringBinding, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT rr.id, rt.id, rt.tenant_id, rt.name, rt.payload
		FROM restructuring_rules rr
		JOIN restructuring_templates rt ON rt.id = rr.template_id
		WHERE rr.tenant_id = ?
		ORDER BY rr.created_at, rr.id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []domain.RestructuringBinding
	for rows.Next() {
		var b domain.RestructuringBinding
		var payload sql.NullString
		if err := rows.Scan(&b.RuleID, &b.Template.ID, &b.Template.TenantID, &b.Template.Name, &payload); err != nil {
			return nil, err
		}
		if payload.String != "" {
			b.Template.Payload = json.RawMessage(payload.String)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// SaveSnapshot stores an evaluation snapshot. The full body is stored
// as JSON alongside extracted columns for querying.
func (r *SQLRepository) SaveSnapshot(ctx context.Context, tenantID string, snap *domain.Snapshot) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if snap.ID == "" {
		return fmt.Errorf("%w: snapshot ID is required", ErrInvalidInput)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapshots (id, tenant_id, model_version_id, state, total_score, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, r.rebind(query),
		snap.ID, tenantID, snap.ModelVersion.ID, snap.State, snap.Breakdown.TotalScore, string(body), snap.CreatedAt,
	)
	return err
}

// GetSnapshot retrieves a stored snapshot by ID.
func (r *SQLRepository) GetSnapshot(ctx context.Context, tenantID string, snapshotID string) (*domain.Snapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT body
		FROM snapshots
		WHERE tenant_id = ? AND id = ?
	`
	var body string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, snapshotID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSession stores an evaluation session.
func (r *SQLRepository) SaveSession(ctx context.Context, tenantID string, s *domain.Session) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	ensureID(&s.ID)
	s.TenantID = tenantID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, tenant_id, model_version_id, name, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, tenantID, s.ModelVersionID, s.Name, string(s.Snapshot), s.CreatedAt,
	)
	return err
}

// GetSession retrieves a session by ID.
func (r *SQLRepository) GetSession(ctx context.Context, tenantID string, sessionID string) (*domain.Session, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, model_version_id, name, snapshot, created_at
		FROM sessions
		WHERE tenant_id = ? AND id = ?
	`
	var s domain.Session
	var name, snapshot sql.NullString
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, sessionID).Scan(
		&s.ID, &s.TenantID, &s.ModelVersionID, &name, &snapshot, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Name = name.String
	if snapshot.String != "" {
		s.Snapshot = []byte(snapshot.String)
	}
	return &s, nil
}

// ListSessions retrieves a tenant's sessions, newest first.
func (r *SQLRepository) ListSessions(ctx context.Context, tenantID string) ([]*domain.Session, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `
		SELECT id, tenant_id, model_version_id, name, snapshot, created_at
		FROM sessions
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var s domain.Session
		var name, snapshot sql.NullString
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ModelVersionID, &name, &snapshot, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Name = name.String
		if snapshot.String != "" {
			s.Snapshot = []byte(snapshot.String)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// UpdateSessionSnapshot replaces a session's packed snapshot history.
func (r *SQLRepository) UpdateSessionSnapshot(ctx context.Context, tenantID string, sessionID string, payload []byte) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	query := `UPDATE sessions SET snapshot = ? WHERE tenant_id = ? AND id = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), string(payload), tenantID, sessionID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAuditEntry appends one audit log record.
func (r *SQLRepository) SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	ensureID(&entry.ID)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (id, tenant_id, actor, action, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entry.ID, entry.TenantID, entry.Actor, entry.Action, string(entry.Payload), entry.CreatedAt,
	)
	return err
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
