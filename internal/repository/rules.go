package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lynixmail/internal/models"
)

type RuleRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ActiveForEvent returns the authoritative rule for an event type plus its
// template. When several active rules exist for the same event type the most
// recently created one wins. Returns ErrNoRule when nothing matches and
// ErrTemplateMissing when the matched rule's template reference dangles.
func (r *RuleRepository) ActiveForEvent(ctx context.Context, eventType string) (*models.AutomationRule, *models.EmailTemplate, error) {
	query := r.sb.
		Select("id", "event_type", "template_id", "is_active", "conditions", "created_at", "updated_at").
		From("email_automation_rules").
		Where(sq.Eq{"event_type": eventType, "is_active": true}).
		OrderBy("created_at DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build active rule sql: %w", err)
	}

	var (
		rule       models.AutomationRule
		conditions []byte
	)
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(
		&rule.ID,
		&rule.EventType,
		&rule.TemplateID,
		&rule.IsActive,
		&conditions,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoRule
		}
		return nil, nil, fmt.Errorf("query active rule: %w", err)
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, nil, fmt.Errorf("decode rule conditions: %w", err)
		}
	}

	tmpl, err := r.templateByID(ctx, rule.TemplateID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrTemplateMissing
		}
		return nil, nil, err
	}

	return &rule, tmpl, nil
}

func (r *RuleRepository) templateByID(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	query := r.sb.
		Select("id", "name", "subject", "content", "created_at", "updated_at").
		From("email_templates").
		Where(sq.Eq{"id": id}).
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build template sql: %w", err)
	}

	var t models.EmailTemplate
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(
		&t.ID,
		&t.Name,
		&t.Subject,
		&t.Content,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	return &t, nil
}

// TemplateForRule resolves the template a rule currently points at. Retries
// deliberately use the current template, not a snapshot from trigger time.
func (r *RuleRepository) TemplateForRule(ctx context.Context, ruleID int64) (*models.EmailTemplate, error) {
	query := r.sb.
		Select("t.id", "t.name", "t.subject", "t.content", "t.created_at", "t.updated_at").
		From("email_automation_rules r").
		Join("email_templates t ON t.id = r.template_id").
		Where(sq.Eq{"r.id": ruleID}).
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build template for rule sql: %w", err)
	}

	var t models.EmailTemplate
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(
		&t.ID,
		&t.Name,
		&t.Subject,
		&t.Content,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateMissing
		}
		return nil, fmt.Errorf("get template for rule: %w", err)
	}

	return &t, nil
}

// List returns every rule joined with its template name, newest first.
func (r *RuleRepository) List(ctx context.Context) ([]models.RuleSummary, error) {
	query := r.sb.
		Select(
			"r.id", "r.event_type", "r.template_id", "r.is_active", "r.conditions",
			"r.created_at", "r.updated_at",
			"COALESCE(t.name, '')",
		).
		From("email_automation_rules r").
		LeftJoin("email_templates t ON t.id = r.template_id").
		OrderBy("r.created_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rules sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []models.RuleSummary
	for rows.Next() {
		var (
			s          models.RuleSummary
			conditions []byte
		)
		if err := rows.Scan(
			&s.ID,
			&s.EventType,
			&s.TemplateID,
			&s.IsActive,
			&conditions,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.TemplateName,
		); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &s.Conditions); err != nil {
				return nil, fmt.Errorf("decode rule conditions: %w", err)
			}
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// Create inserts a rule and fills in its generated fields.
func (r *RuleRepository) Create(ctx context.Context, rule *models.AutomationRule) error {
	if rule.Conditions == nil {
		rule.Conditions = map[string]any{}
	}
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}

	query := r.sb.
		Insert("email_automation_rules").
		Columns("event_type", "template_id", "is_active", "conditions", "created_at", "updated_at").
		Values(rule.EventType, rule.TemplateID, rule.IsActive, conditions, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id, created_at, updated_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build create rule sql: %w", err)
	}

	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}

	return nil
}

// Update applies a partial update. fields keys are column names; unknown
// columns are the caller's bug and surface as a database error.
func (r *RuleRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if c, ok := fields["conditions"]; ok {
		encoded, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode rule conditions: %w", err)
		}
		fields["conditions"] = encoded
	}

	query := r.sb.
		Update("email_automation_rules").
		SetMap(fields).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update rule sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	query := r.sb.
		Delete("email_automation_rules").
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build delete rule sql: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
