package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"travel/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db must be set")
	}

	return &PostgresRepository{db: db}
}

type ruleRow struct {
	RuleID         string          `db:"rule_id"`
	RouteID        sql.NullString  `db:"route_id"`
	RuleType       string          `db:"rule_type"`
	Multiplier     decimal.Decimal `db:"multiplier"`
	Active         bool            `db:"active"`
	MinHoursBefore sql.NullInt64   `db:"min_hours_before"`
	MinDaysBefore  sql.NullInt64   `db:"min_days_before"`
	ValidFrom      sql.NullTime    `db:"valid_from"`
	ValidUntil     sql.NullTime    `db:"valid_until"`
}

// ActiveRules returns active rules that are global or scoped to routeID.
func (r *PostgresRepository) ActiveRules(ctx context.Context, routeID string) ([]entity.PricingRule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT
			rule_id, route_id, rule_type, multiplier, active,
			min_hours_before, min_days_before, valid_from, valid_until
		FROM pricing_rules
		WHERE active AND (route_id IS NULL OR route_id = $1)
		ORDER BY rule_id
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("could not get pricing rules: %w", err)
	}

	rules := make([]entity.PricingRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toEntity())
	}

	return rules, nil
}

// Store adds or replaces a rule.
func (r *PostgresRepository) Store(ctx context.Context, rule entity.PricingRule) error {
	row, err := fromEntity(rule)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO pricing_rules (
			rule_id, route_id, rule_type, multiplier, active,
			min_hours_before, min_days_before, valid_from, valid_until
		)
		VALUES (
			:rule_id, :route_id, :rule_type, :multiplier, :active,
			:min_hours_before, :min_days_before, :valid_from, :valid_until
		)
		ON CONFLICT (rule_id) DO UPDATE SET
			route_id = EXCLUDED.route_id,
			rule_type = EXCLUDED.rule_type,
			multiplier = EXCLUDED.multiplier,
			active = EXCLUDED.active,
			min_hours_before = EXCLUDED.min_hours_before,
			min_days_before = EXCLUDED.min_days_before,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until
	`, row)
	if err != nil {
		return fmt.Errorf("could not store pricing rule: %w", err)
	}

	return nil
}

// toEntity decodes the kind-specific columns. A row whose columns do not match
// its type gets no terms, which makes the rule inapplicable.
func (row ruleRow) toEntity() entity.PricingRule {
	rule := entity.PricingRule{
		RuleID:     row.RuleID,
		RouteID:    row.RouteID.String,
		Multiplier: row.Multiplier,
		Active:     row.Active,
	}

	switch entity.RuleKind(row.RuleType) {
	case entity.RuleKindSurge:
		if row.MinHoursBefore.Valid {
			rule.Terms = entity.SurgeTerms{MinHoursBefore: int(row.MinHoursBefore.Int64)}
		}
	case entity.RuleKindEarlyBird:
		if row.MinDaysBefore.Valid {
			rule.Terms = entity.EarlyBirdTerms{MinDaysBefore: int(row.MinDaysBefore.Int64)}
		}
	case entity.RuleKindSeasonal:
		if row.ValidFrom.Valid && row.ValidUntil.Valid {
			rule.Terms = entity.SeasonalTerms{ValidFrom: row.ValidFrom.Time, ValidUntil: row.ValidUntil.Time}
		}
	case entity.RuleKindDiscount:
		rule.Terms = entity.DiscountTerms{}
	}

	return rule
}

func fromEntity(rule entity.PricingRule) (ruleRow, error) {
	row := ruleRow{
		RuleID:     rule.RuleID,
		RouteID:    sql.NullString{String: rule.RouteID, Valid: rule.RouteID != ""},
		Multiplier: rule.Multiplier,
		Active:     rule.Active,
	}

	switch terms := rule.Terms.(type) {
	case entity.SurgeTerms:
		row.MinHoursBefore = sql.NullInt64{Int64: int64(terms.MinHoursBefore), Valid: true}
	case entity.EarlyBirdTerms:
		row.MinDaysBefore = sql.NullInt64{Int64: int64(terms.MinDaysBefore), Valid: true}
	case entity.SeasonalTerms:
		row.ValidFrom = sql.NullTime{Time: terms.ValidFrom, Valid: true}
		row.ValidUntil = sql.NullTime{Time: terms.ValidUntil, Valid: true}
	case entity.DiscountTerms:
	default:
		return ruleRow{}, entity.ValidationError{Field: "terms", Msg: fmt.Sprintf("rule %s has no terms", rule.RuleID)}
	}
	row.RuleType = string(rule.Terms.Kind())

	return row, nil
}
