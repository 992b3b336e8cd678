package db

import (
	"context"
	"fmt"

	"weather-telemetry-service/internal/models"
)

const ruleColumns = `id, name, field_name, operator, threshold_value, severity, enabled, created_at`

// ListEnabledRules returns the active rule set ordered by severity then
// insertion, so every snapshot refresh yields the same evaluation and event
// order.
func (d *DB) ListEnabledRules(ctx context.Context) ([]models.AlertConfiguration, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+ruleColumns+`
	FROM alert_configurations
	WHERE enabled = TRUE
	ORDER BY CASE severity WHEN 'WARNING' THEN 1 WHEN 'CRITICAL' THEN 2 ELSE 3 END, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListRules returns all rules, enabled or not, for the admin API.
func (d *DB) ListRules(ctx context.Context) ([]models.AlertConfiguration, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+ruleColumns+`
	FROM alert_configurations
	ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// GetRule returns one rule by id, or nil.
func (d *DB) GetRule(ctx context.Context, id int64) (*models.AlertConfiguration, error) {
	row := d.Pool.QueryRow(ctx, `
	SELECT `+ruleColumns+`
	FROM alert_configurations
	WHERE id = $1`, id)

	var c models.AlertConfiguration
	err := row.Scan(&c.ID, &c.Name, &c.FieldName, &c.Operator, &c.ThresholdValue, &c.Severity, &c.Enabled, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &c, nil
}

// CreateRule inserts a rule; a (field_name, operator, threshold_value)
// collision comes back as ErrDuplicateRule.
func (d *DB) CreateRule(ctx context.Context, c models.AlertConfiguration) (models.AlertConfiguration, error) {
	row := d.Pool.QueryRow(ctx, `
	INSERT INTO alert_configurations (name, field_name, operator, threshold_value, severity, enabled, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING id, created_at`,
		c.Name, c.FieldName, c.Operator, c.ThresholdValue, c.Severity, c.Enabled,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.AlertConfiguration{}, ErrDuplicateRule
		}
		return models.AlertConfiguration{}, fmt.Errorf("failed to create rule: %w", err)
	}
	return c, nil
}

// UpdateRule rewrites a rule in place; reports whether the row existed.
func (d *DB) UpdateRule(ctx context.Context, c models.AlertConfiguration) (bool, error) {
	tag, err := d.Pool.Exec(ctx, `
	UPDATE alert_configurations
	SET name = $2, field_name = $3, operator = $4, threshold_value = $5, severity = $6, enabled = $7
	WHERE id = $1`,
		c.ID, c.Name, c.FieldName, c.Operator, c.ThresholdValue, c.Severity, c.Enabled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateRule
		}
		return false, fmt.Errorf("failed to update rule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteRule removes a rule; reports whether the row existed.
func (d *DB) DeleteRule(ctx context.Context, id int64) (bool, error) {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM alert_configurations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

type pgRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func collectRules(rows pgRows) ([]models.AlertConfiguration, error) {
	var list []models.AlertConfiguration
	for rows.Next() {
		var c models.AlertConfiguration
		if err := rows.Scan(&c.ID, &c.Name, &c.FieldName, &c.Operator, &c.ThresholdValue, &c.Severity, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
