package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity levels for alert configurations.
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// AlertConfiguration is one threshold rule: trigger an alert when the watched
// reading field satisfies (operator, threshold). (field_name, operator,
// threshold_value) is unique across enabled and disabled rules.
type AlertConfiguration struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	FieldName      string    `json:"field_name"`
	Operator       string    `json:"operator"`
	ThresholdValue float64   `json:"threshold_value"`
	Severity       string    `json:"severity"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
}

var operatorTokens = map[string]string{
	">":  "gt",
	"<":  "lt",
	">=": "gte",
	"<=": "lte",
	"==": "eq",
}

// ValidOperator reports whether op is a supported comparison operator.
func ValidOperator(op string) bool {
	_, ok := operatorTokens[op]
	return ok
}

// ValidSeverity reports whether s is a supported severity level.
func ValidSeverity(s string) bool {
	return s == SeverityWarning || s == SeverityCritical
}

// AlertType derives the alert type key for this rule, e.g. a rule on
// battery_level < 20 yields "battery_level_lt_20". The key identifies the
// dedup slot shared by all alerts the rule raises for one station.
func (c AlertConfiguration) AlertType() string {
	tok := operatorTokens[c.Operator]
	if tok == "" {
		tok = "op"
	}
	return fmt.Sprintf("%s_%s_%s", c.FieldName, tok, FormatThreshold(c.ThresholdValue))
}

// FormatThreshold renders a threshold without trailing zeros (20, not
// 20.000000) so derived alert types stay stable and readable.
func FormatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return strings.ReplaceAll(s, ".", "_")
}
