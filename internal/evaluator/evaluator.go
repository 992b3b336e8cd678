// Package evaluator maps one reading plus the active rule set onto alert
// events. It is stateless per call: the open-alert snapshot for the station
// is passed in by the caller, which makes evaluation trivially testable and
// safe to run from any number of workers.
package evaluator

import (
	"fmt"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

type Evaluator struct {
	logger *logging.Logger
}

func New(logger *logging.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate applies each rule to the reading and returns TRIGGER events for
// breaches and CLEAR events for open alerts whose rule no longer matches.
// open is keyed by alert_type. A TRIGGER on an already-open alert is handled
// downstream as a value/timestamp refresh, never a duplicate notification;
// the lifecycle manager owns that dedup. Comparisons use the rule's operator
// exactly, with no epsilon and no hysteresis.
func (e *Evaluator) Evaluate(reading models.Reading, rules []models.AlertConfiguration, open map[string]models.Alert) []models.AlertEvent {
	var events []models.AlertEvent

	for _, rule := range rules {
		if !models.KnownField(rule.FieldName) {
			// Skip the bad rule, keep evaluating the rest.
			e.logger.Warnf("Rule %q watches unknown field %q, skipping", rule.Name, rule.FieldName)
			continue
		}
		value, present := reading.Field(rule.FieldName)
		if !present {
			continue
		}

		alertType := rule.AlertType()
		breached, ok := compare(value, rule.Operator, rule.ThresholdValue)
		if !ok {
			e.logger.Warnf("Rule %q has unsupported operator %q, skipping", rule.Name, rule.Operator)
			continue
		}

		if breached {
			events = append(events, models.AlertEvent{
				StationID: reading.StationID,
				AlertType: alertType,
				Action:    models.ActionTrigger,
				Value:     value,
				Threshold: rule.ThresholdValue,
				Severity:  rule.Severity,
				Message:   fmt.Sprintf("%s: %v %s %v", rule.Name, value, rule.Operator, rule.ThresholdValue),
				Timestamp: reading.Timestamp,
			})
			continue
		}

		if _, isOpen := open[alertType]; isOpen {
			events = append(events, models.AlertEvent{
				StationID: reading.StationID,
				AlertType: alertType,
				Action:    models.ActionClear,
				Value:     value,
				Threshold: rule.ThresholdValue,
				Severity:  rule.Severity,
				Message:   fmt.Sprintf("%s: cleared, %v no longer %s %v", rule.Name, value, rule.Operator, rule.ThresholdValue),
				Timestamp: reading.Timestamp,
			})
		}
	}

	return events
}

func compare(value float64, op string, threshold float64) (breached, ok bool) {
	switch op {
	case ">":
		return value > threshold, true
	case "<":
		return value < threshold, true
	case ">=":
		return value >= threshold, true
	case "<=":
		return value <= threshold, true
	case "==":
		return value == threshold, true
	default:
		return false, false
	}
}
