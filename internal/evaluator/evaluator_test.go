package evaluator

import (
	"testing"
	"time"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

func f(v float64) *float64 { return &v }

func reading(station string) models.Reading {
	return models.Reading{
		StationID: station,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    models.StationActive,
	}
}

func rule(id int64, field, op string, threshold float64, severity string) models.AlertConfiguration {
	return models.AlertConfiguration{
		ID:             id,
		Name:           field + "_rule",
		FieldName:      field,
		Operator:       op,
		ThresholdValue: threshold,
		Severity:       severity,
		Enabled:        true,
	}
}

func TestEvaluate_BatteryScenario(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.BatteryLevel = f(15)

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "battery_level", "<", 20, models.SeverityWarning),
	}, nil)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Action != models.ActionTrigger {
		t.Errorf("Action: got %s, want TRIGGER", ev.Action)
	}
	if ev.AlertType != "battery_level_lt_20" {
		t.Errorf("AlertType: got %q, want battery_level_lt_20", ev.AlertType)
	}
	if ev.StationID != "S1" || ev.Value != 15 || ev.Threshold != 20 {
		t.Errorf("event fields: %+v", ev)
	}
	if ev.Severity != models.SeverityWarning {
		t.Errorf("Severity: got %s, want WARNING", ev.Severity)
	}
}

func TestEvaluate_ExactThresholdNoImplicitEpsilon(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.Temperature = f(35.0)

	// temperature > 35 must not trigger at exactly 35.0.
	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "temperature", ">", 35, models.SeverityCritical),
	}, nil)
	if len(events) != 0 {
		t.Fatalf("> at boundary: got %d events, want 0", len(events))
	}

	// temperature >= 35 does.
	events = e.Evaluate(r, []models.AlertConfiguration{
		rule(2, "temperature", ">=", 35, models.SeverityCritical),
	}, nil)
	if len(events) != 1 || events[0].Action != models.ActionTrigger {
		t.Fatalf(">= at boundary: got %+v, want one TRIGGER", events)
	}
}

func TestEvaluate_EqualityOperator(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.WindSpeed = f(0)

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "wind_speed", "==", 0, models.SeverityWarning),
	}, nil)
	if len(events) != 1 {
		t.Fatalf("==: got %d events, want 1", len(events))
	}
}

func TestEvaluate_ClearOnOpenAlert(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.BatteryLevel = f(80)

	cfg := rule(1, "battery_level", "<", 20, models.SeverityWarning)
	open := map[string]models.Alert{
		cfg.AlertType(): {StationID: "S1", AlertType: cfg.AlertType(), Status: models.AlertStatusActive},
	}

	events := e.Evaluate(r, []models.AlertConfiguration{cfg}, open)
	if len(events) != 1 || events[0].Action != models.ActionClear {
		t.Fatalf("got %+v, want one CLEAR", events)
	}
}

func TestEvaluate_NoClearWithoutOpenAlert(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.BatteryLevel = f(80)

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "battery_level", "<", 20, models.SeverityWarning),
	}, nil)
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestEvaluate_IndependentEventsPerField(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.Temperature = f(50)
	r.Humidity = f(95)

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "temperature", ">", 40, models.SeverityCritical),
		rule(2, "humidity", ">", 90, models.SeverityWarning),
	}, nil)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 independent triggers", len(events))
	}
	types := map[string]bool{}
	for _, ev := range events {
		types[ev.AlertType] = true
	}
	if !types["temperature_gt_40"] || !types["humidity_gt_90"] {
		t.Errorf("alert types: %v", types)
	}
}

func TestEvaluate_AbsentFieldSkipped(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1") // no sensor fields set

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "temperature", ">", 40, models.SeverityCritical),
	}, nil)
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0 for absent field", len(events))
	}
}

func TestEvaluate_UnknownFieldRuleSkipped(t *testing.T) {
	e := New(logging.Discard())
	r := reading("S1")
	r.Temperature = f(50)

	events := e.Evaluate(r, []models.AlertConfiguration{
		rule(1, "dew_point", ">", 10, models.SeverityWarning),
		rule(2, "temperature", ">", 40, models.SeverityCritical),
	}, nil)
	if len(events) != 1 || events[0].AlertType != "temperature_gt_40" {
		t.Fatalf("got %+v, want the temperature trigger only", events)
	}
}

func TestAlertType_ThresholdFormatting(t *testing.T) {
	cases := []struct {
		threshold float64
		want      string
	}{
		{20, "battery_level_lt_20"},
		{20.5, "battery_level_lt_20_5"},
		{-10, "battery_level_lt_-10"},
	}
	for _, tc := range cases {
		c := models.AlertConfiguration{FieldName: "battery_level", Operator: "<", ThresholdValue: tc.threshold}
		if got := c.AlertType(); got != tc.want {
			t.Errorf("AlertType(%v): got %q, want %q", tc.threshold, got, tc.want)
		}
	}
}
