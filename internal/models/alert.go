package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert lifecycle states. RESOLVED is terminal: a later breach opens a fresh
// row rather than reopening a resolved one.
const (
	AlertStatusNew      = "NEW"
	AlertStatusActive   = "ACTIVE"
	AlertStatusResolved = "RESOLVED"
)

// AlertTypeNotReporting is the synthetic alert type raised by the station
// liveness monitor.
const AlertTypeNotReporting = "STATION_NOT_REPORTING"

// Alert is a stateful record of an ongoing or past rule breach for a station.
// At most one NEW or ACTIVE alert exists per (station_id, alert_type); the
// partial unique index in the database enforces this across workers.
type Alert struct {
	ID             int64      `json:"id"`
	UID            uuid.UUID  `json:"uid"`
	StationID      string     `json:"station_id"`
	AlertType      string     `json:"alert_type"`
	AlertMessage   string     `json:"alert_message"`
	AlertValue     float64    `json:"alert_value"`
	ThresholdValue float64    `json:"threshold_value"`
	Severity       string     `json:"severity"`
	Timestamp      time.Time  `json:"timestamp"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// AlertEvent actions produced by the evaluator and the liveness monitor.
const (
	ActionTrigger = "TRIGGER"
	ActionClear   = "CLEAR"
)

// AlertEvent is one evaluation outcome handed to the alert lifecycle manager.
type AlertEvent struct {
	StationID string    `json:"station_id"`
	AlertType string    `json:"alert_type"`
	Action    string    `json:"action"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
