// Package alerts owns the alert lifecycle: NEW on first breach, ACTIVE once
// notified, RESOLVED when the breach clears. No other component writes alert
// state.
package alerts

import (
	"context"
	"fmt"
	"time"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/metrics"
	"weather-telemetry-service/internal/models"
)

// Repo is the slice of the persistence boundary the manager needs. The
// partial unique index on (station_id, alert_type) for open rows backs
// InsertOpenAlert: under concurrent workers exactly one insert wins and the
// losers see inserted=false.
type Repo interface {
	GetOpenAlert(ctx context.Context, stationID, alertType string) (*models.Alert, error)
	InsertOpenAlert(ctx context.Context, a models.Alert) (models.Alert, bool, error)
	RefreshOpenAlert(ctx context.Context, stationID, alertType string, value float64, ts time.Time) (*models.Alert, error)
	MarkAlertActive(ctx context.Context, id int64) error
	ResolveAlert(ctx context.Context, stationID, alertType string, at time.Time) (*models.Alert, error)
}

// Notifier delivers a finalized alert to one destination. Failures are
// isolated per notifier and never roll back a state transition.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert models.Alert) error
}

// Manager applies alert events to the store and fans out notifications.
type Manager struct {
	repo      Repo
	logger    *logging.Logger
	notifiers []Notifier
	timeout   time.Duration
	debounce  time.Duration
	now       func() time.Time
}

func New(repo Repo, logger *logging.Logger, timeout, debounce time.Duration) *Manager {
	return &Manager{
		repo:     repo,
		logger:   logger,
		timeout:  timeout,
		debounce: debounce,
		now:      time.Now,
	}
}

// Register adds a notifier. Not safe to call after the consumers start.
func (m *Manager) Register(n Notifier) {
	m.notifiers = append(m.notifiers, n)
	m.logger.Infof("Registered notifier: %s", n.Name())
}

// HandleEvent applies one TRIGGER or CLEAR to the alert for
// (event.StationID, event.AlertType). Returned errors are transient
// persistence failures; the caller retries the message.
func (m *Manager) HandleEvent(ctx context.Context, ev models.AlertEvent) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	switch ev.Action {
	case models.ActionTrigger:
		return m.handleTrigger(ctx, ev)
	case models.ActionClear:
		return m.handleClear(ctx, ev)
	default:
		m.logger.Warnf("Unknown alert event action %q for %s/%s", ev.Action, ev.StationID, ev.AlertType)
		return nil
	}
}

func (m *Manager) handleTrigger(ctx context.Context, ev models.AlertEvent) error {
	alert, inserted, err := m.repo.InsertOpenAlert(ctx, models.Alert{
		StationID:      ev.StationID,
		AlertType:      ev.AlertType,
		AlertMessage:   ev.Message,
		AlertValue:     ev.Value,
		ThresholdValue: ev.Threshold,
		Severity:       ev.Severity,
		Timestamp:      ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("trigger %s/%s: %w", ev.StationID, ev.AlertType, err)
	}

	if !inserted {
		// An open row already exists (ongoing breach, or we lost the insert
		// race to another worker); refresh value/timestamp only.
		existing, err := m.repo.RefreshOpenAlert(ctx, ev.StationID, ev.AlertType, ev.Value, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("refresh %s/%s: %w", ev.StationID, ev.AlertType, err)
		}
		if existing == nil {
			// Resolved between insert and refresh; the next breach opens a
			// fresh row.
			return nil
		}
		if existing.Status != models.AlertStatusNew {
			return nil
		}
		// A NEW row whose notification failed earlier: retry now.
		alert = *existing
	} else {
		m.logger.Infof("Alert opened: station=%s type=%s value=%v threshold=%v",
			alert.StationID, alert.AlertType, alert.AlertValue, alert.ThresholdValue)
	}

	if !m.dispatch(ctx, alert) {
		// Stays NEW; the next TRIGGER for this key retries notification.
		m.logger.Warnf("All notifiers failed for %s/%s, alert stays NEW", alert.StationID, alert.AlertType)
		return nil
	}
	if err := m.repo.MarkAlertActive(ctx, alert.ID); err != nil {
		return fmt.Errorf("activate %s/%s: %w", alert.StationID, alert.AlertType, err)
	}
	return nil
}

func (m *Manager) handleClear(ctx context.Context, ev models.AlertEvent) error {
	if m.debounce > 0 {
		open, err := m.repo.GetOpenAlert(ctx, ev.StationID, ev.AlertType)
		if err != nil {
			return fmt.Errorf("clear %s/%s: %w", ev.StationID, ev.AlertType, err)
		}
		if open != nil && m.now().Sub(open.Timestamp) < m.debounce {
			// Breach was seen too recently; hold the alert open to damp
			// flapping around the threshold.
			return nil
		}
	}

	resolved, err := m.repo.ResolveAlert(ctx, ev.StationID, ev.AlertType, m.now().UTC())
	if err != nil {
		return fmt.Errorf("resolve %s/%s: %w", ev.StationID, ev.AlertType, err)
	}
	if resolved == nil {
		// Nothing open: a concurrent worker resolved it first, or the alert
		// never existed. Either way the store already reflects the fact.
		return nil
	}

	m.logger.Infof("Alert resolved: station=%s type=%s", resolved.StationID, resolved.AlertType)
	// Exactly one resolution notification; a failure here is logged but the
	// transition stands.
	m.dispatch(ctx, *resolved)
	return nil
}

// dispatch fans the alert out to every registered notifier and reports
// whether delivery counts as successful (at least one notifier succeeded, or
// none are registered).
func (m *Manager) dispatch(ctx context.Context, alert models.Alert) bool {
	if len(m.notifiers) == 0 {
		return true
	}
	delivered := false
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			m.logger.Errorf("Notifier %s failed for %s/%s: %v", n.Name(), alert.StationID, alert.AlertType, err)
			continue
		}
		delivered = true
	}
	if delivered {
		metrics.AlertsSent.WithLabelValues(alert.Severity).Inc()
	}
	return delivered
}
