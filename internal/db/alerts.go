package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"weather-telemetry-service/internal/models"
)

const alertColumns = `id, uid, station_id, alert_type, alert_message, alert_value,
	threshold_value, severity, timestamp, status, created_at, resolved_at`

// GetOpenAlerts returns the NEW/ACTIVE alerts for one station.
func (d *DB) GetOpenAlerts(ctx context.Context, stationID string) ([]models.Alert, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+alertColumns+`
	FROM weather_alerts
	WHERE station_id = $1 AND status IN ('NEW', 'ACTIVE')`, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetOpenAlert returns the NEW/ACTIVE alert for the key, or nil.
func (d *DB) GetOpenAlert(ctx context.Context, stationID, alertType string) (*models.Alert, error) {
	row := d.Pool.QueryRow(ctx, `
	SELECT `+alertColumns+`
	FROM weather_alerts
	WHERE station_id = $1 AND alert_type = $2 AND status IN ('NEW', 'ACTIVE')`,
		stationID, alertType)

	a, err := scanAlert(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open alert: %w", err)
	}
	return &a, nil
}

// InsertOpenAlert creates a NEW alert row unless an open row for the same
// (station_id, alert_type) already exists. The partial unique index is the
// authority: a lost race comes back as inserted=false, never as an error.
func (d *DB) InsertOpenAlert(ctx context.Context, a models.Alert) (models.Alert, bool, error) {
	if a.UID == uuid.Nil {
		a.UID = uuid.New()
	}
	row := d.Pool.QueryRow(ctx, `
	INSERT INTO weather_alerts (
		uid, station_id, alert_type, alert_message, alert_value,
		threshold_value, severity, timestamp, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'NEW', NOW())
	ON CONFLICT (station_id, alert_type) WHERE status IN ('NEW', 'ACTIVE') DO NOTHING
	RETURNING id, created_at`,
		a.UID, a.StationID, a.AlertType, a.AlertMessage, a.AlertValue,
		a.ThresholdValue, a.Severity, a.Timestamp,
	)
	err := row.Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Alert{}, false, nil
		}
		return models.Alert{}, false, fmt.Errorf("failed to insert alert: %w", err)
	}
	a.Status = models.AlertStatusNew
	return a, true, nil
}

// RefreshOpenAlert updates value/timestamp on the open alert for the key and
// returns the refreshed row, or nil when no open alert exists.
func (d *DB) RefreshOpenAlert(ctx context.Context, stationID, alertType string, value float64, ts time.Time) (*models.Alert, error) {
	row := d.Pool.QueryRow(ctx, `
	UPDATE weather_alerts
	SET alert_value = $3, timestamp = $4
	WHERE station_id = $1 AND alert_type = $2 AND status IN ('NEW', 'ACTIVE')
	RETURNING `+alertColumns, stationID, alertType, value, ts)

	a, err := scanAlert(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to refresh alert: %w", err)
	}
	return &a, nil
}

// MarkAlertActive promotes a NEW alert to ACTIVE after notification.
func (d *DB) MarkAlertActive(ctx context.Context, id int64) error {
	_, err := d.Pool.Exec(ctx, `
	UPDATE weather_alerts SET status = 'ACTIVE'
	WHERE id = $1 AND status = 'NEW'`, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert active: %w", err)
	}
	return nil
}

// ResolveAlert closes the open alert for the key and returns the resolved
// row, or nil when nothing was open (resolving twice is a no-op).
func (d *DB) ResolveAlert(ctx context.Context, stationID, alertType string, at time.Time) (*models.Alert, error) {
	row := d.Pool.QueryRow(ctx, `
	UPDATE weather_alerts
	SET status = 'RESOLVED', resolved_at = $3
	WHERE station_id = $1 AND alert_type = $2 AND status IN ('NEW', 'ACTIVE')
	RETURNING `+alertColumns, stationID, alertType, at)

	a, err := scanAlert(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return &a, nil
}

// ListAlerts returns alerts with optional station/status filters, newest
// first, plus the unpaged total.
func (d *DB) ListAlerts(ctx context.Context, stationID, status string, limit, offset int) ([]models.Alert, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if stationID != "" {
		args = append(args, stationID)
		where += fmt.Sprintf(" AND station_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM weather_alerts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
	SELECT `+alertColumns+`
	FROM weather_alerts %s
	ORDER BY created_at DESC
	LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID, &a.UID, &a.StationID, &a.AlertType, &a.AlertMessage,
		&a.AlertValue, &a.ThresholdValue, &a.Severity, &a.Timestamp,
		&a.Status, &a.CreatedAt, &a.ResolvedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return models.Alert{}, err
		}
		return models.Alert{}, fmt.Errorf("failed to scan alert: %w", err)
	}
	return a, nil
}
