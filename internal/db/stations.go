package db

import (
	"context"
	"fmt"
	"time"

	"weather-telemetry-service/internal/models"
)

const stationColumns = `id, latitude, longitude, elevation, status, last_seen, updated_at`

// ListStations returns every known station.
func (d *DB) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+stationColumns+`
	FROM stations
	ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()
	return collectStations(rows)
}

// ListStaleStations returns stations whose last reading is older than cutoff.
// Stations flagged for maintenance do not count as stale.
func (d *DB) ListStaleStations(ctx context.Context, cutoff time.Time) ([]models.Station, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+stationColumns+`
	FROM stations
	WHERE last_seen < $1 AND status <> 'MAINTENANCE'
	ORDER BY id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale stations: %w", err)
	}
	defer rows.Close()
	return collectStations(rows)
}

// ListFreshStations returns stations that have reported at or after cutoff.
func (d *DB) ListFreshStations(ctx context.Context, cutoff time.Time) ([]models.Station, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT `+stationColumns+`
	FROM stations
	WHERE last_seen >= $1
	ORDER BY id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list fresh stations: %w", err)
	}
	defer rows.Close()
	return collectStations(rows)
}

func collectStations(rows pgRows) ([]models.Station, error) {
	var list []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Latitude, &s.Longitude, &s.Elevation, &s.Status, &s.LastSeen, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
