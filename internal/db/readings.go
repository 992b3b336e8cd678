package db

import (
	"context"
	"fmt"

	"weather-telemetry-service/internal/models"
)

// InsertReading appends one reading to weather_logs and upserts the station
// projection in the same transaction. The insert is idempotent on
// (station_id, timestamp), so redelivered messages are safe; the returned
// bool reports whether a new row was written.
func (d *DB) InsertReading(ctx context.Context, r models.Reading) (bool, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
	INSERT INTO weather_logs (
		station_id, timestamp, temperature, humidity, pressure,
		wind_speed, wind_direction, precipitation, solar_radiation,
		battery_level, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (station_id, timestamp) DO NOTHING`,
		r.StationID,
		r.Timestamp,
		r.Temperature,
		r.Humidity,
		r.Pressure,
		r.WindSpeed,
		r.WindDirection,
		r.Precipitation,
		r.SolarRadiation,
		r.BatteryLevel,
		r.Status,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert reading: %w", err)
	}
	inserted := tag.RowsAffected() > 0

	// The station projection is an explicit write here, not a DB trigger.
	// Status only moves forward in reading time: a redelivered older reading
	// must not regress it.
	_, err = tx.Exec(ctx, `
	INSERT INTO stations (id, status, last_seen, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (id) DO UPDATE SET
		status = CASE WHEN EXCLUDED.last_seen >= stations.last_seen
		              THEN EXCLUDED.status ELSE stations.status END,
		last_seen  = GREATEST(stations.last_seen, EXCLUDED.last_seen),
		updated_at = NOW()`,
		r.StationID, r.Status, r.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert station: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit reading: %w", err)
	}
	return inserted, nil
}

// LatestReading returns the most recent reading for a station, or nil.
func (d *DB) LatestReading(ctx context.Context, stationID string) (*models.Reading, error) {
	row := d.Pool.QueryRow(ctx, `
	SELECT station_id, timestamp, temperature, humidity, pressure,
	       wind_speed, wind_direction, precipitation, solar_radiation,
	       battery_level, status
	FROM weather_logs
	WHERE station_id = $1
	ORDER BY timestamp DESC
	LIMIT 1`, stationID)

	var r models.Reading
	err := row.Scan(
		&r.StationID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.Pressure,
		&r.WindSpeed, &r.WindDirection, &r.Precipitation, &r.SolarRadiation,
		&r.BatteryLevel, &r.Status,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return &r, nil
}
