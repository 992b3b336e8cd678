// Package validator checks raw telemetry records against the physical ranges
// of each sensor field. Validation is pure: no I/O, safe for concurrent use.
package validator

import (
	"fmt"
	"time"

	"weather-telemetry-service/internal/models"
)

// Rejection reasons returned for expected-bad input. Only a truly unexpected
// decode failure should surface as an error elsewhere; everything here is a
// value, never a panic.
const (
	ReasonMissingField    = "MISSING_FIELD"
	ReasonOutOfRange      = "OUT_OF_RANGE"
	ReasonMalformed       = "MALFORMED"
	ReasonFutureTimestamp = "FUTURE_TIMESTAMP"
)

// Rejection describes why a raw record was refused.
type Rejection struct {
	Reason string
	Field  string
	Detail string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s field=%s %s", r.Reason, r.Field, r.Detail)
}

type fieldRange struct {
	name string
	min  float64
	max  float64
	get  func(models.RawReading) *float64
}

var ranges = []fieldRange{
	{"temperature", -80, 60, func(r models.RawReading) *float64 { return r.Temperature }},
	{"humidity", 0, 100, func(r models.RawReading) *float64 { return r.Humidity }},
	{"pressure", 800, 1200, func(r models.RawReading) *float64 { return r.Pressure }},
	{"wind_speed", 0, 200, func(r models.RawReading) *float64 { return r.WindSpeed }},
	{"precipitation", 0, 500, func(r models.RawReading) *float64 { return r.Precipitation }},
	{"solar_radiation", 0, 1500, func(r models.RawReading) *float64 { return r.SolarRadiation }},
	{"battery_level", 0, 100, func(r models.RawReading) *float64 { return r.BatteryLevel }},
}

// Validator normalizes raw telemetry into Readings.
type Validator struct {
	skew time.Duration
	now  func() time.Time
}

// New returns a Validator tolerating timestamps up to skew in the future.
func New(skew time.Duration) *Validator {
	return &Validator{skew: skew, now: time.Now}
}

// Validate returns the normalized Reading, or a Rejection explaining why the
// record is refused. Out-of-range values are rejected, not clamped.
func (v *Validator) Validate(raw models.RawReading) (models.Reading, *Rejection) {
	if raw.StationID == "" {
		return models.Reading{}, &Rejection{Reason: ReasonMissingField, Field: "station_id"}
	}
	if raw.Timestamp == "" {
		return models.Reading{}, &Rejection{Reason: ReasonMissingField, Field: "timestamp"}
	}

	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return models.Reading{}, &Rejection{
			Reason: ReasonMalformed,
			Field:  "timestamp",
			Detail: fmt.Sprintf("not RFC3339: %q", raw.Timestamp),
		}
	}
	ts = ts.UTC()

	if ts.After(v.now().Add(v.skew)) {
		return models.Reading{}, &Rejection{
			Reason: ReasonFutureTimestamp,
			Field:  "timestamp",
			Detail: fmt.Sprintf("timestamp %s is in the future", ts.Format(time.RFC3339)),
		}
	}

	for _, fr := range ranges {
		val := fr.get(raw)
		if val == nil {
			continue
		}
		if *val < fr.min || *val > fr.max {
			return models.Reading{}, &Rejection{
				Reason: ReasonOutOfRange,
				Field:  fr.name,
				Detail: fmt.Sprintf("%v outside [%v, %v]", *val, fr.min, fr.max),
			}
		}
	}

	status := raw.Status
	if status == "" {
		status = models.StationActive
	}
	switch status {
	case models.StationActive, models.StationInactive, models.StationMaintenance:
	default:
		return models.Reading{}, &Rejection{
			Reason: ReasonMalformed,
			Field:  "status",
			Detail: fmt.Sprintf("unknown status %q", raw.Status),
		}
	}

	return models.Reading{
		StationID:      raw.StationID,
		Timestamp:      ts,
		Temperature:    raw.Temperature,
		Humidity:       raw.Humidity,
		Pressure:       raw.Pressure,
		WindSpeed:      raw.WindSpeed,
		WindDirection:  raw.WindDirection,
		Precipitation:  raw.Precipitation,
		SolarRadiation: raw.SolarRadiation,
		BatteryLevel:   raw.BatteryLevel,
		Status:         status,
	}, nil
}
