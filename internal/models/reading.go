package models

import "time"

// Station operational status values carried on readings.
const (
	StationActive      = "ACTIVE"
	StationInactive    = "INACTIVE"
	StationMaintenance = "MAINTENANCE"
)

// RawReading is the wire shape of one telemetry message as published by a
// station. Sensor fields are pointers so that absent and zero are
// distinguishable.
type RawReading struct {
	StationID      string   `json:"station_id"`
	Timestamp      string   `json:"timestamp"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	Pressure       *float64 `json:"pressure,omitempty"`
	WindSpeed      *float64 `json:"wind_speed,omitempty"`
	WindDirection  *string  `json:"wind_direction,omitempty"`
	Precipitation  *float64 `json:"precipitation,omitempty"`
	SolarRadiation *float64 `json:"solar_radiation,omitempty"`
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// Reading is one validated, normalized telemetry record. Readings are
// append-only: created once by the ingestion consumer, never mutated.
type Reading struct {
	StationID      string     `json:"station_id"`
	Timestamp      time.Time  `json:"timestamp"`
	Temperature    *float64   `json:"temperature,omitempty"`
	Humidity       *float64   `json:"humidity,omitempty"`
	Pressure       *float64   `json:"pressure,omitempty"`
	WindSpeed      *float64   `json:"wind_speed,omitempty"`
	WindDirection  *string    `json:"wind_direction,omitempty"`
	Precipitation  *float64   `json:"precipitation,omitempty"`
	SolarRadiation *float64   `json:"solar_radiation,omitempty"`
	BatteryLevel   *float64   `json:"battery_level,omitempty"`
	Status         string     `json:"status"`
}

// ReadingFields lists the numeric sensor fields a rule may watch.
var ReadingFields = []string{
	"temperature",
	"humidity",
	"pressure",
	"wind_speed",
	"precipitation",
	"solar_radiation",
	"battery_level",
}

// Field returns the named numeric sensor value and whether it is present on
// this reading.
func (r Reading) Field(name string) (float64, bool) {
	var v *float64
	switch name {
	case "temperature":
		v = r.Temperature
	case "humidity":
		v = r.Humidity
	case "pressure":
		v = r.Pressure
	case "wind_speed":
		v = r.WindSpeed
	case "precipitation":
		v = r.Precipitation
	case "solar_radiation":
		v = r.SolarRadiation
	case "battery_level":
		v = r.BatteryLevel
	default:
		return 0, false
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// KnownField reports whether name is a sensor field rules may reference.
func KnownField(name string) bool {
	for _, f := range ReadingFields {
		if f == name {
			return true
		}
	}
	return false
}
