package models

import "time"

// Station is the liveness/location projection maintained as a side effect of
// reading ingestion. Rows are upserted by the consumer, never created by a
// client. Position (latitude, longitude, elevation) is provisioning data
// seeded directly into the stations table; readings carry no position, so
// the ingestion path never touches these columns.
type Station struct {
	ID        string     `json:"id"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Elevation *float64   `json:"elevation,omitempty"`
	Status    string     `json:"status"`
	LastSeen  time.Time  `json:"last_seen"`
	UpdatedAt time.Time  `json:"updated_at"`
}
