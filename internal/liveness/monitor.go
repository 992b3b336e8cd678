// Package liveness raises STATION_NOT_REPORTING alerts for stations that
// have gone quiet. It reuses the alert lifecycle manager's dedup and state
// machine instead of keeping its own bookkeeping.
package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

// StationSource lists stations by last-seen recency.
type StationSource interface {
	ListStaleStations(ctx context.Context, cutoff time.Time) ([]models.Station, error)
	ListFreshStations(ctx context.Context, cutoff time.Time) ([]models.Station, error)
}

// EventSink applies alert events; in production this is the lifecycle manager.
type EventSink interface {
	HandleEvent(ctx context.Context, ev models.AlertEvent) error
}

// Monitor scans station last-seen timestamps on a fixed timer. Scans run
// synchronously inside the tick loop, so two scans never overlap; ticks that
// land mid-scan are dropped by the ticker.
type Monitor struct {
	stations StationSource
	sink     EventSink
	logger   *logging.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

func New(stations StationSource, sink EventSink, logger *logging.Logger, interval, window time.Duration) *Monitor {
	return &Monitor{
		stations: stations,
		sink:     sink,
		logger:   logger,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// Start runs the scan loop until ctx is cancelled. An in-progress scan always
// completes before the loop exits.
func (m *Monitor) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.logger.Infof("Liveness monitor started: interval=%s window=%s", m.interval, m.window)
		for {
			select {
			case <-ctx.Done():
				m.logger.Infof("Liveness monitor stopped")
				return
			case <-ticker.C:
				if err := m.Scan(ctx); err != nil {
					m.logger.Errorf("Liveness scan failed: %v", err)
				}
			}
		}
	}()
}

// Scan synthesizes TRIGGER events for silent stations and CLEAR events for
// stations that have resumed reporting.
func (m *Monitor) Scan(ctx context.Context) error {
	now := m.now().UTC()
	cutoff := now.Add(-m.window)

	stale, err := m.stations.ListStaleStations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale stations: %w", err)
	}
	for _, st := range stale {
		silent := now.Sub(st.LastSeen)
		ev := models.AlertEvent{
			StationID: st.ID,
			AlertType: models.AlertTypeNotReporting,
			Action:    models.ActionTrigger,
			Value:     silent.Minutes(),
			Threshold: m.window.Minutes(),
			Severity:  models.SeverityCritical,
			Message: fmt.Sprintf("station %s has not reported for %s (last seen %s)",
				st.ID, silent.Round(time.Second), st.LastSeen.Format(time.RFC3339)),
			Timestamp: now,
		}
		if err := m.sink.HandleEvent(ctx, ev); err != nil {
			m.logger.Errorf("Liveness trigger for %s failed: %v", st.ID, err)
		}
	}

	fresh, err := m.stations.ListFreshStations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list fresh stations: %w", err)
	}
	for _, st := range fresh {
		ev := models.AlertEvent{
			StationID: st.ID,
			AlertType: models.AlertTypeNotReporting,
			Action:    models.ActionClear,
			Value:     now.Sub(st.LastSeen).Minutes(),
			Threshold: m.window.Minutes(),
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("station %s is reporting again", st.ID),
			Timestamp: now,
		}
		if err := m.sink.HandleEvent(ctx, ev); err != nil {
			m.logger.Errorf("Liveness clear for %s failed: %v", st.ID, err)
		}
	}

	m.logger.Debugf("Liveness scan complete: %d stale, %d fresh", len(stale), len(fresh))
	return nil
}
