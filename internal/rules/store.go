// Package rules caches the enabled alert configurations. Consumer workers
// read the snapshot lock-free; a background loop replaces it wholesale on a
// timer or after an administrative change.
package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/metrics"
	"weather-telemetry-service/internal/models"
)

// Source is the persistence boundary the store reads through.
type Source interface {
	ListEnabledRules(ctx context.Context) ([]models.AlertConfiguration, error)
}

// Store serves the last successfully loaded rule snapshot. A failed reload
// keeps the stale snapshot and logs a warning; readers are never blocked and
// never observe a partially updated set.
type Store struct {
	source   Source
	logger   *logging.Logger
	interval time.Duration

	snapshot atomic.Pointer[[]models.AlertConfiguration]
	kick     chan struct{}
}

func New(source Source, logger *logging.Logger, interval time.Duration) *Store {
	s := &Store{
		source:   source,
		logger:   logger,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
	empty := []models.AlertConfiguration{}
	s.snapshot.Store(&empty)
	return s
}

// Active returns the current snapshot: enabled rules ordered ascending by
// severity then insertion. The returned slice must not be mutated.
func (s *Store) Active() []models.AlertConfiguration {
	return *s.snapshot.Load()
}

// Refresh reloads the snapshot from the source once.
func (s *Store) Refresh(ctx context.Context) error {
	rules, err := s.source.ListEnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh rule snapshot: %w", err)
	}
	if rules == nil {
		rules = []models.AlertConfiguration{}
	}
	s.snapshot.Store(&rules)
	metrics.RuleSnapshotSize.Set(float64(len(rules)))
	s.logger.Debugf("Rule snapshot refreshed: %d enabled rules", len(rules))
	return nil
}

// Invalidate requests an immediate reload; called by the admin API after a
// configuration change. Non-blocking.
func (s *Store) Invalidate() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Start runs the refresh loop until ctx is cancelled.
func (s *Store) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Infof("Rule store stopped")
				return
			case <-ticker.C:
			case <-s.kick:
			}
			if err := s.Refresh(ctx); err != nil {
				// Stale-but-available: keep serving the last good snapshot.
				s.logger.Warnf("Rule refresh failed, serving stale snapshot: %v", err)
			}
		}
	}()
}
