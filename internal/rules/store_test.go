package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

type fakeSource struct {
	mu    sync.Mutex
	rules []models.AlertConfiguration
	err   error
	calls int
}

func (f *fakeSource) ListEnabledRules(ctx context.Context) ([]models.AlertConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rules, nil
}

func (f *fakeSource) set(rules []models.AlertConfiguration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules, f.err = rules, err
}

func rule(id int64, field string, threshold float64) models.AlertConfiguration {
	return models.AlertConfiguration{
		ID:             id,
		Name:           field,
		FieldName:      field,
		Operator:       ">",
		ThresholdValue: threshold,
		Severity:       models.SeverityWarning,
		Enabled:        true,
	}
}

func TestActive_EmptyBeforeFirstRefresh(t *testing.T) {
	st := New(&fakeSource{}, logging.Discard(), time.Minute)
	if got := st.Active(); len(got) != 0 {
		t.Fatalf("Active before refresh: got %d rules, want 0", len(got))
	}
}

func TestRefresh_ReplacesSnapshot(t *testing.T) {
	src := &fakeSource{rules: []models.AlertConfiguration{rule(1, "temperature", 35)}}
	st := New(src, logging.Discard(), time.Minute)

	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := st.Active()
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("Active: got %+v, want rule 1", got)
	}

	src.set([]models.AlertConfiguration{rule(1, "temperature", 35), rule(2, "humidity", 90)}, nil)
	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := st.Active(); len(got) != 2 {
		t.Fatalf("Active after second refresh: got %d rules, want 2", len(got))
	}
}

func TestRefresh_FailureKeepsStaleSnapshot(t *testing.T) {
	src := &fakeSource{rules: []models.AlertConfiguration{rule(1, "temperature", 35)}}
	st := New(src, logging.Discard(), time.Minute)

	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	src.set(nil, errors.New("db down"))
	if err := st.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh with failing source: expected error")
	}
	if got := st.Active(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("Active after failed refresh: got %+v, want stale rule 1", got)
	}
}

func TestInvalidate_TriggersReload(t *testing.T) {
	src := &fakeSource{}
	st := New(src, logging.Discard(), time.Hour) // ticker effectively never fires

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	st.Start(ctx, &wg)

	src.set([]models.AlertConfiguration{rule(7, "battery_level", 20)}, nil)
	st.Invalidate()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := st.Active(); len(got) == 1 && got[0].ID == 7 {
			cancel()
			wg.Wait()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Invalidate: snapshot not reloaded within deadline")
}
