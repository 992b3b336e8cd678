package kafka

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"weather-telemetry-service/internal/evaluator"
	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
	"weather-telemetry-service/internal/validator"
)

type fakeStore struct {
	readings []models.Reading
	open     []models.Alert
	insErr   error
	insCalls int
}

func (f *fakeStore) InsertReading(ctx context.Context, r models.Reading) (bool, error) {
	f.insCalls++
	if f.insErr != nil {
		return false, f.insErr
	}
	for _, existing := range f.readings {
		if existing.StationID == r.StationID && existing.Timestamp.Equal(r.Timestamp) {
			return false, nil
		}
	}
	f.readings = append(f.readings, r)
	return true, nil
}

func (f *fakeStore) GetOpenAlerts(ctx context.Context, stationID string) ([]models.Alert, error) {
	return f.open, nil
}

type staticRules []models.AlertConfiguration

func (s staticRules) Active() []models.AlertConfiguration { return s }

type fakeSink struct {
	events []models.AlertEvent
	err    error
}

func (f *fakeSink) HandleEvent(ctx context.Context, ev models.AlertEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeCommitter struct {
	commits int
	err     error
}

func (f *fakeCommitter) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.commits += len(msgs)
	return nil
}

type fakeDLQ struct {
	written []kafka.Message
	err     error
}

func (f *fakeDLQ) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeDLQ) Close() error { return nil }

func newTestConsumer(store *fakeStore, rules staticRules, sink *fakeSink) *Consumer {
	return &Consumer{
		cfg:       Config{Topic: "weather.readings", MaxAttempts: 3, RetryDelay: time.Millisecond},
		commits:   &fakeCommitter{},
		dlq:       &fakeDLQ{},
		validator: validator.New(2 * time.Minute),
		evaluator: evaluator.New(logging.Discard()),
		store:     store,
		rules:     rules,
		sink:      sink,
		logger:    logging.Discard(),
	}
}

func payload(station string, ts time.Time, battery float64) []byte {
	return []byte(`{"station_id":"` + station + `","timestamp":"` + ts.Format(time.RFC3339) + `","battery_level":` +
		strconv.FormatFloat(battery, 'f', -1, 64) + `}`)
}

func batteryRule() models.AlertConfiguration {
	return models.AlertConfiguration{
		ID:             1,
		Name:           "low_battery",
		FieldName:      "battery_level",
		Operator:       "<",
		ThresholdValue: 20,
		Severity:       models.SeverityWarning,
		Enabled:        true,
	}
}

func TestHandle_ValidMessagePersistsAndTriggers(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	c := newTestConsumer(store, staticRules{batteryRule()}, sink)

	ts := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	if err := c.handle(context.Background(), "req-1", payload("S1", ts, 15)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.readings) != 1 {
		t.Fatalf("persisted readings: got %d, want 1", len(store.readings))
	}
	if len(sink.events) != 1 {
		t.Fatalf("alert events: got %d, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Action != models.ActionTrigger || ev.AlertType != "battery_level_lt_20" {
		t.Errorf("event: %+v", ev)
	}
}

func TestHandle_MalformedPayloadAckedNotRetried(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	c := newTestConsumer(store, nil, sink)

	if err := c.handle(context.Background(), "req-1", []byte("{not json")); err != nil {
		t.Fatalf("malformed payload must not return an error (would block the queue): %v", err)
	}
	if len(store.readings) != 0 {
		t.Errorf("malformed payload persisted")
	}
}

func TestHandle_OutOfRangeRejectedNeverPersisted(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	c := newTestConsumer(store, nil, sink)

	ts := time.Now().UTC().Add(-time.Minute)
	body := []byte(`{"station_id":"S1","timestamp":"` + ts.Format(time.RFC3339) + `","temperature":65}`)
	if err := c.handle(context.Background(), "req-1", body); err != nil {
		t.Fatalf("rejection must not return an error: %v", err)
	}
	if len(store.readings) != 0 {
		t.Errorf("out-of-range reading persisted")
	}
}

func TestHandle_RedeliveryIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	c := newTestConsumer(store, nil, sink)

	ts := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	body := payload("S1", ts, 50)
	if err := c.handle(context.Background(), "req-1", body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := c.handle(context.Background(), "req-2", body); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(store.readings) != 1 {
		t.Fatalf("persisted readings after redelivery: got %d, want 1", len(store.readings))
	}
}

func TestHandle_TransientStoreErrorPropagates(t *testing.T) {
	store := &fakeStore{insErr: errors.New("db unavailable")}
	sink := &fakeSink{}
	c := newTestConsumer(store, nil, sink)

	ts := time.Now().UTC().Add(-time.Minute)
	if err := c.handle(context.Background(), "req-1", payload("S1", ts, 50)); err == nil {
		t.Fatal("expected transient error to propagate for retry")
	}
}

func TestHandle_SinkErrorPropagates(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{err: errors.New("alert store down")}
	c := newTestConsumer(store, staticRules{batteryRule()}, sink)

	ts := time.Now().UTC().Add(-time.Minute)
	if err := c.handle(context.Background(), "req-1", payload("S1", ts, 15)); err == nil {
		t.Fatal("expected sink error to propagate for retry")
	}
}

func TestHandle_ClearFlowsFromOpenAlert(t *testing.T) {
	rule := batteryRule()
	store := &fakeStore{
		open: []models.Alert{{
			StationID: "S1",
			AlertType: rule.AlertType(),
			Status:    models.AlertStatusActive,
		}},
	}
	sink := &fakeSink{}
	c := newTestConsumer(store, staticRules{rule}, sink)

	ts := time.Now().UTC().Add(-time.Minute)
	if err := c.handle(context.Background(), "req-1", payload("S1", ts, 90)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0].Action != models.ActionClear {
		t.Fatalf("events: %+v, want one CLEAR", sink.events)
	}
}

func TestProcess_SuccessCommitsWithoutDeadLetter(t *testing.T) {
	store := &fakeStore{}
	c := newTestConsumer(store, nil, &fakeSink{})
	com := c.commits.(*fakeCommitter)
	dlq := c.dlq.(*fakeDLQ)

	ts := time.Now().UTC().Add(-time.Minute)
	c.process(context.Background(), kafka.Message{Value: payload("S1", ts, 50)})

	if store.insCalls != 1 {
		t.Errorf("handle attempts: got %d, want 1", store.insCalls)
	}
	if len(dlq.written) != 0 {
		t.Errorf("dead-lettered messages: got %d, want 0", len(dlq.written))
	}
	if com.commits != 1 {
		t.Errorf("commits: got %d, want 1", com.commits)
	}
}

func TestProcess_ExhaustedRetriesDeadLettersThenCommits(t *testing.T) {
	store := &fakeStore{insErr: errors.New("db unavailable")}
	c := newTestConsumer(store, nil, &fakeSink{})
	com := c.commits.(*fakeCommitter)
	dlq := c.dlq.(*fakeDLQ)

	ts := time.Now().UTC().Add(-time.Minute)
	c.process(context.Background(), kafka.Message{Value: payload("S1", ts, 50)})

	if store.insCalls != c.cfg.MaxAttempts {
		t.Errorf("handle attempts: got %d, want %d", store.insCalls, c.cfg.MaxAttempts)
	}
	if len(dlq.written) != 1 {
		t.Fatalf("dead-lettered messages: got %d, want 1", len(dlq.written))
	}
	var source string
	for _, h := range dlq.written[0].Headers {
		if h.Key == "x-dead-letter-source" {
			source = string(h.Value)
		}
	}
	if source != c.cfg.Topic {
		t.Errorf("x-dead-letter-source: got %q, want %q", source, c.cfg.Topic)
	}
	if com.commits != 1 {
		t.Errorf("commits: got %d, want 1 (dead-lettered message is acked)", com.commits)
	}
}

func TestProcess_DeadLetterFailureLeavesUncommitted(t *testing.T) {
	store := &fakeStore{insErr: errors.New("db unavailable")}
	c := newTestConsumer(store, nil, &fakeSink{})
	com := c.commits.(*fakeCommitter)
	c.dlq = &fakeDLQ{err: errors.New("broker down")}

	ts := time.Now().UTC().Add(-time.Minute)
	c.process(context.Background(), kafka.Message{Value: payload("S1", ts, 50)})

	if com.commits != 0 {
		t.Errorf("commits after failed dead-letter write: got %d, want 0 (message must be redelivered)", com.commits)
	}
}
