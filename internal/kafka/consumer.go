// Package kafka hosts the ingestion consumer: a pool of workers pulling
// telemetry messages from the broker, validating, persisting, and feeding
// the alert pipeline. Delivery is at-least-once; the idempotent reading
// insert and the alert store's uniqueness constraint make redelivery and
// concurrent duplicates safe.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"weather-telemetry-service/internal/evaluator"
	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/metrics"
	"weather-telemetry-service/internal/models"
	"weather-telemetry-service/internal/validator"
)

type Config struct {
	Brokers         []string
	Topic           string
	GroupID         string
	DeadLetterTopic string
	Workers         int
	MaxAttempts     int
	RetryDelay      time.Duration
}

// ReadingStore persists validated readings.
type ReadingStore interface {
	InsertReading(ctx context.Context, r models.Reading) (bool, error)
	GetOpenAlerts(ctx context.Context, stationID string) ([]models.Alert, error)
}

// RuleSource serves the active rule snapshot.
type RuleSource interface {
	Active() []models.AlertConfiguration
}

// EventSink applies alert events; in production this is the lifecycle manager.
type EventSink interface {
	HandleEvent(ctx context.Context, ev models.AlertEvent) error
}

// committer acknowledges processed messages back to the broker.
type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// deadLetterSink receives messages that exhausted their retries.
type deadLetterSink interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	cfg       Config
	reader    *kafka.Reader
	commits   committer
	dlq       deadLetterSink
	validator *validator.Validator
	evaluator *evaluator.Evaluator
	store     ReadingStore
	rules     RuleSource
	sink      EventSink
	logger    *logging.Logger
}

func NewConsumer(cfg Config, v *validator.Validator, e *evaluator.Evaluator, store ReadingStore, rules RuleSource, sink EventSink, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	dlq := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.DeadLetterTopic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Consumer{
		cfg:       cfg,
		reader:    reader,
		commits:   reader,
		dlq:       dlq,
		validator: v,
		evaluator: e,
		store:     store,
		rules:     rules,
		sink:      sink,
		logger:    logger,
	}
}

// Start launches the worker pool. Each worker handles one message to
// completion (validate, persist, evaluate, dispatch, commit) before fetching
// the next, so shutdown never abandons a half-processed message.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go c.worker(ctx, wg, i)
	}
	c.logger.Infof("Kafka consumer started: topic=%s group=%s workers=%d", c.cfg.Topic, c.cfg.GroupID, c.cfg.Workers)
}

func (c *Consumer) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Infof("Consumer worker %d stopped", id)
				return
			}
			c.logger.Errorf("Fetch message failed: %v", err)
			continue
		}
		// The in-flight message runs to completion (including commit) even
		// when shutdown cancels ctx; there is no partial persist-without-ack.
		c.process(context.WithoutCancel(ctx), msg)
		metrics.ConsumerLag.Set(float64(c.reader.Stats().Lag))
	}
}

// process drives one message through the pipeline with bounded retries and,
// past the limit, the dead-letter topic. The offset is committed in every
// outcome except a dead-letter write failure, which leaves the message for
// redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	start := time.Now()
	requestID := uuid.New().String()

	err := c.handle(ctx, requestID, msg.Value)
	for attempt := 1; err != nil && attempt < c.cfg.MaxAttempts; attempt++ {
		c.logger.Errorf("[%s] Attempt %d/%d failed: %v", requestID, attempt, c.cfg.MaxAttempts, err)
		time.Sleep(c.cfg.RetryDelay)
		err = c.handle(ctx, requestID, msg.Value)
	}

	if err != nil {
		c.logger.Errorf("[%s] Giving up after %d attempts, dead-lettering: %v", requestID, c.cfg.MaxAttempts, err)
		metrics.MessagesFailed.WithLabelValues("exhausted_retries").Inc()
		if dlErr := c.deadLetter(ctx, msg); dlErr != nil {
			c.logger.Errorf("[%s] Dead-letter write failed, leaving message for redelivery: %v", requestID, dlErr)
			return
		}
	}

	if err := c.commits.CommitMessages(ctx, msg); err != nil {
		c.logger.Errorf("[%s] Commit failed: %v", requestID, err)
	}
	metrics.ProcessingTime.Observe(time.Since(start).Seconds())
}

// handle runs one pass of the pipeline. A nil return means the message is
// finished (processed or permanently rejected); an error means a transient
// failure worth retrying.
func (c *Consumer) handle(ctx context.Context, requestID string, payload []byte) error {
	var raw models.RawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		// Permanently malformed; acking it keeps the queue moving.
		c.logger.WithField("request_id", requestID).Warnf("Rejected message: undecodable payload: %v", err)
		metrics.MessagesRejected.WithLabelValues("malformed").Inc()
		return nil
	}

	reading, rej := c.validator.Validate(raw)
	if rej != nil {
		c.logger.WithField("request_id", requestID).
			WithField("station_id", raw.StationID).
			WithField("reason", rej.Reason).
			Warnf("Rejected reading: %s", rej)
		metrics.MessagesRejected.WithLabelValues(rej.Reason).Inc()
		return nil
	}

	inserted, err := c.store.InsertReading(ctx, reading)
	if err != nil {
		return fmt.Errorf("persist reading: %w", err)
	}
	if !inserted {
		c.logger.Debugf("[%s] Duplicate reading for %s at %s, redelivery tolerated",
			requestID, reading.StationID, reading.Timestamp.Format(time.RFC3339))
	}

	openList, err := c.store.GetOpenAlerts(ctx, reading.StationID)
	if err != nil {
		return fmt.Errorf("load open alerts: %w", err)
	}
	open := make(map[string]models.Alert, len(openList))
	for _, a := range openList {
		open[a.AlertType] = a
	}

	events := c.evaluator.Evaluate(reading, c.rules.Active(), open)
	for _, ev := range events {
		if err := c.sink.HandleEvent(ctx, ev); err != nil {
			return fmt.Errorf("handle alert event %s/%s: %w", ev.AlertType, ev.Action, err)
		}
	}

	metrics.MessagesProcessed.Inc()
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message) error {
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers, kafka.Header{
			Key:   "x-dead-letter-source",
			Value: []byte(c.cfg.Topic),
		}),
	})
}

// Close stops the reader (unblocking workers) and the dead-letter writer.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Reader close failed: %v", err)
	}
	if err := c.dlq.Close(); err != nil {
		c.logger.Errorf("Dead-letter writer close failed: %v", err)
	}
}
