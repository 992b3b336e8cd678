package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"weather-telemetry-service/internal/alerts"
	"weather-telemetry-service/internal/api"
	"weather-telemetry-service/internal/config"
	"weather-telemetry-service/internal/db"
	"weather-telemetry-service/internal/evaluator"
	"weather-telemetry-service/internal/kafka"
	"weather-telemetry-service/internal/liveness"
	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/notifiers"
	"weather-telemetry-service/internal/rules"
	"weather-telemetry-service/internal/validator"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to DB; an unreachable store at boot is fatal.
	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Errorf("DB connect failed: %v", err)
		log.Fatal("DB connect failed:", err)
	}
	defer dbConn.Close()

	var wg sync.WaitGroup

	// Rule store: load the first snapshot, then refresh in the background.
	ruleStore := rules.New(dbConn, logger, cfg.Rules.RefreshInterval)
	if err := ruleStore.Refresh(ctx); err != nil {
		logger.Warnf("Initial rule load failed, starting with empty snapshot: %v", err)
	}
	ruleStore.Start(ctx, &wg)

	// Alert lifecycle manager and notifiers.
	manager := alerts.New(dbConn, logger, cfg.Alerts.OpTimeout, time.Duration(cfg.Alerts.DebounceSeconds)*time.Second)
	manager.Register(notifiers.NewLogNotifier(logger))

	hub := notifiers.NewHub(logger)
	manager.Register(hub)
	defer hub.Close()

	if cfg.Telegram.BotToken != "" {
		tg, err := notifiers.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RatePerSecond, logger)
		if err != nil {
			logger.Warnf("Telegram notifier disabled: %v", err)
		} else {
			manager.Register(tg)
		}
	}
	if cfg.Email.SMTPServer != "" {
		em, err := notifiers.NewEmailNotifier(cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.Recipients)
		if err != nil {
			logger.Warnf("Email notifier disabled: %v", err)
		} else {
			manager.Register(em)
		}
	}

	// Ingestion consumer.
	consumer := kafka.NewConsumer(kafka.Config{
		Brokers:         cfg.Kafka.Brokers,
		Topic:           cfg.Kafka.Topic,
		GroupID:         cfg.Kafka.GroupID,
		DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		Workers:         cfg.Kafka.Workers,
		MaxAttempts:     cfg.Kafka.MaxAttempts,
		RetryDelay:      cfg.Kafka.RetryDelay,
	}, validator.New(cfg.Validator.ClockSkew), evaluator.New(logger), dbConn, ruleStore, manager, logger)
	consumer.Start(ctx, &wg)

	// Station liveness monitor.
	monitor := liveness.New(dbConn, manager, logger, cfg.Liveness.Interval, cfg.Liveness.StalenessWindow)
	monitor.Start(ctx, &wg)

	// API server.
	r := api.NewRouter(dbConn, ruleStore, hub, logger)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := r.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Graceful shutdown: workers finish their in-flight message before the
	// process exits.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	consumer.Close()
	wg.Wait()
	logger.Infof("Service stopped")
}
