package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Brokers         []string
		Topic           string
		GroupID         string
		DeadLetterTopic string
		Workers         int
		MaxAttempts     int
		RetryDelay      time.Duration
	}
	DB struct {
		DSN string
	}
	API struct {
		Port string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Rules struct {
		RefreshInterval time.Duration
	}
	Liveness struct {
		Interval        time.Duration
		StalenessWindow time.Duration
	}
	Validator struct {
		ClockSkew time.Duration
	}
	Alerts struct {
		OpTimeout       time.Duration
		DebounceSeconds int
	}
	Telegram struct {
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		Recipients []string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	if b := os.Getenv("KAFKA_BROKERS"); b != "" {
		cfg.Kafka.Brokers = strings.Split(b, ",")
	}
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")
	cfg.Kafka.DeadLetterTopic = os.Getenv("KAFKA_DEAD_LETTER_TOPIC")
	cfg.Kafka.Workers = intEnv("CONSUMER_WORKERS", 0)
	cfg.Kafka.MaxAttempts = intEnv("CONSUMER_MAX_ATTEMPTS", 0)
	cfg.Kafka.RetryDelay = durationEnv("CONSUMER_RETRY_DELAY", 0)

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Evaluation settings
	cfg.Rules.RefreshInterval = durationEnv("RULE_REFRESH_INTERVAL", 0)
	cfg.Liveness.Interval = durationEnv("LIVENESS_INTERVAL", 0)
	cfg.Liveness.StalenessWindow = durationEnv("STALENESS_WINDOW", 0)
	cfg.Validator.ClockSkew = durationEnv("CLOCK_SKEW_TOLERANCE", 0)
	cfg.Alerts.OpTimeout = durationEnv("ALERT_OP_TIMEOUT", 0)
	cfg.Alerts.DebounceSeconds = intEnv("ALERT_DEBOUNCE_SECONDS", 0)

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.RatePerSecond = intEnv("TELEGRAM_RATE_LIMIT", 1)

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = intEnv("EMAIL_SMTP_PORT", 0)
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	if to := os.Getenv("EMAIL_RECIPIENTS"); to != "" {
		cfg.Email.Recipients = strings.Split(to, ",")
	}

	// Validate required settings
	missing := []string{}
	if len(cfg.Kafka.Brokers) == 0 {
		missing = append(missing, "KAFKA_BROKERS")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "weather.readings"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "weather-consumer"
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = cfg.Kafka.Topic + ".dead"
	}
	if cfg.Kafka.Workers == 0 {
		cfg.Kafka.Workers = 4
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = 5
	}
	if cfg.Kafka.RetryDelay == 0 {
		cfg.Kafka.RetryDelay = 2 * time.Second
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.Rules.RefreshInterval == 0 {
		cfg.Rules.RefreshInterval = 30 * time.Second
	}
	if cfg.Liveness.Interval == 0 {
		cfg.Liveness.Interval = 60 * time.Second
	}
	if cfg.Liveness.StalenessWindow == 0 {
		cfg.Liveness.StalenessWindow = 15 * time.Minute
	}
	if cfg.Validator.ClockSkew == 0 {
		cfg.Validator.ClockSkew = 2 * time.Minute
	}
	if cfg.Alerts.OpTimeout == 0 {
		cfg.Alerts.OpTimeout = 10 * time.Second
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
