package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the tracker application.
// Values are loaded from environment variables; see the usage text in
// cmd/tracker for the full list.
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	IMAPHost     string `json:"imap_host"`
	IMAPUsername string `json:"imap_username"`
	IMAPPassword string `json:"imap_password"`
	IMAPFolder   string `json:"imap_folder"`
	IMAPTLS      bool   `json:"imap_tls"`

	ConnectTimeout    time.Duration `json:"-"`
	ConnectTimeoutStr string        `json:"connect_timeout"`

	LookbackDays  int     `json:"lookback_days"`
	MinConfidence float64 `json:"min_confidence"`

	MarkProcessed bool   `json:"mark_processed"`
	ProcessedFlag string `json:"processed_flag"`

	ScanInterval    time.Duration `json:"-"`
	ScanIntervalStr string        `json:"scan_interval"`

	// ScanCron overrides ScanInterval with a cron expression when set.
	ScanCron     string `json:"scan_cron,omitempty"`
	ScanTimezone string `json:"scan_timezone"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	NotifyWebhookURL    string        `json:"notify_webhook_url,omitempty"`
	NotifyWebhookSecret string        `json:"notify_webhook_secret,omitempty"`
	NotifyTimeout       time.Duration `json:"-"`
	NotifyTimeoutStr    string        `json:"notify_timeout"`

	NotifierDrainTimeout    time.Duration `json:"-"`
	NotifierDrainTimeoutStr string        `json:"notifier_drain_timeout"`

	EventBusBufferSize int `json:"eventbus_buffer_size"`

	ReviewEnabled      bool          `json:"review_enabled"`
	ReviewInterval     time.Duration `json:"-"`
	ReviewIntervalStr  string        `json:"review_interval"`
	ReviewThreshold    time.Duration `json:"-"`
	ReviewThresholdStr string        `json:"review_threshold"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	// LeaderEnabled gates advisory-lock leader election so that only one
	// instance sharing the database polls the mailbox.
	LeaderEnabled bool  `json:"leader_enabled"`
	LeaderLockKey int64 `json:"leader_lock_key"`

	LeaderRetryInterval    time.Duration `json:"-"`
	LeaderRetryIntervalStr string        `json:"leader_retry_interval"`

	LeaderHeartbeatInterval    time.Duration `json:"-"`
	LeaderHeartbeatIntervalStr string        `json:"leader_heartbeat_interval"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		HTTPAddr:     os.Getenv("HTTP_ADDR"),
		IMAPHost:     os.Getenv("IMAP_HOST"),
		IMAPUsername: os.Getenv("IMAP_USERNAME"),
		IMAPPassword: os.Getenv("IMAP_PASSWORD"),
		IMAPFolder:   os.Getenv("IMAP_FOLDER"),
		IMAPTLS:      os.Getenv("IMAP_TLS") != "false",
		ScanCron:     os.Getenv("SCAN_CRON"),
		ScanTimezone: os.Getenv("SCAN_TIMEZONE"),

		ConnectTimeoutStr:       os.Getenv("CONNECT_TIMEOUT"),
		ScanIntervalStr:         os.Getenv("SCAN_INTERVAL"),
		DBOpTimeoutStr:          os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:    os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:    os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr:  os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		NotifyTimeoutStr:        os.Getenv("NOTIFY_TIMEOUT"),
		NotifierDrainTimeoutStr: os.Getenv("NOTIFIER_DRAIN_TIMEOUT"),
		ReviewIntervalStr:       os.Getenv("REVIEW_INTERVAL"),
		ReviewThresholdStr:      os.Getenv("REVIEW_THRESHOLD"),

		MarkProcessed:       os.Getenv("MARK_PROCESSED") == "true",
		ProcessedFlag:       os.Getenv("PROCESSED_FLAG"),
		MetricsEnabled:      os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:         os.Getenv("METRICS_PATH"),
		MetricsPort:         os.Getenv("METRICS_PORT"),
		NotifyWebhookURL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyWebhookSecret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),
		ReviewEnabled:       os.Getenv("REVIEW_ENABLED") == "true",
		LeaderEnabled:       os.Getenv("LEADER_ENABLED") == "true",
	}

	cfg.CircuitBreakerCooldownStr = os.Getenv("CIRCUIT_BREAKER_COOLDOWN")
	cfg.LeaderRetryIntervalStr = os.Getenv("LEADER_RETRY_INTERVAL")
	cfg.LeaderHeartbeatIntervalStr = os.Getenv("LEADER_HEARTBEAT_INTERVAL")

	if lookStr := os.Getenv("LOOKBACK_DAYS"); lookStr != "" {
		if n, err := strconv.Atoi(lookStr); err == nil && n > 0 {
			cfg.LookbackDays = n
		} else {
			log.Printf("config: invalid LOOKBACK_DAYS %q (must be a positive integer), using default 3", lookStr)
		}
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 3
	}

	if confStr := os.Getenv("MIN_CONFIDENCE"); confStr != "" {
		if f, err := strconv.ParseFloat(confStr, 64); err == nil && f >= 0 && f <= 1 {
			cfg.MinConfidence = f
		} else {
			log.Printf("config: invalid MIN_CONFIDENCE %q (must be in [0,1]), using default 0.6", confStr)
		}
	}
	if cfg.MinConfidence == 0 && os.Getenv("MIN_CONFIDENCE") == "" {
		cfg.MinConfidence = 0.6
	}

	if bufStr := os.Getenv("EVENTBUS_BUFFER_SIZE"); bufStr != "" {
		if n, err := strconv.Atoi(bufStr); err == nil && n > 0 {
			cfg.EventBusBufferSize = n
		} else {
			log.Printf("config: invalid EVENTBUS_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.EventBusBufferSize == 0 {
		cfg.EventBusBufferSize = 100
	}

	if cbThreshStr := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := strconv.Atoi(cbThreshStr); err == nil && n >= 0 {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}
	if cfg.CircuitBreakerThreshold == 0 && os.Getenv("CIRCUIT_BREAKER_THRESHOLD") == "" {
		cfg.CircuitBreakerThreshold = 5
	}

	if lockKeyStr := os.Getenv("LEADER_LOCK_KEY"); lockKeyStr != "" {
		if n, err := strconv.ParseInt(lockKeyStr, 10, 64); err == nil && n > 0 {
			cfg.LeaderLockKey = n
		} else {
			log.Printf("config: invalid LEADER_LOCK_KEY %q (must be a positive integer), using default 615208", lockKeyStr)
		}
	}
	if cfg.LeaderLockKey == 0 {
		cfg.LeaderLockKey = 615208
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := strconv.Atoi(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := strconv.Atoi(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.IMAPFolder == "" {
		cfg.IMAPFolder = "INBOX"
	}
	if cfg.ProcessedFlag == "" {
		cfg.ProcessedFlag = "AppTracked"
	}
	if cfg.ScanTimezone == "" {
		cfg.ScanTimezone = "UTC"
	}
	if cfg.ConnectTimeoutStr == "" {
		cfg.ConnectTimeoutStr = "10s"
	}
	if cfg.ScanIntervalStr == "" {
		cfg.ScanIntervalStr = "10m"
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.NotifyTimeoutStr == "" {
		cfg.NotifyTimeoutStr = "5s"
	}
	if cfg.NotifierDrainTimeoutStr == "" {
		cfg.NotifierDrainTimeoutStr = "30s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.ReviewIntervalStr == "" {
		cfg.ReviewIntervalStr = "1h"
	}
	if cfg.ReviewThresholdStr == "" {
		cfg.ReviewThresholdStr = "24h"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "2m"
	}
	if cfg.LeaderRetryIntervalStr == "" {
		cfg.LeaderRetryIntervalStr = "5s"
	}
	if cfg.LeaderHeartbeatIntervalStr == "" {
		cfg.LeaderHeartbeatIntervalStr = "2s"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.ConnectTimeoutStr); err == nil {
		cfg.ConnectTimeout = d
	}
	if d, err := time.ParseDuration(cfg.ScanIntervalStr); err == nil {
		cfg.ScanInterval = d
	}
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifyTimeoutStr); err == nil {
		cfg.NotifyTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifierDrainTimeoutStr); err == nil {
		cfg.NotifierDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.ReviewIntervalStr); err == nil {
		cfg.ReviewInterval = d
	}
	if d, err := time.ParseDuration(cfg.ReviewThresholdStr); err == nil {
		cfg.ReviewThreshold = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}
	if d, err := time.ParseDuration(cfg.LeaderRetryIntervalStr); err == nil {
		cfg.LeaderRetryInterval = d
	}
	if d, err := time.ParseDuration(cfg.LeaderHeartbeatIntervalStr); err == nil {
		cfg.LeaderHeartbeatInterval = d
	}

	return cfg
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL string `json:"database_url"`
		RedisAddr   string `json:"redis_addr,omitempty"`
		HTTPAddr    string `json:"http_addr"`

		IMAPHost     string `json:"imap_host"`
		IMAPUsername string `json:"imap_username"`
		IMAPPassword string `json:"imap_password"`
		IMAPFolder   string `json:"imap_folder"`
		IMAPTLS      bool   `json:"imap_tls"`

		ConnectTimeout string  `json:"connect_timeout"`
		LookbackDays   int     `json:"lookback_days"`
		MinConfidence  float64 `json:"min_confidence"`
		MarkProcessed  bool    `json:"mark_processed"`
		ProcessedFlag  string  `json:"processed_flag"`

		ScanInterval string `json:"scan_interval"`
		ScanCron     string `json:"scan_cron,omitempty"`
		ScanTimezone string `json:"scan_timezone"`

		DBOpTimeout       string `json:"db_op_timeout"`
		DBMaxOpenConns    int    `json:"db_max_open_conns"`
		DBMaxIdleConns    int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime string `json:"db_conn_max_idle_time"`

		HTTPShutdownTimeout string `json:"http_shutdown_timeout"`

		MetricsEnabled bool   `json:"metrics_enabled"`
		MetricsPath    string `json:"metrics_path"`
		MetricsPort    string `json:"metrics_port"`

		NotifyWebhookURL     string `json:"notify_webhook_url,omitempty"`
		NotifyWebhookSecret  string `json:"notify_webhook_secret,omitempty"`
		NotifyTimeout        string `json:"notify_timeout"`
		NotifierDrainTimeout string `json:"notifier_drain_timeout"`
		EventBusBufferSize   int    `json:"eventbus_buffer_size"`

		ReviewEnabled   bool   `json:"review_enabled"`
		ReviewInterval  string `json:"review_interval"`
		ReviewThreshold string `json:"review_threshold"`

		CircuitBreakerThreshold int    `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string `json:"circuit_breaker_cooldown"`

		LeaderEnabled           bool   `json:"leader_enabled"`
		LeaderLockKey           int64  `json:"leader_lock_key"`
		LeaderRetryInterval     string `json:"leader_retry_interval"`
		LeaderHeartbeatInterval string `json:"leader_heartbeat_interval"`
	}{
		DatabaseURL: maskSecret(c.DatabaseURL),
		RedisAddr:   c.RedisAddr,
		HTTPAddr:    c.HTTPAddr,

		IMAPHost:     c.IMAPHost,
		IMAPUsername: c.IMAPUsername,
		IMAPPassword: maskValue(c.IMAPPassword),
		IMAPFolder:   c.IMAPFolder,
		IMAPTLS:      c.IMAPTLS,

		ConnectTimeout: c.ConnectTimeoutStr,
		LookbackDays:   c.LookbackDays,
		MinConfidence:  c.MinConfidence,
		MarkProcessed:  c.MarkProcessed,
		ProcessedFlag:  c.ProcessedFlag,

		ScanInterval: c.ScanIntervalStr,
		ScanCron:     c.ScanCron,
		ScanTimezone: c.ScanTimezone,

		DBOpTimeout:       c.DBOpTimeoutStr,
		DBMaxOpenConns:    c.DBMaxOpenConns,
		DBMaxIdleConns:    c.DBMaxIdleConns,
		DBConnMaxLifetime: c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime: c.DBConnMaxIdleTimeStr,

		HTTPShutdownTimeout: c.HTTPShutdownTimeoutStr,

		MetricsEnabled: c.MetricsEnabled,
		MetricsPath:    c.MetricsPath,
		MetricsPort:    c.MetricsPort,

		NotifyWebhookURL:     c.NotifyWebhookURL,
		NotifyWebhookSecret:  maskValue(c.NotifyWebhookSecret),
		NotifyTimeout:        c.NotifyTimeoutStr,
		NotifierDrainTimeout: c.NotifierDrainTimeoutStr,
		EventBusBufferSize:   c.EventBusBufferSize,

		ReviewEnabled:   c.ReviewEnabled,
		ReviewInterval:  c.ReviewIntervalStr,
		ReviewThreshold: c.ReviewThresholdStr,

		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldownStr,

		LeaderEnabled:           c.LeaderEnabled,
		LeaderLockKey:           c.LeaderLockKey,
		LeaderRetryInterval:     c.LeaderRetryIntervalStr,
		LeaderHeartbeatInterval: c.LeaderHeartbeatIntervalStr,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
