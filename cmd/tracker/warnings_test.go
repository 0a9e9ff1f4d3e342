package main

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/config"
)

// captureLogOutput calls logConfigWarnings with the given config and returns
// the captured log output as a string.
func captureLogOutput(cfg *config.Config) string {
	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	logConfigWarnings(cfg)
	return buf.String()
}

func TestLogConfigWarnings_PlaintextIMAP(t *testing.T) {
	cfg := &config.Config{
		IMAPTLS:                 false,
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		ReviewEnabled:           true,
		NotifyWebhookURL:        "https://dashboard.example.com/hook",
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P0]: IMAP_TLS=false") {
		t.Error("expected plaintext IMAP P0 warning, got:", output)
	}
	if strings.Contains(output, "WARNING [P1]") {
		t.Error("did not expect P1 warnings, got:", output)
	}
}

func TestLogConfigWarnings_BreakerDisabled(t *testing.T) {
	cfg := &config.Config{
		IMAPTLS:                 true,
		CircuitBreakerThreshold: 0,
		MetricsEnabled:          true,
		ReviewEnabled:           true,
		NotifyWebhookURL:        "https://dashboard.example.com/hook",
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P1]: CIRCUIT_BREAKER_THRESHOLD=0") {
		t.Error("expected disabled-breaker P1 warning, got:", output)
	}
}

func TestLogConfigWarnings_VisibilityGaps(t *testing.T) {
	cfg := &config.Config{
		IMAPTLS:                 true,
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          false,
		ReviewEnabled:           false,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P1]: METRICS_ENABLED=false") {
		t.Error("expected metrics P1 warning, got:", output)
	}
	if !strings.Contains(output, "WARNING [P1]: REVIEW_ENABLED=false") {
		t.Error("expected reviewer P1 warning, got:", output)
	}
	if !strings.Contains(output, "INFO: NOTIFY_WEBHOOK_URL not set") {
		t.Error("expected webhook INFO, got:", output)
	}
}

func TestLogConfigWarnings_CronOverride(t *testing.T) {
	cfg := &config.Config{
		IMAPTLS:                 true,
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		ReviewEnabled:           true,
		NotifyWebhookURL:        "https://dashboard.example.com/hook",
		ScanCron:                "*/5 * * * *",
		ScanIntervalStr:         "10m",
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, `INFO: SCAN_CRON="*/5 * * * *" overrides SCAN_INTERVAL=10m`) {
		t.Error("expected cron override INFO, got:", output)
	}
}

func TestLogConfigWarnings_CleanConfig(t *testing.T) {
	cfg := &config.Config{
		IMAPTLS:                 true,
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		ReviewEnabled:           true,
		NotifyWebhookURL:        "https://dashboard.example.com/hook",
	}
	output := captureLogOutput(cfg)

	if strings.Contains(output, "WARNING") {
		t.Error("expected no warnings for a fully configured setup, got:", output)
	}
}
