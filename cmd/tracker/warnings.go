package main

import (
	"log"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/config"
)

// logConfigWarnings flags configuration combinations that run but degrade
// operability. P0 warnings risk data or credentials, P1 warnings reduce
// visibility.
func logConfigWarnings(cfg *config.Config) {
	if !cfg.IMAPTLS {
		log.Println("WARNING [P0]: IMAP_TLS=false sends mailbox credentials in cleartext. " +
			"Only use this against a local test server.")
	}

	if cfg.CircuitBreakerThreshold == 0 {
		log.Println("WARNING [P1]: CIRCUIT_BREAKER_THRESHOLD=0 disables the mailbox circuit breaker. " +
			"A flapping IMAP server will be redialed on every cycle.")
	}

	if !cfg.MetricsEnabled {
		log.Println("WARNING [P1]: METRICS_ENABLED=false. Cycle health, event backlog, and " +
			"review-queue depth will not be observable.")
	}

	if !cfg.ReviewEnabled {
		log.Println("WARNING [P1]: REVIEW_ENABLED=false. Ambiguous and unmatched emails will " +
			"accumulate in the signals table without a stale-backlog summary.")
	}

	if cfg.NotifyWebhookURL == "" {
		log.Println("INFO: NOTIFY_WEBHOOK_URL not set. Status transitions are persisted and " +
			"counted in analytics but not delivered to a dashboard.")
	}

	if cfg.ScanCron != "" {
		log.Printf("INFO: SCAN_CRON=%q overrides SCAN_INTERVAL=%s.", cfg.ScanCron, cfg.ScanIntervalStr)
	}
}
