package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/analytics"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/api"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/circuitbreaker"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/classifier"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/config"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector/imap"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/cron"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/leaderelection"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/metrics"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/notifier"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/reviewer"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/scanner"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/store/postgres"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/transport/channel"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "scan":
		os.Exit(runScan())
	case "schedule":
		os.Exit(runSchedule())
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "stats":
		os.Exit(runStats())
	case "update":
		os.Exit(runUpdate(os.Args[2:]))
	case "signals":
		os.Exit(runSignals(os.Args[2:]))
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`tracker - job application status tracker

Usage:
  tracker <command>

Commands:
  scan       Run one mailbox scan cycle and exit
  schedule   Run the polling loop with the HTTP API
  list       List tracked applications [--status S] [--company C]
  stats      Print aggregate application statistics
  update     Override a status: update <job_id> <status> [--notes TEXT]
  signals    List review-queue signals [--all] [--limit N]
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL              PostgreSQL connection string (required)
  IMAP_HOST                 IMAP server host:port (required for scan/schedule)
  IMAP_USERNAME             IMAP account username
  IMAP_PASSWORD             IMAP account password
  IMAP_FOLDER               Folder to scan (default: "INBOX")
  IMAP_TLS                  Use TLS for IMAP (default: "true")
  CONNECT_TIMEOUT           Mailbox dial timeout (default: "10s")
  LOOKBACK_DAYS             First-run scan window in days (default: "3")
  MIN_CONFIDENCE            Classifier confidence floor (default: "0.6")
  MARK_PROCESSED            Tag handled messages with a keyword (default: "false")
  PROCESSED_FLAG            Keyword used for tagging (default: "AppTracked")

  SCAN_INTERVAL             Polling interval (default: "10m")
  SCAN_CRON                 Cron expression overriding SCAN_INTERVAL (optional)
  SCAN_TIMEZONE             Timezone for SCAN_CRON (default: "UTC")

  HTTP_ADDR                 HTTP API address (default: ":8080")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  REDIS_ADDR                Redis address for analytics (optional)
  NOTIFY_WEBHOOK_URL        Dashboard webhook for status transitions (optional)
  NOTIFY_WEBHOOK_SECRET     HMAC secret for webhook signatures
  NOTIFY_TIMEOUT            Webhook request timeout (default: "5s")
  NOTIFIER_DRAIN_TIMEOUT    Event drain timeout on shutdown (default: "30s")
  EVENTBUS_BUFFER_SIZE      Status event buffer size (default: "100")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  REVIEW_ENABLED            Enable the review-queue sweep (default: "false")
  REVIEW_INTERVAL           Sweep interval (default: "1h")
  REVIEW_THRESHOLD          Age before an open signal counts as stale (default: "24h")

  CIRCUIT_BREAKER_THRESHOLD Failures before the mailbox host opens (default: "5", 0 disables)
  CIRCUIT_BREAKER_COOLDOWN  Open-state cooldown (default: "2m")

  LEADER_ENABLED            Advisory-lock leader election (default: "false")
  LEADER_LOCK_KEY           Advisory lock key (default: "615208")
  LEADER_RETRY_INTERVAL     Follower retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL Leader connection ping interval (default: "2s")`)
}

// openDatabase opens and pings the configured Postgres database with the
// pool knobs applied.
func openDatabase(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func newStore(cfg config.Config, db *sql.DB) *postgres.Store {
	return postgres.New(db).WithOpTimeout(cfg.DBOpTimeout)
}

// buildMailbox constructs the IMAP connector from config.
func buildMailbox(cfg config.Config) connector.Mailbox {
	markFlag := ""
	if cfg.MarkProcessed {
		markFlag = cfg.ProcessedFlag
	}
	return imap.New(imap.Config{
		Host:     cfg.IMAPHost,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
		Folder:   cfg.IMAPFolder,
		TLS:      cfg.IMAPTLS,
		Timeout:  cfg.ConnectTimeout,
		MarkFlag: markFlag,
	})
}

func buildScanner(cfg config.Config, store *postgres.Store, led *ledger.Ledger, emitter scanner.EventEmitter, sink metrics.Sink) *scanner.Scanner {
	sc := scanner.New(
		scanner.Config{
			Mailbox:  cfg.IMAPUsername,
			Folder:   cfg.IMAPFolder,
			Host:     cfg.IMAPHost,
			Interval: cfg.ScanInterval,
			Lookback: time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		},
		buildMailbox(cfg),
		classifier.New(cfg.MinConfidence),
		led,
		store,
		store,
		emitter,
	)
	if cfg.CircuitBreakerThreshold > 0 {
		sc = sc.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
	}
	if sink != nil {
		sc = sc.WithMetrics(sink)
	}
	return sc
}

func buildNotifier(cfg config.Config, sink metrics.Sink) *notifier.Notifier {
	n := notifier.New(notifier.Config{
		WebhookURL:   cfg.NotifyWebhookURL,
		Secret:       cfg.NotifyWebhookSecret,
		Timeout:      cfg.NotifyTimeout,
		DrainTimeout: cfg.NotifierDrainTimeout,
	}, notifier.NewHTTPWebhookSender())

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		n = n.WithAnalytics(analytics.NewRedisSink(redisClient))
		log.Printf("tracker: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("tracker: REDIS_ADDR not set; analytics disabled")
	}
	if sink != nil {
		n = n.WithMetrics(sink)
	}
	return n
}

func runScan() int {
	cfg := config.Load()

	if err := config.Validate(cfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	store := newStore(cfg, db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ensure schema: %v\n", err)
		return exitRuntimeError
	}
	led := ledger.New(store)

	bus := channel.NewEventBus(cfg.EventBusBufferSize)
	notif := buildNotifier(cfg, nil)

	notifierCtx, cancelNotifier := context.WithCancel(context.Background())
	var notifierWg sync.WaitGroup
	notifierWg.Add(1)
	go func() {
		defer notifierWg.Done()
		notif.Run(notifierCtx, bus.Channel())
	}()

	sc := buildScanner(cfg, store, led, bus, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := sc.RunOnce(ctx)

	// Let the notifier deliver whatever the cycle emitted.
	cancelNotifier()
	notifierWg.Wait()

	if err != nil {
		if scanExitCode(err) != exitSuccess {
			fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
			return exitRuntimeError
		}
		// Transient mailbox trouble; the next run catches up.
		fmt.Fprintf(os.Stderr, "warning: scan incomplete: %v\n", err)
	}

	fmt.Printf("fetched=%d applied=%d recorded=%d duplicates=%d ambiguous=%d unmatched=%d irrelevant=%d errors=%d\n",
		report.Fetched, report.Applied, report.Recorded, report.Duplicates,
		report.Ambiguous, report.Unmatched, report.Irrelevant, report.Errors)
	return exitSuccess
}

// scanExitCode maps a cycle error to the scan command's exit status.
// Only fatal mailbox errors and unexpected failures are non-zero.
func scanExitCode(err error) int {
	if err == nil || connector.IsTransient(err) {
		return exitSuccess
	}
	return exitRuntimeError
}

func runSchedule() int {
	cfg := config.Load()

	if err := config.Validate(cfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	// A bad cron expression should fail startup, not the first tick.
	var cronSched cron.Schedule
	if cfg.ScanCron != "" {
		var err error
		cronSched, err = cron.NewParser().Parse(cfg.ScanCron, cfg.ScanTimezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: SCAN_CRON: %v\n", err)
			return exitInvalidConfig
		}
	}

	logConfigWarnings(&cfg)

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	log.Printf("tracker: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	store := newStore(cfg, db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ensure schema: %v\n", err)
		return exitRuntimeError
	}
	led := ledger.New(store)

	// Metrics sink and server (optional).
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server
	var sink metrics.Sink = metrics.NewNoopSink()

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		sink = metricsSink
		log.Printf("tracker: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("tracker: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("tracker: metrics server error: %v", err)
			}
		}()
	}

	// Event bus feeding the notifier.
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	notif := buildNotifier(cfg, sink)

	notifierCtx, cancelNotifier := context.WithCancel(context.Background())
	var notifierWg sync.WaitGroup
	notifierWg.Add(1)
	go func() {
		defer notifierWg.Done()
		notif.Run(notifierCtx, bus.Channel())
	}()

	sc := buildScanner(cfg, store, led, bus, sink)

	var rev *reviewer.Reviewer
	if cfg.ReviewEnabled {
		rev = reviewer.New(reviewer.Config{
			Interval:   cfg.ReviewInterval,
			StaleAfter: cfg.ReviewThreshold,
		}, store, led).WithMetrics(sink)
		log.Printf("tracker: reviewer enabled (interval=%s, threshold=%s)", cfg.ReviewInterval, cfg.ReviewThreshold)
	} else {
		log.Println("tracker: REVIEW_ENABLED not set; reviewer disabled")
	}

	// startWorkers launches the scan loop and the reviewer under ctx and
	// registers them on wg. Used directly, or as the leader duty.
	startWorkers := func(ctx context.Context, wg *sync.WaitGroup) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runScanLoop(ctx, sc, cronSched)
		}()
		if rev != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rev.Run(ctx)
			}()
		}
	}

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	var workersWg sync.WaitGroup
	var electorWg sync.WaitGroup

	if cfg.LeaderEnabled {
		elector := leaderelection.New(
			db,
			cfg.LeaderLockKey,
			cfg.LeaderRetryInterval,
			cfg.LeaderHeartbeatInterval,
			func(leaderCtx context.Context) { startWorkers(leaderCtx, &workersWg) },
			func() { workersWg.Wait() },
		)
		if metricsSink != nil {
			elector = elector.WithMetrics(metricsSink)
		}
		electorWg.Add(1)
		go func() {
			defer electorWg.Done()
			elector.Run(workersCtx)
		}()
		log.Printf("tracker: leader election enabled (lock_key=%d)", cfg.LeaderLockKey)
	} else {
		startWorkers(workersCtx, &workersWg)
	}

	// HTTP API server.
	apiHandler := api.NewHandler(led, store, store).
		WithScanTrigger(sc).
		WithHealthChecker(db)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}
	go func() {
		log.Printf("tracker: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("tracker: http server error: %v", err)
		}
	}()

	if cronSched != nil {
		log.Printf("tracker: started (cron=%q tz=%s, http=%s)", cfg.ScanCron, cfg.ScanTimezone, cfg.HTTPAddr)
	} else {
		log.Printf("tracker: started (interval=%s, http=%s)", cfg.ScanInterval, cfg.HTTPAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("tracker: received signal %v, shutting down", received)

	// Phase 1: stop the scan loop and reviewer (no new events emitted).
	log.Println("tracker: stopping workers...")
	cancelWorkers()
	electorWg.Wait()
	workersWg.Wait()
	log.Println("tracker: workers stopped")

	// Phase 2: stop the notifier (drains buffered events before returning).
	log.Println("tracker: stopping notifier (draining events)...")
	cancelNotifier()
	notifierWg.Wait()
	log.Println("tracker: notifier stopped")

	// Phase 3: stop the HTTP server with graceful shutdown.
	log.Println("tracker: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("tracker: http server shutdown error: %v", err)
	}
	log.Println("tracker: http server stopped")

	// Phase 4: stop the metrics server if running.
	if metricsServer != nil {
		log.Println("tracker: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("tracker: metrics server shutdown error: %v", err)
		}
		log.Println("tracker: metrics server stopped")
	}

	log.Println("tracker: stopped")
	return exitSuccess
}

// runScanLoop drives cycles on a cron schedule when one is configured,
// otherwise it delegates to the scanner's interval loop. Cycle errors are
// logged and the loop continues, except fatal connector errors.
func runScanLoop(ctx context.Context, sc *scanner.Scanner, sched cron.Schedule) {
	if sched == nil {
		sc.Run(ctx)
		return
	}

	for {
		next := sched.Next(time.Now())
		log.Printf("scanner: next cycle at %s", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			log.Println("scanner: stopped")
			return
		case <-time.After(time.Until(next)):
		}

		if _, err := sc.RunOnce(ctx); err != nil {
			if connector.IsFatal(err) {
				log.Printf("scanner: fatal connector error, stopping: %v", err)
				return
			}
			if ctx.Err() != nil {
				log.Println("scanner: stopped")
				return
			}
			log.Printf("scanner: cycle error: %v", err)
		}
	}
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	statusStr := fs.String("status", "", "filter by exact status")
	company := fs.String("company", "", "filter by company substring")
	fs.Parse(args)

	var filter ledger.Filter
	if *statusStr != "" {
		status := domain.Status(*statusStr)
		if !status.Valid() {
			fmt.Fprintf(os.Stderr, "unknown status %q\n", *statusStr)
			return exitRuntimeError
		}
		filter.Status = status
	}
	filter.Company = *company

	cfg := config.Load()
	if err := config.Validate(cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	led := ledger.New(newStore(cfg, db))
	apps, err := led.ListFiltered(context.Background(), filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list applications: %v\n", err)
		return exitRuntimeError
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tCOMPANY\tTITLE\tSTATUS\tAPPLIED\tUPDATED")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			app.JobID, app.Company, app.Title, app.CurrentStatus,
			app.AppliedAt.Format("2006-01-02"), app.UpdatedAt.Format("2006-01-02"))
	}
	w.Flush()
	return exitSuccess
}

func runStats() int {
	cfg := config.Load()
	if err := config.Validate(cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	led := ledger.New(newStore(cfg, db))
	stats, err := led.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		return exitRuntimeError
	}

	fmt.Printf("total:         %d\n", stats.Total)
	fmt.Printf("responded:     %d\n", stats.Responded)
	fmt.Printf("interviews:    %d\n", stats.Interviews)
	fmt.Printf("offers:        %d\n", stats.Offers)
	fmt.Printf("rejections:    %d\n", stats.Rejections)
	fmt.Printf("response rate: %.1f%%\n", stats.ResponseRate*100)
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-20s %d\n", status, count)
	}
	return exitSuccess
}

func runUpdate(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tracker update <job_id> <status> [--notes TEXT]")
		return exitRuntimeError
	}
	jobID, statusStr := args[0], args[1]

	fs := flag.NewFlagSet("update", flag.ExitOnError)
	notes := fs.String("notes", "", "freeform note attached to the record")
	fs.Parse(args[2:])

	status := domain.Status(statusStr)
	if !status.Valid() {
		fmt.Fprintf(os.Stderr, "unknown status %q\n", statusStr)
		return exitRuntimeError
	}

	cfg := config.Load()
	if err := config.Validate(cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	led := ledger.New(newStore(cfg, db))
	result, err := led.Override(context.Background(), jobID, status, *notes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update %s: %v\n", jobID, err)
		return exitRuntimeError
	}

	fmt.Printf("%s: %s -> %s (%s)\n", jobID, result.From, result.To, result.Outcome)
	return exitSuccess
}

func runSignals(args []string) int {
	fs := flag.NewFlagSet("signals", flag.ExitOnError)
	all := fs.Bool("all", false, "include resolved signals")
	limit := fs.Int("limit", 100, "maximum signals to list")
	fs.Parse(args)

	cfg := config.Load()
	if err := config.Validate(cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	store := newStore(cfg, db)
	signals, err := store.ListSignals(context.Background(), !*all, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list signals: %v\n", err)
		return exitRuntimeError
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREASON\tSTATUS\tCOMPANY\tSUBJECT\tRECEIVED\tRESOLVED")
	for _, sig := range signals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			sig.ID, sig.Reason, sig.Status, sig.Company, sig.Subject,
			sig.ReceivedAt.Format("2006-01-02 15:04"), sig.Resolved)
	}
	w.Flush()
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	if cfg.ScanCron != "" {
		if _, err := cron.NewParser().Parse(cfg.ScanCron, cfg.ScanTimezone); err != nil {
			fmt.Fprintf(os.Stderr, "SCAN_CRON: %v\n", err)
			return exitInvalidConfig
		}
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("tracker version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
