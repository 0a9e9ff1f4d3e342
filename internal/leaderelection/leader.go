// Package leaderelection gates mailbox polling behind a Postgres
// advisory lock so that replicas sharing one database never scan the
// same folder concurrently.
//
// The lock is session-scoped: it lives exactly as long as the dedicated
// database connection that took it, with no renewal and no TTL. When
// that connection dies, Postgres drops the lock on its own. The
// heartbeat ping only detects connection death locally so leader duties
// stop promptly; it does not keep the lock alive.
package leaderelection

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// Loss reasons reported to the metrics sink.
const (
	lossShutdown = "shutdown"
	lossConn     = "conn_lost"
)

// MetricsSink receives leadership transitions. Implementations must not
// block.
type MetricsSink interface {
	LeaderStatusChanged(isLeader bool)
	LeaderAcquired()
	LeaderLost(reason string)
}

// Elector competes for one advisory lock and runs leader duties while
// holding it.
type Elector struct {
	db        *sql.DB
	lockKey   int64
	retry     time.Duration // follower: pause between acquisition attempts
	heartbeat time.Duration // leader: ping cadence on the lock connection
	onElected func(ctx context.Context)
	onDemoted func()
	metrics   MetricsSink // optional, nil = disabled
}

// New creates an Elector.
//
// onElected runs in its own goroutine once the lock is held; its context
// is cancelled when leadership ends. It should start the scanner and
// reviewer and return. onDemoted runs synchronously on loss and must
// block until leader duties have stopped; it must be idempotent.
func New(
	db *sql.DB,
	lockKey int64,
	retryInterval, heartbeatInterval time.Duration,
	onElected func(ctx context.Context),
	onDemoted func(),
) *Elector {
	return &Elector{
		db:        db,
		lockKey:   lockKey,
		retry:     retryInterval,
		heartbeat: heartbeatInterval,
		onElected: onElected,
		onDemoted: onDemoted,
	}
}

// WithMetrics attaches a metrics sink.
func (e *Elector) WithMetrics(sink MetricsSink) *Elector {
	e.metrics = sink
	return e
}

// Run campaigns for the lock until ctx is cancelled, holding leadership
// for as long as the lock connection stays healthy.
func (e *Elector) Run(ctx context.Context) {
	log.Printf("leader: election loop started (lock_key=%d, retry=%s, heartbeat=%s)",
		e.lockKey, e.retry, e.heartbeat)

	for ctx.Err() == nil {
		if reason := e.campaign(ctx); reason != "" && ctx.Err() == nil {
			log.Printf("leader: lost leadership (reason=%s), retrying in %s", reason, e.retry)
		}

		select {
		case <-ctx.Done():
		case <-time.After(e.retry):
		}
	}
	log.Println("leader: election loop stopped")
}

// campaign makes one acquisition attempt and, on success, holds the
// lock until it is lost. It returns the loss reason, or "" when the
// lock was never acquired.
func (e *Elector) campaign(ctx context.Context) string {
	// The advisory lock must live on one dedicated connection; a pooled
	// statement could land anywhere.
	conn, err := e.db.Conn(ctx)
	if err != nil {
		log.Printf("leader: dedicated connection: %v", err)
		return ""
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", e.lockKey).Scan(&acquired); err != nil {
		log.Printf("leader: advisory lock query: %v", err)
		return ""
	}
	if !acquired {
		return ""
	}

	log.Printf("leader: acquired advisory lock %d", e.lockKey)
	if e.metrics != nil {
		e.metrics.LeaderStatusChanged(true)
		e.metrics.LeaderAcquired()
	}

	leaderCtx, cancelLeader := context.WithCancel(ctx)
	go e.onElected(leaderCtx)

	reason := e.watchConn(ctx, conn)

	cancelLeader()
	e.onDemoted()

	if e.metrics != nil {
		e.metrics.LeaderStatusChanged(false)
		e.metrics.LeaderLost(reason)
	}

	log.Printf("leader: released advisory lock %d (reason=%s)", e.lockKey, reason)
	return reason
}

// watchConn pings the lock connection until it fails or ctx ends.
func (e *Elector) watchConn(ctx context.Context, conn *sql.Conn) string {
	ticker := time.NewTicker(e.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return lossShutdown
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return lossShutdown
				}
				log.Printf("leader: lock connection ping failed: %v", err)
				return lossConn
			}
		}
	}
}
