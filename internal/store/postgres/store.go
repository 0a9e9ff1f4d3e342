package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
)

// Store implements ledger.Store plus the watermark and review-signal
// persistence used by the scanner, backed by PostgreSQL. The submission
// bot writes to the same applications table; CreateApplication exists
// for the ingest API and for seeding.
type Store struct {
	db        *sql.DB
	clock     func() time.Time
	opTimeout time.Duration
}

// New creates a store over an open database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// WithOpTimeout bounds every statement with a per-operation deadline.
// Zero disables the bound.
func (s *Store) WithOpTimeout(d time.Duration) *Store {
	s.opTimeout = d
	return s
}

// WithClock overrides the time source. Used by tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// GetApplication returns one record with its full status history.
func (s *Store) GetApplication(ctx context.Context, jobID string) (*domain.Application, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var app domain.Application
	err := s.db.QueryRowContext(ctx, queryGetApplication, jobID).Scan(
		&app.JobID,
		&app.Company,
		&app.Title,
		&app.Location,
		&app.AppliedAt,
		&app.CurrentStatus,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryGetHistory, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.StatusEntry
		if err := rows.Scan(&e.ID, &e.Status, &e.Source, &e.Promoted, &e.RecordedAt); err != nil {
			return nil, err
		}
		app.History = append(app.History, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplications returns all records, newest application first.
// History is not loaded; use GetApplication for one record's history.
func (s *Store) ListApplications(ctx context.Context) ([]domain.Application, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListApplications)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Application
	for rows.Next() {
		var app domain.Application
		err := rows.Scan(
			&app.JobID,
			&app.Company,
			&app.Title,
			&app.Location,
			&app.AppliedAt,
			&app.CurrentStatus,
			&app.Notes,
			&app.CreatedAt,
			&app.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateApplication inserts a new record. The job id must be unique.
func (s *Store) CreateApplication(ctx context.Context, app domain.Application) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := s.clock()
	if app.CurrentStatus == "" {
		app.CurrentStatus = domain.StatusApplied
	}
	_, err := s.db.ExecContext(ctx, queryInsertApplication,
		app.JobID,
		app.Company,
		app.Title,
		app.Location,
		app.AppliedAt,
		string(app.CurrentStatus),
		app.Notes,
		now,
		now,
	)
	if err != nil && isDuplicateKeyError(err) {
		return ledger.ErrDuplicate
	}
	return err
}

// AppendStatus writes the history entry and the new current status in
// one transaction. A concurrent replay of the same message-id source
// hits the unique index and returns ledger.ErrDuplicate with nothing
// written; manual entries are exempt from the index and always land.
func (s *Store) AppendStatus(ctx context.Context, jobID string, entry domain.StatusEntry, current domain.Status) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queryInsertHistoryEntry,
		entry.ID,
		jobID,
		string(entry.Status),
		entry.Source,
		entry.Promoted,
		entry.RecordedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ledger.ErrDuplicate
		}
		return err
	}

	result, err := tx.ExecContext(ctx, queryUpdateCurrentStatus, string(current), s.clock(), jobID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) SetNotes(ctx context.Context, jobID, notes string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, querySetNotes, notes, s.clock(), jobID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Stats aggregates status counts in SQL and derives the rates.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryStatusCounts)
	if err != nil {
		return domain.Stats{}, err
	}
	defer rows.Close()

	stats := domain.Stats{ByStatus: make(map[domain.Status]int)}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.Stats{}, err
		}
		st := domain.Status(status)
		stats.ByStatus[st] = count
		stats.Total += count
		if st != domain.StatusApplied {
			stats.Responded += count
		}
		switch st {
		case domain.StatusInterviewScheduled:
			stats.Interviews = count
		case domain.StatusOffer:
			stats.Offers = count
		case domain.StatusRejected:
			stats.Rejections = count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Stats{}, err
	}
	if stats.Total > 0 {
		stats.ResponseRate = float64(stats.Responded) / float64(stats.Total)
	}
	return stats, nil
}

// GetWatermark loads the persisted scan boundary for a mailbox folder.
// A folder never scanned before returns a zero watermark, not an error.
func (s *Store) GetWatermark(ctx context.Context, mailbox, folder string) (domain.Watermark, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var wm domain.Watermark
	err := s.db.QueryRowContext(ctx, queryGetWatermark, mailbox, folder).Scan(
		&wm.Mailbox,
		&wm.Folder,
		&wm.LastReceived,
		&wm.LastMessageID,
	)
	if err == sql.ErrNoRows {
		return domain.Watermark{Mailbox: mailbox, Folder: folder}, nil
	}
	if err != nil {
		return domain.Watermark{}, err
	}
	return wm, nil
}

// SaveWatermark upserts the scan boundary. Called only after a cycle's
// ledger writes have committed.
func (s *Store) SaveWatermark(ctx context.Context, wm domain.Watermark) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, querySaveWatermark,
		wm.Mailbox,
		wm.Folder,
		wm.LastReceived,
		wm.LastMessageID,
		s.clock(),
	)
	return err
}

// InsertSignal records an ambiguous or unmatched email for manual
// review. Re-inserting the same message id is a no-op.
func (s *Store) InsertSignal(ctx context.Context, sig domain.Signal) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertSignal,
		sig.ID,
		sig.MessageID,
		string(sig.Reason),
		string(sig.Status),
		sig.JobIDHint,
		sig.Company,
		sig.Subject,
		pq.Array(sig.Candidates),
		sig.ReceivedAt,
		sig.RecordedAt,
	)
	return err
}

// ListSignals returns review signals oldest first. When onlyUnresolved
// is set, resolved signals are filtered out.
func (s *Store) ListSignals(ctx context.Context, onlyUnresolved bool, limit int) ([]domain.Signal, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListSignals, onlyUnresolved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var candidates pq.StringArray
		err := rows.Scan(
			&sig.ID,
			&sig.MessageID,
			&sig.Reason,
			&sig.Status,
			&sig.JobIDHint,
			&sig.Company,
			&sig.Subject,
			&candidates,
			&sig.ReceivedAt,
			&sig.RecordedAt,
			&sig.Resolved,
		)
		if err != nil {
			return nil, err
		}
		sig.Candidates = candidates
		result = append(result, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveSignal marks a review signal handled. Returns sql.ErrNoRows
// when the id is unknown or already resolved.
func (s *Store) ResolveSignal(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryResolveSignal, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// Compile-time interface assertion
var _ ledger.Store = (*Store)(nil)
