// Package api exposes the ledger over HTTP for the dashboard and the
// submission bot: read endpoints, record ingest, manual status override,
// the review queue, and an on-demand scan trigger.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/scanner"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Ledger is the write/read surface the handler needs from the ledger.
type Ledger interface {
	Get(ctx context.Context, jobID string) (*domain.Application, error)
	ListFiltered(ctx context.Context, f ledger.Filter) ([]domain.Application, error)
	Override(ctx context.Context, jobID string, status domain.Status, notes string) (ledger.ApplyResult, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// ApplicationCreator inserts new records (the submission bot's contract).
type ApplicationCreator interface {
	CreateApplication(ctx context.Context, app domain.Application) error
}

// SignalStore serves the review queue endpoints.
type SignalStore interface {
	ListSignals(ctx context.Context, unresolvedOnly bool, limit int) ([]domain.Signal, error)
	ResolveSignal(ctx context.Context, id uuid.UUID) error
}

// ScanTrigger runs one scan cycle on demand.
type ScanTrigger interface {
	RunOnce(ctx context.Context) (scanner.CycleReport, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	ledger  Ledger
	creator ApplicationCreator
	signals SignalStore
	scans   ScanTrigger   // optional, nil = /scan disabled
	db      HealthChecker // optional, nil = simple health only
	clock   func() time.Time
}

func NewHandler(led Ledger, creator ApplicationCreator, signals SignalStore) *Handler {
	return &Handler{
		ledger:  led,
		creator: creator,
		signals: signals,
		clock:   time.Now,
	}
}

// WithScanTrigger enables the POST /scan endpoint.
func (h *Handler) WithScanTrigger(scans ScanTrigger) *Handler {
	h.scans = scans
	return h
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithClock overrides the time source. Used by tests.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	h.clock = clock
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/applications" && r.Method == http.MethodPost:
		h.createApplication(w, r)

	case path == "/applications" && r.Method == http.MethodGet:
		h.listApplications(w, r)

	case strings.HasSuffix(path, "/status") && r.Method == http.MethodPost:
		h.updateStatus(w, r)

	case strings.HasPrefix(path, "/applications/") && r.Method == http.MethodGet:
		h.getApplication(w, r)

	case path == "/stats" && r.Method == http.MethodGet:
		h.stats(w, r)

	case path == "/signals" && r.Method == http.MethodGet:
		h.listSignals(w, r)

	case strings.HasSuffix(path, "/resolve") && r.Method == http.MethodPost:
		h.resolveSignal(w, r)

	case path == "/scan" && r.Method == http.MethodPost:
		h.triggerScan(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateCreateApplication(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appliedAt := h.clock().UTC()
	if req.AppliedAt != "" {
		appliedAt, _ = time.Parse(time.RFC3339, req.AppliedAt)
	}

	app := domain.Application{
		JobID:         req.JobID,
		Company:       req.Company,
		Title:         req.Title,
		Location:      req.Location,
		AppliedAt:     appliedAt,
		CurrentStatus: domain.StatusApplied,
	}

	if err := h.creator.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			writeError(w, http.StatusConflict, "application already exists")
			return
		}
		log.Printf("api: create application error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create application")
		return
	}

	writeJSON(w, http.StatusCreated, applicationResponse(app, false))
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := ledger.Filter{Company: r.URL.Query().Get("company")}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.Status(statusStr)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(statusStr))
			return
		}
		filter.Status = status
	}

	apps, err := h.ledger.ListFiltered(r.Context(), filter)
	if err != nil {
		log.Printf("api: list applications error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	if offset > len(apps) {
		offset = len(apps)
	}
	end := offset + limit
	if end > len(apps) {
		end = len(apps)
	}
	apps = apps[offset:end]

	resp := ListApplicationsResponse{Applications: make([]ApplicationResponse, len(apps))}
	for i, app := range apps {
		resp.Applications[i] = applicationResponse(app, false)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	// Path: /applications/{job_id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != "applications" || parts[1] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	app, err := h.ledger.Get(r.Context(), parts[1])
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		log.Printf("api: get application error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get application")
		return
	}

	writeJSON(w, http.StatusOK, applicationResponse(*app, true))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	// Path: /applications/{job_id}/status
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "applications" || parts[2] != "status" || parts[1] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	jobID := parts[1]

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateUpdateStatus(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledger.Override(r.Context(), jobID, domain.Status(req.Status), req.Notes)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		log.Printf("api: update status error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	writeJSON(w, http.StatusOK, UpdateStatusResponse{
		JobID:   jobID,
		Outcome: string(result.Outcome),
		From:    string(result.From),
		To:      string(result.To),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		log.Printf("api: stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) listSignals(w http.ResponseWriter, r *http.Request) {
	limit, _, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unresolvedOnly := r.URL.Query().Get("all") != "true"

	signals, err := h.signals.ListSignals(r.Context(), unresolvedOnly, limit)
	if err != nil {
		log.Printf("api: list signals error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	resp := ListSignalsResponse{Signals: make([]SignalResponse, len(signals))}
	for i, sig := range signals {
		resp.Signals[i] = signalResponse(sig)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) resolveSignal(w http.ResponseWriter, r *http.Request) {
	// Path: /signals/{id}/resolve
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "signals" || parts[2] != "resolve" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return
	}

	if err := h.signals.ResolveSignal(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "signal not found")
			return
		}
		log.Printf("api: resolve signal error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve signal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) triggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scans == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not configured")
		return
	}

	report, err := h.scans.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, scanner.ErrCycleInProgress) {
			writeError(w, http.StatusConflict, "scan cycle already running")
			return
		}
		log.Printf("api: scan error: %v", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Fetched:    report.Fetched,
		Applied:    report.Applied,
		Recorded:   report.Recorded,
		Duplicates: report.Duplicates,
		Ambiguous:  report.Ambiguous,
		Unmatched:  report.Unmatched,
		Irrelevant: report.Irrelevant,
		Errors:     report.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// parsePagination extracts and validates limit/offset query parameters.
// Returns DefaultLimit if limit is not specified, and 0 for offset if not specified.
// Returns an error if limit exceeds MaxLimit or if values are negative/invalid.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
		if limit < 0 {
			return 0, 0, strconv.ErrRange
		}
		if limit > MaxLimit {
			return 0, 0, &limitExceededError{max: MaxLimit}
		}
		if limit == 0 {
			limit = DefaultLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
		if offset < 0 {
			return 0, 0, strconv.ErrRange
		}
	}

	return limit, offset, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}
