package api

import (
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

type CreateApplicationRequest struct {
	JobID    string `json:"job_id"`
	Company  string `json:"company"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`

	// AppliedAt is RFC3339; defaults to now when omitted.
	AppliedAt string `json:"applied_at,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type ApplicationResponse struct {
	JobID         string `json:"job_id"`
	Company       string `json:"company"`
	Title         string `json:"title"`
	Location      string `json:"location,omitempty"`
	AppliedAt     string `json:"applied_at"`
	CurrentStatus string `json:"current_status"`
	Notes         string `json:"notes,omitempty"`

	History []HistoryEntryResponse `json:"history,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type HistoryEntryResponse struct {
	Status     string `json:"status"`
	Source     string `json:"source"`
	Promoted   bool   `json:"promoted"`
	RecordedAt string `json:"recorded_at"`
}

type UpdateStatusResponse struct {
	JobID   string `json:"job_id"`
	Outcome string `json:"outcome"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ListApplicationsResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

type SignalResponse struct {
	ID         string   `json:"id"`
	MessageID  string   `json:"message_id"`
	Reason     string   `json:"reason"`
	Status     string   `json:"status"`
	JobIDHint  string   `json:"job_id_hint,omitempty"`
	Company    string   `json:"company,omitempty"`
	Subject    string   `json:"subject"`
	Candidates []string `json:"candidates,omitempty"`
	ReceivedAt string   `json:"received_at"`
	RecordedAt string   `json:"recorded_at"`
	Resolved   bool     `json:"resolved"`
}

type ListSignalsResponse struct {
	Signals []SignalResponse `json:"signals"`
}

type ScanResponse struct {
	Fetched    int `json:"fetched"`
	Applied    int `json:"applied"`
	Recorded   int `json:"recorded"`
	Duplicates int `json:"duplicates"`
	Ambiguous  int `json:"ambiguous"`
	Unmatched  int `json:"unmatched"`
	Irrelevant int `json:"irrelevant"`
	Errors     int `json:"errors"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func applicationResponse(app domain.Application, withHistory bool) ApplicationResponse {
	resp := ApplicationResponse{
		JobID:         app.JobID,
		Company:       app.Company,
		Title:         app.Title,
		Location:      app.Location,
		AppliedAt:     formatTime(app.AppliedAt),
		CurrentStatus: string(app.CurrentStatus),
		Notes:         app.Notes,
		CreatedAt:     formatTime(app.CreatedAt),
		UpdatedAt:     formatTime(app.UpdatedAt),
	}
	if withHistory {
		resp.History = make([]HistoryEntryResponse, len(app.History))
		for i, e := range app.History {
			resp.History[i] = HistoryEntryResponse{
				Status:     string(e.Status),
				Source:     e.Source,
				Promoted:   e.Promoted,
				RecordedAt: formatTime(e.RecordedAt),
			}
		}
	}
	return resp
}

func signalResponse(sig domain.Signal) SignalResponse {
	return SignalResponse{
		ID:         sig.ID.String(),
		MessageID:  sig.MessageID,
		Reason:     string(sig.Reason),
		Status:     string(sig.Status),
		JobIDHint:  sig.JobIDHint,
		Company:    sig.Company,
		Subject:    sig.Subject,
		Candidates: sig.Candidates,
		ReceivedAt: formatTime(sig.ReceivedAt),
		RecordedAt: formatTime(sig.RecordedAt),
		Resolved:   sig.Resolved,
	}
}
