package api

import (
	"strings"
	"testing"
)

func TestValidateCreateApplication_ValidRequest(t *testing.T) {
	req := CreateApplicationRequest{
		JobID:     "swe-123",
		Company:   "Acme",
		Title:     "Software Engineer",
		Location:  "Remote",
		AppliedAt: "2026-03-18T09:00:00Z",
	}

	if err := validateCreateApplication(req); err != nil {
		t.Errorf("valid request should not return error, got: %v", err)
	}
}

func TestValidateCreateApplication_RequiredFields(t *testing.T) {
	base := CreateApplicationRequest{
		JobID:   "swe-123",
		Company: "Acme",
		Title:   "Software Engineer",
	}

	tests := []struct {
		name    string
		modify  func(r *CreateApplicationRequest)
		wantErr string
	}{
		{
			name:    "missing job_id",
			modify:  func(r *CreateApplicationRequest) { r.JobID = "" },
			wantErr: "job_id is required",
		},
		{
			name:    "missing company",
			modify:  func(r *CreateApplicationRequest) { r.Company = "" },
			wantErr: "company is required",
		},
		{
			name:    "missing title",
			modify:  func(r *CreateApplicationRequest) { r.Title = "" },
			wantErr: "title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.modify(&req)
			err := validateCreateApplication(req)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateCreateApplication_AppliedAt(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty (defaults to now)", "", false},
		{"rfc3339", "2026-03-18T09:00:00Z", false},
		{"rfc3339 with offset", "2026-03-18T09:00:00+02:00", false},
		{"date only", "2026-03-18", true},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateApplicationRequest{
				JobID:     "swe-123",
				Company:   "Acme",
				Title:     "Engineer",
				AppliedAt: tt.value,
			}
			err := validateCreateApplication(req)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for applied_at %q", tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for applied_at %q: %v", tt.value, err)
			}
		})
	}
}

func TestValidateUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr string
	}{
		{"valid status", "viewed", ""},
		{"terminal status", "offer", ""},
		{"closed", "closed", ""},
		{"missing status", "", "status is required"},
		{"unknown status", "hired", "unknown status"},
		{"wrong case", "Viewed", "unknown status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUpdateStatus(UpdateStatusRequest{Status: tt.status})
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error for status %q: %v", tt.status, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for status %q", tt.status)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
