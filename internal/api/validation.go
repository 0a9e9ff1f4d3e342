package api

import (
	"fmt"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

func validateCreateApplication(req CreateApplicationRequest) error {
	if req.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if req.Company == "" {
		return fmt.Errorf("company is required")
	}
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.AppliedAt != "" {
		if _, err := time.Parse(time.RFC3339, req.AppliedAt); err != nil {
			return fmt.Errorf("invalid applied_at: %w", err)
		}
	}
	return nil
}

func validateUpdateStatus(req UpdateStatusRequest) error {
	if req.Status == "" {
		return fmt.Errorf("status is required")
	}
	if !domain.Status(req.Status).Valid() {
		return fmt.Errorf("unknown status %q", req.Status)
	}
	return nil
}
