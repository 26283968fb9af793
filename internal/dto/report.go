package dto

import "github.com/xralks/Bancodealimentos/internal/models"

// ReportRequest captures POST /reports/donations payload.
type ReportRequest struct {
	Type          models.ReportType   `json:"type"`
	Format        models.ReportFormat `json:"format"`
	ProductID     string              `json:"product_id,omitempty"`
	InstitutionID string              `json:"institution_id,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
