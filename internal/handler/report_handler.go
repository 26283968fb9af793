package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/internal/service"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, session *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, session *models.JWTClaims, id string) (*dto.ReportStatusResponse, error)
	List(ctx context.Context, session *models.JWTClaims, limit int) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes asynchronous ledger exports.
type ReportHandler struct {
	service reportService
	logger  *zap.Logger
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{service: svc, logger: logger}
}

// GenerateReport godoc
// @Summary Queue an export
// @Description Queue a donations ledger or inventory export as CSV or PDF.
// @Tags Reports
// @Accept json
// @Produce json
// @Param type path string true "donations or inventory"
// @Param payload body dto.ReportRequest true "Export options"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{type} [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	if kind := c.Param("type"); kind != "" {
		req.Type = models.ReportType(kind)
	}
	job, err := h.service.CreateJob(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ListReports godoc
// @Summary Own exports
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum jobs"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), claimsFromContext(c), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ReportStatus godoc
// @Summary Export status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "report job not found")
	if !ok {
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// DownloadReport godoc
// @Summary Download export
// @Description Streams the generated file for a signed token.
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		h.logger.Warn("stat export file failed", zap.String("file", download.Filename), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}

	contentType := "text/csv; charset=utf-8"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Expires", download.ExpiresAt.UTC().Format(http.TimeFormat))
	c.Header("Cache-Control", "private, max-age="+fmt.Sprint(int(time.Until(download.ExpiresAt).Seconds())))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
