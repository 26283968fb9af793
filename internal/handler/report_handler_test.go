package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/middleware"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/internal/service"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	lastRequest dto.ReportRequest
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
}

func (m *reportServiceMock) CreateJob(ctx context.Context, session *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	m.lastRequest = req
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, session *models.JWTClaims, id string) (*dto.ReportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) List(ctx context.Context, session *models.JWTClaims, limit int) ([]dto.ReportStatusResponse, error) {
	if m.statusResp == nil {
		return []dto.ReportStatusResponse{}, nil
	}
	return []dto.ReportStatusResponse{*m.statusResp}, nil
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

var testAdmin = &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin, FullName: "Admin"}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestReportHandlerGenerateReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ReportRequest{Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/inventory", payload)
	c.Params = gin.Params{{Key: "type", Value: "inventory"}}
	c.Set(middleware.ContextUserKey, testAdmin)

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportTypeInventory, mockSvc.lastRequest.Type)
}

func TestReportHandlerGenerateReportForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{createErr: appErrors.ErrForbidden}, nil)

	c, w := newGinContext(http.MethodPost, "/reports/donations", []byte(`{"format":"pdf"}`))
	c.Params = gin.Params{{Key: "type", Value: "donations"}}

	handler.GenerateReport(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

const testJobID = "5d0c7a3b-2e1f-4a9b-8c7d-6e5f4a3b2c1d"

func TestReportHandlerReportStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: testJobID, Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/"+testJobID, nil)
	c.Params = gin.Params{{Key: "id", Value: testJobID}}
	c.Set(middleware.ContextUserKey, testAdmin)

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "FINISHED", data["status"])
}

func TestReportHandlerReportStatusMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, testAdmin)

	handler.ReportStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerListReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/reports", nil)
	c.Set(middleware.ContextUserKey, testAdmin)

	handler.ListReports(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerDownloadReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "donations*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("Fecha,Producto\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:      file,
			Filename:  "donations.csv",
			Format:    models.ReportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "donations.csv")
	assert.Equal(t, "Fecha,Producto\n", w.Body.String())
}
