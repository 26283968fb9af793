package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/internal/repository"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	var owned []models.ReportJob
	for _, job := range r.jobs {
		if job.CreatedBy == userID {
			owned = append(owned, *job)
		}
	}
	return owned, nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var finished []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

var (
	adminSession  = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, FullName: "Admin"}
	vendorSession = &models.JWTClaims{UserID: "vendor-1", Role: models.RoleLocatario, FullName: "Feria Central"}
	instSession   = &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstitucion, FullName: "Hogar San José"}
)

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _, _ := newExportServiceForTest(t)
	service := NewReportService(repo, queue, exportSvc, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return service, repo, queue, exportSvc
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), adminSession, dto.ReportRequest{
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Contains(t, repo.jobs, resp.ID)
	assert.Equal(t, models.ReportTypeDonations, repo.jobs[resp.ID].Type)
	assert.Equal(t, adminSession.UserID, repo.jobs[resp.ID].CreatedBy)
}

func TestReportServiceCreateJobRejections(t *testing.T) {
	cases := []struct {
		name    string
		session *models.JWTClaims
		req     dto.ReportRequest
		code    string
	}{
		{name: "no session", session: nil, req: dto.ReportRequest{Format: models.ReportFormatCSV}, code: appErrors.ErrUnauthorized.Code},
		{name: "vendor", session: vendorSession, req: dto.ReportRequest{Format: models.ReportFormatCSV}, code: appErrors.ErrForbidden.Code},
		{name: "bad format", session: adminSession, req: dto.ReportRequest{Format: "xlsx"}, code: appErrors.ErrValidation.Code},
		{name: "bad type", session: adminSession, req: dto.ReportRequest{Type: "grades", Format: models.ReportFormatPDF}, code: appErrors.ErrValidation.Code},
		{name: "inventory with filter", session: adminSession, req: dto.ReportRequest{Type: models.ReportTypeInventory, Format: models.ReportFormatPDF, ProductID: "p"}, code: appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, queue, _ := newReportServiceForTest(t)
			_, err := svc.CreateJob(context.Background(), tc.session, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.IsCode(err, tc.code), "got %v", err)
			assert.Empty(t, repo.jobs)
			assert.Empty(t, queue.jobs)
		})
	}
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = errors.New("queue full")
	_, err := svc.CreateJob(context.Background(), adminSession, dto.ReportRequest{Format: models.ReportFormatCSV})
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeDonations,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: adminSession.UserID,
	}
	repo.jobs[job.ID] = job
	resp, err := svc.GetStatus(context.Background(), adminSession, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Status, resp.Status)
	assert.Equal(t, job.Progress, resp.Progress)

	_, err = svc.GetStatus(context.Background(), vendorSession, job.ID)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.GetStatus(context.Background(), adminSession, "missing")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestReportServiceList(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	repo.jobs["a"] = &models.ReportJob{ID: "a", CreatedBy: adminSession.UserID, Status: models.ReportStatusQueued}
	repo.jobs["b"] = &models.ReportJob{ID: "b", CreatedBy: "someone-else", Status: models.ReportStatusQueued}

	items, err := svc.List(context.Background(), adminSession, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-download",
		Type:      models.ReportTypeDonations,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: adminSession.UserID,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	download.File.Close()

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	repo.jobs["queued"] = &models.ReportJob{ID: "queued", Type: models.ReportTypeDonations, Status: models.ReportStatusQueued}
	repo.jobs["done"] = &models.ReportJob{ID: "done", Type: models.ReportTypeDonations, Status: models.ReportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "queued", queue.jobs[0].ID)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ReportTypeDonations,
				Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "admin",
			},
		},
	}
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestReportWorkerHandleRequeuesBeforeLastAttempt(t *testing.T) {
	repo := &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {ID: "job-1", Type: models.ReportTypeInventory, Status: models.ReportStatusQueued},
		},
	}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	require.Equal(t, 0, repo.jobs["job-1"].Progress)
}

func TestReportWorkerHandleFailureRetries(t *testing.T) {
	repo := &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ReportTypeDonations,
				Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "admin",
			},
		},
	}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewReportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
}
