package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/dto"
	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/repository"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
	"github.com/academia-ops/academia-api/pkg/jobs"
)

type exportRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
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

func (r *exportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, job := range r.jobs {
		if (job.Status == models.ExportStatusFinished || job.Status == models.ExportStatusFailed) && job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed, nil
}

type dispatcherStub struct {
	enqueued []jobs.Job
	fail     bool
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.fail {
		return assertAnError
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

var assertAnError = errStub("enqueue failed")

type errStub string

func (e errStub) Error() string { return string(e) }

func TestExportJobServiceCreateJob(t *testing.T) {
	repo := newExportRepoStub()
	dispatcher := &dispatcherStub{}
	svc := NewExportJobService(repo, dispatcher, nil, zap.NewNop(), ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:   models.ExportTypePayments,
		Format: models.ExportFormatCSV,
	}, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
}

func TestExportJobServiceCreateJobInvalidType(t *testing.T) {
	svc := NewExportJobService(newExportRepoStub(), &dispatcherStub{}, nil, zap.NewNop(), ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:   "unknown",
		Format: models.ExportFormatCSV,
	}, "usr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportJobServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := newExportRepoStub()
	svc := NewExportJobService(repo, &dispatcherStub{fail: true}, nil, zap.NewNop(), ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:   models.ExportTypeSummary,
		Format: models.ExportFormatPDF,
	}, "usr-1")
	require.Error(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceGetStatusOwnership(t *testing.T) {
	repo := newExportRepoStub()
	url := "/api/v1/export/token"
	repo.jobs["job-1"] = &models.ExportJob{
		ID:        "job-1",
		Type:      models.ExportTypeGrades,
		Status:    models.ExportStatusFinished,
		Progress:  100,
		ResultURL: &url,
		CreatedBy: "usr-1",
	}
	svc := NewExportJobService(repo, &dispatcherStub{}, nil, zap.NewNop(), ExportJobConfig{})

	resp, err := svc.GetStatus(context.Background(), "job-1", "usr-1", models.RoleOperator)
	require.NoError(t, err)
	require.NotNil(t, resp.ResultURL)
	assert.Equal(t, url, *resp.ResultURL)

	_, err = svc.GetStatus(context.Background(), "job-1", "usr-2", models.RoleOperator)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.GetStatus(context.Background(), "job-1", "usr-2", models.RoleAdmin)
	require.NoError(t, err)
}

func TestExportWorkerHandleFinishes(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeSummary,
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	worker := NewExportWorker(repo, generatorStub{}, nil, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestExportWorkerHandleRetriesThenFails(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeSummary,
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	worker := NewExportWorker(repo, generatorStub{fail: true}, nil, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}

type generatorStub struct {
	fail bool
}

func (g generatorStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if g.fail {
		return nil, errStub("generate failed")
	}
	return &ExportResult{URL: "/api/v1/export/generated-token"}, nil
}
