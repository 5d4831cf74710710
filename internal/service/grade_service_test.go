package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
)

type gradeRepoStub struct {
	grades       map[string]*models.Grade
	details      []models.GradeDetail
	scores       map[string][]float64
	duplicateKey bool
}

func newGradeRepoStub() *gradeRepoStub {
	return &gradeRepoStub{grades: map[string]*models.Grade{}, scores: map[string][]float64{}}
}

func (r *gradeRepoStub) Create(ctx context.Context, grade *models.Grade) error {
	if r.duplicateKey {
		return &pq.Error{Code: "23505"}
	}
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	r.grades[grade.ID] = grade
	r.scores[grade.StudentID] = append(r.scores[grade.StudentID], grade.Score)
	return nil
}

func (r *gradeRepoStub) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if len(r.details) > pageSize {
		return r.details[:pageSize], len(r.details), nil
	}
	return r.details, len(r.details), nil
}

func (r *gradeRepoStub) ListForExport(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	return r.details, nil
}

func (r *gradeRepoStub) ScoresByStudent(ctx context.Context, studentID string) ([]float64, error) {
	return r.scores[studentID], nil
}

func (r *gradeRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.grades[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.grades, id)
	return nil
}

type subjectRepoStub struct {
	subjects map[string]*models.Subject
}

func (r *subjectRepoStub) List(ctx context.Context) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, *s)
	}
	return out, nil
}

func (r *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	s, ok := r.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	r.subjects[subject.ID] = subject
	return nil
}

func (r *subjectRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.subjects, id)
	return nil
}

func newGradeServiceFixture() (*GradeService, *gradeRepoStub) {
	grades := newGradeRepoStub()
	subjects := &subjectRepoStub{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Code: "MATH", Name: "Mathematics"},
	}}
	students := &paymentStudentStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FullName: "Ana Souza", Active: true}},
	}}
	svc := NewGradeService(grades, subjects, students, &auditStub{}, nil, zap.NewNop())
	return svc, grades
}

func TestGradeServiceRecord(t *testing.T) {
	svc, _ := newGradeServiceFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		Score:     85,
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.RecordedAt.IsZero())
}

func TestGradeServiceRecordZeroScoreIsValid(t *testing.T) {
	svc, _ := newGradeServiceFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		Score:     0,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, grade.Score)
}

func TestGradeServiceRecordDuplicateConflict(t *testing.T) {
	svc, repo := newGradeServiceFixture()
	repo.duplicateKey = true

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		Score:     85,
	}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGradeServiceRecordScoreOutOfRange(t *testing.T) {
	svc, _ := newGradeServiceFixture()

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		Score:     120,
	}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeServiceReport(t *testing.T) {
	svc, repo := newGradeServiceFixture()
	repo.scores["stu-1"] = []float64{80, 81}

	report, err := svc.Report(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NotNil(t, report.Average)
	assert.Equal(t, 80.5, *report.Average)
}

func TestGradeServiceReportListsEveryGrade(t *testing.T) {
	svc, repo := newGradeServiceFixture()
	for i := 0; i < 150; i++ {
		score := float64(i % 101)
		repo.details = append(repo.details, models.GradeDetail{
			Grade: models.Grade{ID: uuid.NewString(), StudentID: "stu-1", SubjectID: "sub-1", Score: score},
		})
		repo.scores["stu-1"] = append(repo.scores["stu-1"], score)
	}

	report, err := svc.Report(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, report.Grades, 150)
	require.NotNil(t, report.Average)

	var sum float64
	for _, score := range repo.scores["stu-1"] {
		sum += score
	}
	assert.InDelta(t, sum/150, *report.Average, 0.05)
}

func TestGradeServiceReportNoGrades(t *testing.T) {
	svc, _ := newGradeServiceFixture()

	report, err := svc.Report(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Nil(t, report.Average)
	assert.Empty(t, report.Grades)
}

func TestGradeServiceDeleteSubject(t *testing.T) {
	svc, _ := newGradeServiceFixture()

	require.NoError(t, svc.DeleteSubject(context.Background(), "sub-1"))

	err := svc.DeleteSubject(context.Background(), "sub-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
