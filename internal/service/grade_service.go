package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/repository"
	"github.com/academia-ops/academia-api/internal/tuition"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
)

type gradeRepositoryIface interface {
	Create(ctx context.Context, grade *models.Grade) error
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error)
	ListForExport(ctx context.Context, studentID string) ([]models.GradeDetail, error)
	ScoresByStudent(ctx context.Context, studentID string) ([]float64, error)
	Delete(ctx context.Context, id string) error
}

type subjectRepositoryIface interface {
	List(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type gradeAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordGradeRequest is the payload for recording a score.
type RecordGradeRequest struct {
	StudentID  string     `json:"student_id" validate:"required"`
	SubjectID  string     `json:"subject_id" validate:"required"`
	Score      float64    `json:"score" validate:"gte=0,lte=100"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// CreateSubjectRequest is the payload for registering a subject.
type CreateSubjectRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// GradeService provides grade recording and reporting use cases.
type GradeService struct {
	grades    gradeRepositoryIface
	subjects  subjectRepositoryIface
	students  gradeStudentRepository
	audits    gradeAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs a GradeService instance.
func NewGradeService(grades gradeRepositoryIface, subjects subjectRepositoryIface, students gradeStudentRepository, audits gradeAuditRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{grades: grades, subjects: subjects, students: students, audits: audits, validator: validate, logger: logger}
}

// Record stores a new grade. A duplicate (student, subject, recorded_at)
// entry is reported as a conflict.
func (s *GradeService) Record(ctx context.Context, req RecordGradeRequest, recordedBy *string) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	grade := &models.Grade{
		StudentID:  req.StudentID,
		SubjectID:  req.SubjectID,
		Score:      req.Score,
		RecordedBy: recordedBy,
	}
	if req.RecordedAt != nil {
		grade.RecordedAt = *req.RecordedAt
	}

	if err := s.grades.Create(ctx, grade); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "grade already recorded for this student, subject and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	if body, err := json.Marshal(grade); err == nil {
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     recordedBy,
			Action:     models.AuditActionGradeRecord,
			Resource:   "grades",
			ResourceID: &grade.ID,
			NewValues:  body,
		}); err != nil {
			s.logger.Warn("failed to record grade audit log", zap.Error(err))
		}
	}

	return grade, nil
}

// List returns grades matching the filter with pagination metadata.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, models.Pagination, error) {
	grades, total, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return grades, models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Report returns a student's complete grade history with their derived
// average. The average is absent when the student has no recorded
// scores. The listing is unpaginated so it always covers the same
// grades the average is computed from.
func (s *GradeService) Report(ctx context.Context, studentID string) (*models.StudentGradeReport, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grades, err := s.grades.ListForExport(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	scores, err := s.grades.ScoresByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	return &models.StudentGradeReport{
		StudentID: studentID,
		Average:   tuition.AverageGrade(scores),
		Grades:    grades,
	}, nil
}

// Delete removes a grade entry.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.grades.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

// ListSubjects returns all registered subjects.
func (s *GradeService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// CreateSubject registers a new subject.
func (s *GradeService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{Code: req.Code, Name: req.Name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// DeleteSubject removes a subject from the catalog. Subjects still
// referenced by grades are rejected by the database.
func (s *GradeService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
