package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/academia-ops/academia-api/internal/models"
)

// pq unique_violation error code.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether the error is a Postgres unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// GradeRepository provides database access for grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new instance of GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a new grade. The (student_id, subject_id, recorded_at)
// unique constraint surfaces duplicate entries as a unique violation.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = time.Now().UTC()
	}
	if grade.RecordedAt.IsZero() {
		grade.RecordedAt = grade.CreatedAt
	}

	const query = `INSERT INTO grades (id, student_id, subject_id, score, recorded_at, recorded_by, created_at) VALUES (:id, :student_id, :subject_id, :score, :recorded_at, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// List returns grades matching the filter with subject context.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	baseQuery := `FROM grades gr JOIN subjects sub ON sub.id = gr.subject_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("gr.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("gr.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT gr.id, gr.student_id, gr.subject_id, gr.score, gr.recorded_at, gr.recorded_by, gr.created_at, sub.code AS subject_code, sub.name AS subject_name %s ORDER BY gr.recorded_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}

	return grades, total, nil
}

// ListForExport returns every grade with subject and student context,
// optionally scoped to one student.
func (r *GradeRepository) ListForExport(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	query := `SELECT gr.id, gr.student_id, gr.subject_id, gr.score, gr.recorded_at, gr.recorded_by, gr.created_at, sub.code AS subject_code, sub.name AS subject_name FROM grades gr JOIN subjects sub ON sub.id = gr.subject_id`
	var args []interface{}
	if studentID != "" {
		query += ` WHERE gr.student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY gr.recorded_at ASC`

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades for export: %w", err)
	}
	return grades, nil
}

// ScoresByStudent returns every recorded score for one student.
func (r *GradeRepository) ScoresByStudent(ctx context.Context, studentID string) ([]float64, error) {
	const query = `SELECT score FROM grades WHERE student_id = $1`
	var scores []float64
	if err := r.db.SelectContext(ctx, &scores, query, studentID); err != nil {
		return nil, fmt.Errorf("scores by student: %w", err)
	}
	return scores, nil
}

// AllScores returns every recorded score for active students.
func (r *GradeRepository) AllScores(ctx context.Context) ([]float64, error) {
	const query = `SELECT gr.score FROM grades gr JOIN students s ON s.id = gr.student_id WHERE s.active = TRUE`
	var scores []float64
	if err := r.db.SelectContext(ctx, &scores, query); err != nil {
		return nil, fmt.Errorf("all scores: %w", err)
	}
	return scores, nil
}

// Delete removes a grade permanently.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
