package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academia-ops/academia-api/internal/models"
)

// PaymentRepository provides database access for payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments matching the filter together with a total count.
// Rows carry the student name and tuition so account summaries can be
// derived without a second lookup.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	baseQuery := `FROM payments p JOIN students s ON s.id = p.student_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"payment_date": "p.payment_date",
		"amount":       "p.amount",
		"created_at":   "p.created_at",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "p.payment_date"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf(`SELECT p.id, p.student_id, p.amount, p.method, p.note, p.payment_date, p.recorded_by, p.created_at, s.full_name AS student_name, s.total_tuition %s ORDER BY %s %s LIMIT %d OFFSET %d`, baseQuery, sortColumn, sortOrder, pageSize, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	return payments, total, nil
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, amount, method, note, payment_date, recorded_by, created_at FROM payments WHERE id = $1 LIMIT 1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &payment, nil
}

// AmountsByStudent returns every payment amount recorded for one student.
func (r *PaymentRepository) AmountsByStudent(ctx context.Context, studentID string) ([]float64, error) {
	const query = `SELECT amount FROM payments WHERE student_id = $1`
	var amounts []float64
	if err := r.db.SelectContext(ctx, &amounts, query, studentID); err != nil {
		return nil, fmt.Errorf("payment amounts by student: %w", err)
	}
	return amounts, nil
}

// AllStudentAmounts returns every payment amount for active students,
// tagged with the owning student. Grouping happens in the caller.
func (r *PaymentRepository) AllStudentAmounts(ctx context.Context) ([]models.StudentAmount, error) {
	const query = `SELECT p.student_id, p.amount FROM payments p JOIN students s ON s.id = p.student_id WHERE s.active = TRUE`
	var rows []models.StudentAmount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("all student payment amounts: %w", err)
	}
	return rows, nil
}

// ListForExport returns every payment with student context, optionally
// scoped to one student. Export jobs stream the full history.
func (r *PaymentRepository) ListForExport(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	query := `SELECT p.id, p.student_id, p.amount, p.method, p.note, p.payment_date, p.recorded_by, p.created_at, s.full_name AS student_name, s.total_tuition FROM payments p JOIN students s ON s.id = p.student_id`
	var args []interface{}
	if studentID != "" {
		query += ` WHERE p.student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY p.payment_date ASC`

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments for export: %w", err)
	}
	return payments, nil
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = payment.CreatedAt
	}

	const query = `INSERT INTO payments (id, student_id, amount, method, note, payment_date, recorded_by, created_at) VALUES (:id, :student_id, :amount, :method, :note, :payment_date, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Delete removes a payment permanently.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM payments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
