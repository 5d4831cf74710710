package models

import (
	"time"

	"github.com/academia-ops/academia-api/internal/tuition"
)

// Payment represents a single remittance toward a student's tuition.
// Amount may be negative (refund); the store does not enforce positivity.
type Payment struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Amount      float64   `db:"amount" json:"amount"`
	Method      string    `db:"method" json:"method"`
	Note        string    `db:"note" json:"note"`
	PaymentDate time.Time `db:"payment_date" json:"payment_date"`
	RecordedBy  *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PaymentFilter scopes payment list queries.
type PaymentFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PaymentDetail joins a payment with its student for list views.
type PaymentDetail struct {
	Payment
	StudentName  string  `db:"student_name" json:"student_name"`
	TotalTuition float64 `db:"total_tuition" json:"total_tuition"`
}

// StudentAmount is a single payment amount tagged with its student,
// used to group payments per student before deriving summaries.
type StudentAmount struct {
	StudentID string  `db:"student_id" json:"student_id"`
	Amount    float64 `db:"amount" json:"amount"`
}

// StudentTuition pairs a student with their tuition obligation.
type StudentTuition struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	FullName     string  `db:"full_name" json:"full_name"`
	TotalTuition float64 `db:"total_tuition" json:"total_tuition"`
}

// PaymentRow is a payments-list row enriched with the student's derived
// account summary at the time of the query.
type PaymentRow struct {
	PaymentDetail
	Account tuition.Summary `json:"account"`
}
