package models

import (
	"time"

	"github.com/academia-ops/academia-api/internal/tuition"
)

// Student represents a learner enrolled in the academy.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	GuardianID   *string   `db:"guardian_id" json:"guardian_id,omitempty"`
	TotalTuition float64   `db:"total_tuition" json:"total_tuition"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with guardian context.
type StudentDetail struct {
	Student
	GuardianName *string `db:"guardian_name" json:"guardian_name,omitempty"`
}

// StudentAccount joins a student with their derived payment summary.
// The summary is recomputed on every read, never persisted.
type StudentAccount struct {
	StudentDetail
	Payments tuition.Summary `json:"payments"`
}
