package models

import "time"

// Subject describes a course a grade can be recorded against.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Grade represents a single score entry for a student and subject.
// Rows are unique per (student, subject, recorded_at); the database
// constraint is the arbiter and a collision surfaces as a conflict.
type Grade struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	Score      float64   `db:"score" json:"score"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	RecordedBy *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GradeDetail joins a grade with its subject for list views.
type GradeDetail struct {
	Grade
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	StudentID string
	SubjectID string
	Page      int
	PageSize  int
}

// StudentGradeReport summarises a student's recorded scores.
type StudentGradeReport struct {
	StudentID string        `json:"student_id"`
	Average   *float64      `json:"average,omitempty"`
	Grades    []GradeDetail `json:"grades"`
}
