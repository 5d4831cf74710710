package dto

// DashboardResponse captures the aggregated operator dashboard payload.
type DashboardResponse struct {
	Students StudentsSection `json:"students"`
	Payments PaymentsSection `json:"payments"`
	Grades   GradesSection   `json:"grades"`
}

// StudentsSection summarises the enrolled population.
type StudentsSection struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// PaymentsSection summarises tuition collection across all students.
type PaymentsSection struct {
	TotalBilled    float64         `json:"totalBilled"`
	TotalCollected float64         `json:"totalCollected"`
	Outstanding    float64         `json:"outstanding"`
	PendingCount   int             `json:"pendingCount"`
	ByStatus       StatusBreakdown `json:"byStatus"`
}

// StatusBreakdown counts students per derived payment status.
type StatusBreakdown struct {
	Paid    int `json:"paid"`
	Partial int `json:"partial"`
	Unpaid  int `json:"unpaid"`
}

// GradesSection summarises recorded scores.
type GradesSection struct {
	// OverallAverage is nil when no grades are recorded; zero is a valid
	// earned grade and never a placeholder.
	OverallAverage *float64 `json:"overallAverage"`
	RecordedCount  int      `json:"recordedCount"`
}
