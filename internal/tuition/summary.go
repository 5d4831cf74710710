// Package tuition derives payment completeness from a student's tuition
// obligation and recorded payments. The dashboard, the payments list and the
// student detail view all consume the same derivation, so the classification
// lives here and nowhere else.
package tuition

import "math"

// Status classifies how much of the tuition obligation has been covered.
type Status string

const (
	// StatusPaid covers exact payment and overpayment, including a zero
	// obligation with no payments.
	StatusPaid Status = "PAID"
	// StatusPartial means some money came in but the balance is still open.
	StatusPartial Status = "PARTIAL_PAYMENT"
	// StatusUnpaid means nothing (or a net non-positive amount) was paid.
	StatusUnpaid Status = "UNPAID"
)

// Summary is the derived payment state for a single student. It is never
// persisted; callers recompute it whenever tuition or payments change.
type Summary struct {
	TotalPaid float64 `json:"total_paid"`
	Balance   float64 `json:"balance"`
	Status    Status  `json:"status"`
}

// ComputeSummary sums the payment amounts against the tuition obligation.
// Amounts may be negative (refunds); the balance is not clamped, so an
// overpayment yields a negative balance.
func ComputeSummary(totalTuition float64, payments []float64) Summary {
	var totalPaid float64
	for _, amount := range payments {
		totalPaid += amount
	}

	summary := Summary{
		TotalPaid: totalPaid,
		Balance:   totalTuition - totalPaid,
	}

	switch {
	case totalPaid >= totalTuition:
		summary.Status = StatusPaid
	case totalPaid > 0:
		summary.Status = StatusPartial
	default:
		summary.Status = StatusUnpaid
	}
	return summary
}

// CountPending returns how many students still owe money, i.e. whose
// individually computed balance is strictly positive. Payments are grouped by
// exact student ID; a student present in tuitionByStudent with no payments
// counts when their tuition is positive.
func CountPending(tuitionByStudent map[string]float64, paymentsByStudent map[string][]float64) int {
	pending := 0
	for studentID, totalTuition := range tuitionByStudent {
		summary := ComputeSummary(totalTuition, paymentsByStudent[studentID])
		if summary.Balance > 0 {
			pending++
		}
	}
	return pending
}

// AverageGrade returns the arithmetic mean rounded to one decimal place,
// half away from zero. It returns nil for an empty input: zero is a valid
// earned grade and must not stand in for "no data".
func AverageGrade(grades []float64) *float64 {
	if len(grades) == 0 {
		return nil
	}
	var total float64
	for _, grade := range grades {
		total += grade
	}
	mean := total / float64(len(grades))
	rounded := math.Round(mean*10) / 10
	return &rounded
}
