package tuition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSummaryClassification(t *testing.T) {
	tests := []struct {
		name         string
		totalTuition float64
		payments     []float64
		wantPaid     float64
		wantBalance  float64
		wantStatus   Status
	}{
		{
			name:         "no payments yields unpaid",
			totalTuition: 300,
			payments:     nil,
			wantPaid:     0,
			wantBalance:  300,
			wantStatus:   StatusUnpaid,
		},
		{
			name:         "partial payment",
			totalTuition: 500,
			payments:     []float64{200},
			wantPaid:     200,
			wantBalance:  300,
			wantStatus:   StatusPartial,
		},
		{
			name:         "exact payment",
			totalTuition: 500,
			payments:     []float64{300, 200},
			wantPaid:     500,
			wantBalance:  0,
			wantStatus:   StatusPaid,
		},
		{
			name:         "overpayment keeps negative balance",
			totalTuition: 100,
			payments:     []float64{60, 50},
			wantPaid:     110,
			wantBalance:  -10,
			wantStatus:   StatusPaid,
		},
		{
			name:         "zero tuition with no payments is paid",
			totalTuition: 0,
			payments:     nil,
			wantPaid:     0,
			wantBalance:  0,
			wantStatus:   StatusPaid,
		},
		{
			name:         "refund exceeding payments is unpaid",
			totalTuition: 400,
			payments:     []float64{100, -150},
			wantPaid:     -50,
			wantBalance:  450,
			wantStatus:   StatusUnpaid,
		},
		{
			name:         "net zero payments is unpaid",
			totalTuition: 400,
			payments:     []float64{100, -100},
			wantPaid:     0,
			wantBalance:  400,
			wantStatus:   StatusUnpaid,
		},
		{
			name:         "refund after full payment keeps partial",
			totalTuition: 400,
			payments:     []float64{400, -100},
			wantPaid:     300,
			wantBalance:  100,
			wantStatus:   StatusPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSummary(tt.totalTuition, tt.payments)
			assert.Equal(t, tt.wantPaid, got.TotalPaid)
			assert.Equal(t, tt.wantBalance, got.Balance)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestCountPending(t *testing.T) {
	tuition := map[string]float64{
		"stu-1": 500,
		"stu-2": 500,
	}
	payments := map[string][]float64{
		"stu-1": {500},
		"stu-2": {200},
	}
	assert.Equal(t, 1, CountPending(tuition, payments))
}

func TestCountPendingNoPaymentsRecorded(t *testing.T) {
	tuition := map[string]float64{
		"stu-1": 300,
		"stu-2": 0,
	}
	assert.Equal(t, 1, CountPending(tuition, nil))
}

func TestCountPendingGroupsByExactID(t *testing.T) {
	tuition := map[string]float64{
		"stu-1":  100,
		"STU-1":  100,
		"stu-10": 100,
	}
	payments := map[string][]float64{
		"stu-1": {100},
	}
	// Only "stu-1" is settled; casing and prefix lookalikes stay pending.
	assert.Equal(t, 2, CountPending(tuition, payments))
}

func TestAverageGradeEmptyIsNil(t *testing.T) {
	assert.Nil(t, AverageGrade(nil))
	assert.Nil(t, AverageGrade([]float64{}))
}

func TestAverageGradeRoundsToOneDecimal(t *testing.T) {
	got := AverageGrade([]float64{80, 90, 70})
	require.NotNil(t, got)
	assert.Equal(t, 80.0, *got)

	got = AverageGrade([]float64{80, 81})
	require.NotNil(t, got)
	assert.Equal(t, 80.5, *got)

	// 83.5 + 84.2 + 85.1 = 252.8 / 3 = 84.2666... -> 84.3
	got = AverageGrade([]float64{83.5, 84.2, 85.1})
	require.NotNil(t, got)
	assert.Equal(t, 84.3, *got)
}

func TestAverageGradeZeroIsValid(t *testing.T) {
	got := AverageGrade([]float64{0, 0})
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)
}
