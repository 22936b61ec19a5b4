package tuition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

// standardYear mirrors the documented policy example: income band
// $20k-$100k mapping onto tuition $2k-$10k.
func standardYear() Input {
	return Input{
		MinimumIncome:  20000,
		MaximumIncome:  100000,
		MinimumTuition: 2000,
		MaximumTuition: 10000,
	}
}

func TestCalculateMidpointExample(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(60000)
	in.FullTime = 1

	result := Calculate(in, DefaultPolicy())

	assert.Equal(t, 6000.0, result.FullTimeRate)
	assert.Equal(t, 6000.0, result.SlidingScale)
	assert.Equal(t, 6000.0, result.SuggestedTuition)
}

func TestCalculateIncomeBelowMinimumFloors(t *testing.T) {
	for _, income := range []float64{0, 5000, 19999.99} {
		in := standardYear()
		in.GrossIncome = floatPtr(income)
		in.FullTime = 1

		result := Calculate(in, DefaultPolicy())
		assert.Equal(t, 2000.0, result.SlidingScale, "income %v", income)
	}
}

func TestCalculateIncomeAboveMaximumCaps(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(150000)
	in.FullTime = 1

	result := Calculate(in, DefaultPolicy())

	assert.Equal(t, 10000.0, result.SlidingScale)
	assert.Equal(t, 10000.0, result.MinimumTuition)
	assert.GreaterOrEqual(t, result.SuggestedTuition, 10000.0)
}

func TestCalculateAbsentIncomeFloors(t *testing.T) {
	in := standardYear()
	in.FullTime = 1

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 2000.0, result.SuggestedTuition)
}

func TestCalculateMonotonicInIncome(t *testing.T) {
	prev := -1.0
	for income := 0.0; income <= 200000; income += 2500 {
		in := standardYear()
		in.GrossIncome = floatPtr(income)
		in.FullTime = 2
		in.PartTime = 1
		in.Siblings = 2

		result := Calculate(in, DefaultPolicy())
		require.GreaterOrEqual(t, result.SlidingScale, prev, "income %v", income)
		prev = result.SlidingScale
	}
}

func TestCalculateNoAttendingStudents(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(60000)

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, Result{}, result)
}

func TestCalculatePartTimeHalfRate(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(60000)
	in.PartTime = 1

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 3000.0, result.PartTimeRate)
	assert.Equal(t, 3000.0, result.SlidingScale)
}

func TestCalculateSiblingDiscount(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(60000)
	in.FullTime = 2
	in.Siblings = 1

	result := Calculate(in, DefaultPolicy())

	// Base 6000; second student discounted by 25% of the base rate.
	assert.Equal(t, 4500.0, result.SiblingRate)
	assert.Equal(t, 10500.0, result.SlidingScale)
}

func TestCalculateSiblingsCappedAtAttendingMinusOne(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(60000)
	in.FullTime = 1
	in.Siblings = 5

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 6000.0, result.SlidingScale)
}

func TestCalculateYearOverYearBand(t *testing.T) {
	tests := []struct {
		name   string
		income float64
	}{
		{name: "computed well above band", income: 100000},
		{name: "computed well below band", income: 0},
		{name: "computed inside band", income: 50000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := standardYear()
			in.GrossIncome = floatPtr(tc.income)
			in.FullTime = 1
			in.PriorTuition = floatPtr(5000)
			in.DecisionsUnchanged = true

			result := Calculate(in, DefaultPolicy())
			assert.GreaterOrEqual(t, result.SuggestedTuition, 4500.0)
			assert.LessOrEqual(t, result.SuggestedTuition, 5500.0)
			assert.GreaterOrEqual(t, result.MinimumTuition, 4500.0)
			assert.LessOrEqual(t, result.MinimumTuition, 5500.0)
		})
	}
}

func TestCalculateChangedDecisionsSkipBand(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(100000)
	in.FullTime = 1
	in.PriorTuition = floatPtr(5000)
	in.DecisionsUnchanged = false

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 10000.0, result.SuggestedTuition)
}

func TestCalculateSuggestedNeverBelowMinimum(t *testing.T) {
	for income := 0.0; income <= 200000; income += 10000 {
		in := standardYear()
		in.GrossIncome = floatPtr(income)
		in.FullTime = 1
		in.PartTime = 1
		in.Siblings = 1

		result := Calculate(in, DefaultPolicy())
		assert.GreaterOrEqual(t, result.SuggestedTuition, result.MinimumTuition)
	}
}

func TestCalculateDegeneratePolicyBand(t *testing.T) {
	in := Input{
		GrossIncome:    floatPtr(50000),
		FullTime:       1,
		MinimumIncome:  40000,
		MaximumIncome:  40000,
		MinimumTuition: 3000,
		MaximumTuition: 9000,
	}

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 3000.0, result.SlidingScale)
}

func TestCalculateDefensiveClamps(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(math.NaN())
	in.FullTime = 1
	in.PartTime = -3
	in.Siblings = -1

	result := Calculate(in, DefaultPolicy())
	assert.Equal(t, 2000.0, result.SlidingScale)

	in.GrossIncome = floatPtr(math.Inf(1))
	result = Calculate(in, DefaultPolicy())
	assert.Equal(t, 2000.0, result.SlidingScale)
}

func TestCalculateIdempotent(t *testing.T) {
	in := standardYear()
	in.GrossIncome = floatPtr(73250)
	in.FullTime = 2
	in.PartTime = 1
	in.Siblings = 2
	in.PriorTuition = floatPtr(8000)
	in.DecisionsUnchanged = true

	first := Calculate(in, DefaultPolicy())
	second := Calculate(in, DefaultPolicy())
	assert.Equal(t, first, second)
}

func TestAssistanceAmount(t *testing.T) {
	assert.Equal(t, 1500.0, AssistanceAmount(3500, 5000))
	assert.Equal(t, 0.0, AssistanceAmount(5000, 5000))
	assert.Equal(t, 0.0, AssistanceAmount(6000, 5000))
}
