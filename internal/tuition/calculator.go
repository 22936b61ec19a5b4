// Package tuition implements the sliding-scale tuition calculator. It is
// a pure numeric package: no I/O, no framework dependencies, and no
// hidden state, so callers can invoke it on every input change.
package tuition

import "math"

// Policy holds the school-wide discount constants applied on top of the
// per-year income and tuition bounds. Values are fractions in [0, 1].
type Policy struct {
	// PartTimeFraction is the share of the full-time rate a part-time
	// student pays.
	PartTimeFraction float64
	// SiblingDiscount is the fraction of the full-time rate deducted
	// for each attending student beyond the family's first.
	SiblingDiscount float64
	// MaxAnnualChange caps year-over-year movement of a returning
	// family's tuition when their attendance decisions are unchanged.
	MaxAnnualChange float64
}

// DefaultPolicy returns the discount schedule used when no configuration
// override is provided.
func DefaultPolicy() Policy {
	return Policy{
		PartTimeFraction: 0.5,
		SiblingDiscount:  0.25,
		MaxAnnualChange:  0.1,
	}
}

// Input carries everything the calculator needs: reported family income,
// the enrollment mix, the year's sliding-scale bounds, and the optional
// prior-year contract used for the year-over-year stabilizer.
type Input struct {
	// GrossIncome is the family's reported income. Nil means the family
	// declined to report; the scale then floors at the year minimum.
	GrossIncome *float64

	// FullTime and PartTime count attending students by decision.
	// Siblings counts attending students beyond the family's first.
	FullTime int
	PartTime int
	Siblings int

	MinimumIncome  float64
	MaximumIncome  float64
	MinimumTuition float64
	MaximumTuition float64

	// PriorTuition is the family's tuition on last year's contract, if
	// one exists. DecisionsUnchanged reports whether the attendance
	// decisions match last year's; the change cap applies only then.
	PriorTuition       *float64
	DecisionsUnchanged bool
}

// Result is the full calculator output. SuggestedTuition is never below
// MinimumTuition, and all figures are zero when nobody attends.
type Result struct {
	FullTimeRate     float64 `json:"full_time_rate"`
	PartTimeRate     float64 `json:"part_time_rate"`
	SiblingRate      float64 `json:"sibling_rate"`
	SlidingScale     float64 `json:"sliding_scale"`
	MinimumTuition   float64 `json:"minimum_tuition"`
	SuggestedTuition float64 `json:"suggested_tuition"`
}

// Calculate derives the recommended tuition for a family. Malformed
// numeric inputs (negative counts, non-finite income) are clamped to
// zero rather than propagated: the output feeds an interactive display,
// not a ledger.
func Calculate(in Input, p Policy) Result {
	fullTime := clampCount(in.FullTime)
	partTime := clampCount(in.PartTime)
	attending := fullTime + partTime
	if attending == 0 {
		return Result{}
	}

	siblings := clampCount(in.Siblings)
	if siblings > attending-1 {
		siblings = attending - 1
	}

	income := sanitizeIncome(in.GrossIncome)
	ptFraction := clampFraction(p.PartTimeFraction)
	sibDiscount := clampFraction(p.SiblingDiscount)

	base := in.baseRate(income)
	sliding := familyScale(base, fullTime, partTime, siblings, ptFraction, sibDiscount)

	// The floor is the same computation with income capped at the
	// year maximum, so income beyond the top of the scale never lowers
	// what the policy expects the family to pay.
	capped := math.Min(income, in.MaximumIncome)
	minBase := in.baseRate(capped)
	minimum := familyScale(minBase, fullTime, partTime, siblings, ptFraction, sibDiscount)

	lo, hi := 0.0, math.Inf(1)
	banded := false
	if in.PriorTuition != nil && in.DecisionsUnchanged {
		prior := *in.PriorTuition
		if prior > 0 && !math.IsNaN(prior) && !math.IsInf(prior, 0) {
			change := clampFraction(p.MaxAnnualChange)
			lo = prior * (1 - change)
			hi = prior * (1 + change)
			banded = true
			minimum = clampTo(minimum, lo, hi)
		}
	}

	suggested := math.Max(sliding, minimum)
	if banded {
		suggested = clampTo(suggested, lo, hi)
	}

	return Result{
		FullTimeRate:     roundCents(base),
		PartTimeRate:     roundCents(base * ptFraction),
		SiblingRate:      roundCents(base * (1 - sibDiscount)),
		SlidingScale:     roundCents(sliding),
		MinimumTuition:   roundCents(minimum),
		SuggestedTuition: roundCents(suggested),
	}
}

// AssistanceAmount returns the subsidy implied by a tuition choice below
// the computed minimum. Raising tuition to meet the minimum clears it.
func AssistanceAmount(tuition, minimum float64) float64 {
	if tuition >= minimum {
		return 0
	}
	return roundCents(minimum - tuition)
}

// baseRate linearly interpolates the single full-time student rate for
// the given income across the year's bounds. A degenerate band where the
// maximum does not exceed the minimum collapses to the low end.
func (in Input) baseRate(income float64) float64 {
	f := 0.0
	if in.MaximumIncome > in.MinimumIncome {
		clamped := clampTo(income, in.MinimumIncome, in.MaximumIncome)
		f = (clamped - in.MinimumIncome) / (in.MaximumIncome - in.MinimumIncome)
	}
	return in.MinimumTuition + f*(in.MaximumTuition-in.MinimumTuition)
}

func familyScale(base float64, fullTime, partTime, siblings int, ptFraction, sibDiscount float64) float64 {
	total := float64(fullTime)*base + float64(partTime)*base*ptFraction
	total -= float64(siblings) * base * sibDiscount
	if total < 0 {
		return 0
	}
	return total
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clampFraction(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sanitizeIncome(income *float64) float64 {
	if income == nil {
		return 0
	}
	v := *income
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
