package models

import "time"

// Year holds the sliding-scale bounds for one school year. The income
// and tuition bounds are validated at create/update time so the
// calculator never sees a degenerate policy.
type Year struct {
	ID                       string    `db:"id" json:"id"`
	Name                     string    `db:"name" json:"name"`
	MinimumIncome            float64   `db:"minimum_income" json:"minimum_income"`
	MaximumIncome            float64   `db:"maximum_income" json:"maximum_income"`
	MinimumTuition           float64   `db:"minimum_tuition" json:"minimum_tuition"`
	MaximumTuition           float64   `db:"maximum_tuition" json:"maximum_tuition"`
	IsAcceptingRegistrations bool      `db:"is_accepting_registrations" json:"is_accepting_registrations"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}

// YearFilter defines filters supported by year list endpoints.
type YearFilter struct {
	AcceptingOnly bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// RosterRow is one attending student in a year roster listing.
type RosterRow struct {
	StudentID   string             `db:"student_id" json:"student_id"`
	StudentName string             `db:"student_name" json:"student_name"`
	FamilyID    string             `db:"family_id" json:"family_id"`
	FamilyName  string             `db:"family_name" json:"family_name"`
	Decision    EnrollmentDecision `db:"decision" json:"decision"`
	Tuition     float64            `db:"tuition" json:"tuition"`
	IsSigned    bool               `db:"is_signed" json:"is_signed"`
}
