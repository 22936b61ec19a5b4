package models

import "time"

// EnrollmentDecision is the per-student attendance choice recorded on a
// contract for one school year.
type EnrollmentDecision string

const (
	DecisionNone     EnrollmentDecision = "NONE"
	DecisionPartTime EnrollmentDecision = "PART_TIME"
	DecisionFullTime EnrollmentDecision = "FULL_TIME"
)

// Attending reports whether the decision counts toward tuition.
func (d EnrollmentDecision) Attending() bool {
	return d == DecisionPartTime || d == DecisionFullTime
}

// Label returns the human-readable form used on printed contracts.
func (d EnrollmentDecision) Label() string {
	switch d {
	case DecisionFullTime:
		return "Full Time"
	case DecisionPartTime:
		return "Part Time"
	default:
		return "Not Attending"
	}
}

// Contract is the per-family-per-year record capturing enrollment
// decisions, the tuition amount, assistance state, and signatures.
// Exactly one contract exists per (family, year) pair; it is created on
// first edit and never duplicated.
type Contract struct {
	ID                  string    `db:"id" json:"id"`
	FamilyID            string    `db:"family_id" json:"family_id"`
	YearID              string    `db:"year_id" json:"year_id"`
	Tuition             float64   `db:"tuition" json:"tuition"`
	AssistanceAmount    float64   `db:"assistance_amount" json:"assistance_amount"`
	AssistanceRequested bool      `db:"assistance_requested" json:"assistance_requested"`
	AssistanceGranted   bool      `db:"assistance_granted" json:"assistance_granted"`
	IsSigned            bool      `db:"is_signed" json:"is_signed"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDecision binds one student's enrollment decision to a contract.
type StudentDecision struct {
	ContractID string             `db:"contract_id" json:"contract_id"`
	StudentID  string             `db:"student_id" json:"student_id"`
	Decision   EnrollmentDecision `db:"decision" json:"decision"`
}

// Signature records a guardian's digital signature on a contract.
type Signature struct {
	ContractID string    `db:"contract_id" json:"contract_id"`
	GuardianID string    `db:"guardian_id" json:"guardian_id"`
	Signature  string    `db:"signature" json:"signature"`
	SignedAt   time.Time `db:"signed_at" json:"signed_at"`
}

// ContractDetail aggregates a contract with decisions and signatures.
type ContractDetail struct {
	Contract
	Decisions  []StudentDecision `json:"decisions"`
	Signatures []Signature       `json:"signatures"`
}

// TuitionRow is one line of the per-family tuition report for a year.
type TuitionRow struct {
	FamilyID            string   `db:"family_id" json:"family_id"`
	FamilyName          string   `db:"family_name" json:"family_name"`
	GrossIncome         *float64 `db:"gross_income" json:"gross_income,omitempty"`
	Tuition             float64  `db:"tuition" json:"tuition"`
	AssistanceAmount    float64  `db:"assistance_amount" json:"assistance_amount"`
	AssistanceRequested bool     `db:"assistance_requested" json:"assistance_requested"`
	IsSigned            bool     `db:"is_signed" json:"is_signed"`
}

// ContractFilter captures filtering criteria for listing contracts.
type ContractFilter struct {
	YearID     string
	FamilyID   string
	SignedOnly bool
	Page       int
	PageSize   int
}
