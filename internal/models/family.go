package models

import "time"

// Family groups guardians and students under a single tuition contract
// per school year. Gross income is optional: families may decline to
// report it, in which case the sliding scale floors at the year minimum.
type Family struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	GrossIncome *float64  `db:"gross_income" json:"gross_income,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Guardian is an adult responsible for a family, eligible to sign contracts.
type Guardian struct {
	ID       string `db:"id" json:"id"`
	FamilyID string `db:"family_id" json:"family_id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone,omitempty"`
}

// Student is a child belonging to a family.
type Student struct {
	ID        string     `db:"id" json:"id"`
	FamilyID  string     `db:"family_id" json:"family_id"`
	FullName  string     `db:"full_name" json:"full_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
}

// FamilyDetail aggregates a family with its guardians and students.
type FamilyDetail struct {
	Family
	Guardians []Guardian `json:"guardians"`
	Students  []Student  `json:"students"`
}

// FamilyFilter captures filtering criteria for listing families.
type FamilyFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
