package models

import "time"

// DashboardSummary aggregates enrollment and tuition figures for one
// school year.
type DashboardSummary struct {
	YearID              string    `json:"year_id"`
	YearName            string    `json:"year_name"`
	FamiliesRegistered  int       `json:"families_registered"`
	StudentsFullTime    int       `json:"students_full_time"`
	StudentsPartTime    int       `json:"students_part_time"`
	ContractsSigned     int       `json:"contracts_signed"`
	ContractsUnsigned   int       `json:"contracts_unsigned"`
	ProjectedIncome     float64   `json:"projected_income"`
	AssistanceRequested int       `json:"assistance_requested"`
	AssistanceGranted   float64   `json:"assistance_granted"`
	GeneratedAt         time.Time `json:"generated_at"`
}
