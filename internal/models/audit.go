package models

import "time"

// Audit actions, one per mutating operation.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"

	AuditActionFamilyCreate = "FAMILY_CREATE"
	AuditActionFamilyUpdate = "FAMILY_UPDATE"
	AuditActionFamilyDelete = "FAMILY_DELETE"

	AuditActionYearCreate = "YEAR_CREATE"
	AuditActionYearUpdate = "YEAR_UPDATE"

	AuditActionContractEdit = "CONTRACT_EDIT"
	AuditActionContractSign = "CONTRACT_SIGN"

	AuditActionExportRequest = "EXPORT_REQUEST"
)

// AuditLog is one row of the audit trail. OldValues and NewValues
// hold raw JSON snapshots; UserID is nil for unauthenticated events.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
