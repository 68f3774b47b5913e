package models

import "time"

// AuditFields holds the audit columns shared by every ledger table.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_date"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_update_date"`
	LastUpdatedBy string    `db:"last_updated_by"`
	DeleteFlag    bool      `db:"delete_flag"`
	Version       int64     `db:"version_number"`
}
