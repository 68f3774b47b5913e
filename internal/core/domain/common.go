package domain

import "time"

// AuditFields holds the audit columns every ledger row carries.
// Version is the optimistic-lock counter; it increments on every update.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdDate"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdateDate"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
	DeleteFlag    bool      `json:"deleteFlag"`
	Version       int64     `json:"versionNumber"`
}

// NewAuditFields stamps creation and update columns with the same user and time.
func NewAuditFields(userID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

// Touch records an update and bumps the version.
func (a *AuditFields) Touch(userID string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = userID
	a.Version++
}
