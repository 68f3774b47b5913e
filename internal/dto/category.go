package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
)

// CreateOwnerCategoryRequest asks for a dedicated sub-ledger category for one owner.
type CreateOwnerCategoryRequest struct {
	OwnerKind      domain.OwnerKind          `json:"ownerKind" validate:"required,oneof=CONTACT EMPLOYEE PAYROLL_COMPONENT BANK_ACCOUNT"`
	OwnerID        int64                     `json:"ownerID" validate:"gt=0"`
	ParentCode     domain.ChartOfAccountCode `json:"parentCode" validate:"required"`
	Name           string                    `json:"name" validate:"required,max=255"`
	OpeningBalance decimal.Decimal           `json:"openingBalance"`
	// ParentCategoryCode overrides the chart node's control category as parent.
	ParentCategoryCode domain.CategoryCode `json:"parentCategoryCode,omitempty"`
	// OpeningDate dates the opening balance journal; zero means today.
	OpeningDate *time.Time `json:"openingDate,omitempty"`
	UserID      string     `json:"userID" validate:"required"`
}

// ListLedgerParams defines the parameters for a category statement page.
type ListLedgerParams struct {
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=500"`
	NextToken *string `json:"nextToken,omitempty"`
}

// ListLedgerResponse is one page of a category statement.
type ListLedgerResponse struct {
	Category  domain.TransactionCategory `json:"category"`
	Lines     []domain.JournalLineItem   `json:"lines"`
	NextToken *string                    `json:"nextToken,omitempty"`
}
