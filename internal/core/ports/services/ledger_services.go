package services

import (
	"context"

	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

// LedgerQuerySvc defines read-only views over the posted ledger.
type LedgerQuerySvc interface {
	// GetJournal retrieves a posted journal with its lines.
	GetJournal(ctx context.Context, journalID int64) (*domain.Journal, error)

	// ListCategoryLedger retrieves a page of a category's statement.
	ListCategoryLedger(ctx context.Context, code domain.CategoryCode, params dto.ListLedgerParams) (*dto.ListLedgerResponse, error)

	// TrialBalance lists every category balance on its debit or credit column.
	TrialBalance(ctx context.Context) (*domain.TrialBalance, error)

	// VerifyCategoryBalance recomputes a running balance from its posted lines.
	VerifyCategoryBalance(ctx context.Context, code domain.CategoryCode) (*domain.BalanceVerification, error)
}
