package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
)

// JournalReader defines read operations for journal data
type JournalReader interface {
	// FindJournalByID retrieves a specific journal together with its line items.
	FindJournalByID(ctx context.Context, journalID int64) (*domain.Journal, error)

	// FindReversalOf retrieves the live journal whose ReversedJournalID points at journalID.
	// It returns apperrors.ErrNotFound when the journal has not been reversed.
	FindReversalOf(ctx context.Context, journalID int64) (*domain.Journal, error)

	// CountJournalsByReference counts live journals posted for a source document.
	CountJournalsByReference(ctx context.Context, referenceID int64, postingType domain.PostingReferenceType) (int, error)
}

// JournalLineReader defines read operations for posted line items.
type JournalLineReader interface {
	// ListLinesByCategory retrieves a page of a category's lines ordered by transaction date
	// then line ID. It returns the lines and a token for the next page.
	ListLinesByCategory(ctx context.Context, categoryID int64, limit int, nextToken *string) ([]domain.JournalLineItem, *string, error)

	// SumLinesByCategory totals the debit and credit columns of every live line posted
	// against a category.
	SumLinesByCategory(ctx context.Context, categoryID int64) (debit, credit decimal.Decimal, count int, err error)
}

// JournalWriter defines write operations for journal data
type JournalWriter interface {
	// SaveJournal persists a balanced journal and its lines, and applies every line to the
	// running balance of its category in line order, all in one transaction. sides maps each
	// touched category ID to its normal side. The returned journal carries assigned IDs and
	// stamped CurrentBalance values. A balance row that moved underneath the posting yields
	// *apperrors.ConcurrentBalanceConflictError; nothing is written in that case.
	SaveJournal(ctx context.Context, journal domain.Journal, sides map[int64]domain.NormalSide) (*domain.PostedJournal, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces
// This is a facade for clients that need access to all operations
type JournalRepositoryFacade interface {
	JournalReader
	JournalLineReader
	JournalWriter
}
