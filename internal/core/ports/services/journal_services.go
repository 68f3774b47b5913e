package services

import (
	"context"

	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

// JournalBuilderSvc assembles balanced journals from business events without touching storage.
type JournalBuilderSvc interface {
	// BuildJournal splits signed line amounts into debits and credits and checks the balance.
	BuildJournal(event dto.JournalEvent, lines []dto.JournalLine) (*domain.Journal, error)
}

// LedgerPosterSvc persists journals and maintains running balances.
type LedgerPosterSvc interface {
	// Post converts, validates and atomically persists a journal.
	Post(ctx context.Context, journal domain.Journal) (*domain.PostedJournal, error)
}

// ReversalSvc negates previously posted journals.
type ReversalSvc interface {
	// Reverse posts the mirror image of a journal.
	Reverse(ctx context.Context, journalID int64, userID string) (*domain.PostedJournal, error)
}

// PostingSvc posts the ledger events the core owns end to end.
type PostingSvc interface {
	// PostOpeningBalance posts an opening balance against the matching offset category.
	PostOpeningBalance(ctx context.Context, req dto.OpeningBalanceRequest) (*domain.PostedJournal, error)
}
