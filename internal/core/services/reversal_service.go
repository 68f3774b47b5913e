package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
)

// reversalService posts mirror-image journals that cancel earlier postings.
type reversalService struct {
	BaseService
	journalRepo portsrepo.JournalReader
	poster      portssvc.LedgerPosterSvc
	now         Clock
}

// ReversalOption configures a reversal service.
type ReversalOption func(*reversalService)

// WithReversalClock overrides the clock used to date reversal journals.
func WithReversalClock(now Clock) ReversalOption {
	return func(s *reversalService) {
		s.now = now
	}
}

// NewReversalService creates a reversal service that posts through poster.
func NewReversalService(journalRepo portsrepo.JournalReader, poster portssvc.LedgerPosterSvc, opts ...ReversalOption) portssvc.ReversalSvc {
	s := &reversalService{
		journalRepo: journalRepo,
		poster:      poster,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.ReversalSvc = (*reversalService)(nil)

// Reverse posts the mirror image of a journal. The original is left untouched.
func (s *reversalService) Reverse(ctx context.Context, journalID int64, userID string) (*domain.PostedJournal, error) {
	logger := s.GetLogger(ctx).With(slog.Int64("journal_id", journalID))
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}

	original, err := s.validateReversal(ctx, journalID)
	if err != nil {
		logger.Warn("Journal cannot be reversed", slog.String("error", err.Error()))
		return nil, err
	}

	reversal := s.mirror(original, userID)
	posted, err := s.poster.Post(ctx, reversal)
	if err != nil {
		// The unique index on reversed_journal_id catches a concurrent reversal.
		if errors.Is(err, apperrors.ErrAlreadyReversed) {
			return nil, err
		}
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, &apperrors.AlreadyReversedError{JournalID: journalID}
		}
		logger.Error("Failed to post reversal", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to post reversal of journal %d: %w", journalID, err)
	}

	logger.Info("Journal reversed", slog.Int64("reversal_journal_id", posted.Journal.JournalID))
	return posted, nil
}

func (s *reversalService) validateReversal(ctx context.Context, journalID int64) (*domain.Journal, error) {
	original, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("journal %d not found", journalID))
		}
		return nil, fmt.Errorf("failed to retrieve journal %d: %w", journalID, err)
	}

	if original.ReversalFlag || original.PostingReferenceType.IsReversal() {
		return nil, &apperrors.AlreadyReversedError{JournalID: journalID}
	}

	existing, err := s.journalRepo.FindReversalOf(ctx, journalID)
	switch {
	case err == nil:
		return nil, &apperrors.AlreadyReversedError{JournalID: journalID, ReversalJournalID: existing.JournalID}
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to look up reversal of journal %d: %w", journalID, err)
	}

	reverseType, ok := original.PostingReferenceType.Reverse()
	if !ok {
		return nil, fmt.Errorf("%w: posting type %q has no reversal", apperrors.ErrValidation, original.PostingReferenceType)
	}
	forward, err := s.journalRepo.CountJournalsByReference(ctx, original.ReferenceID, original.PostingReferenceType)
	if err != nil {
		return nil, fmt.Errorf("failed to count journals for reference %d: %w", original.ReferenceID, err)
	}
	reversed, err := s.journalRepo.CountJournalsByReference(ctx, original.ReferenceID, reverseType)
	if err != nil {
		return nil, fmt.Errorf("failed to count reversals for reference %d: %w", original.ReferenceID, err)
	}
	if reversed >= forward {
		return nil, &apperrors.AlreadyReversedError{JournalID: journalID}
	}

	return original, nil
}

// mirror swaps the debit and credit of every line. Base and original currency amounts are
// carried over with the original rate so the reversal cancels the original exactly.
func (s *reversalService) mirror(original *domain.Journal, userID string) domain.Journal {
	now := s.now()
	reverseType, _ := original.PostingReferenceType.Reverse()

	lines := make([]domain.JournalLineItem, len(original.LineItems))
	for i, l := range original.LineItems {
		refType, ok := l.ReferenceType.Reverse()
		if !ok {
			refType = reverseType
		}
		lines[i] = domain.JournalLineItem{
			LineNumber:            i + 1,
			TransactionCategoryID: l.TransactionCategoryID,
			DebitAmount:           l.CreditAmount,
			CreditAmount:          l.DebitAmount,
			OriginalDebitAmount:   l.OriginalCreditAmount,
			OriginalCreditAmount:  l.OriginalDebitAmount,
			CurrencyCode:          l.CurrencyCode,
			ExchangeRate:          l.ExchangeRate,
			ReferenceID:           l.ReferenceID,
			ReferenceType:         refType,
			ReversalFlag:          true,
			AuditFields:           domain.NewAuditFields(userID, now),
		}
	}

	originalID := original.JournalID
	return domain.Journal{
		JournalDate:          now,
		TransactionDate:      now,
		Description:          fmt.Sprintf("Reversal of journal %d: %s", original.JournalID, original.Description),
		ReferenceNumber:      original.ReferenceNumber,
		CurrencyCode:         original.CurrencyCode,
		ExchangeRate:         original.ExchangeRate,
		PostingReferenceType: reverseType,
		ReferenceID:          original.ReferenceID,
		ReversalFlag:         true,
		ReversedJournalID:    &originalID,
		LineItems:            lines,
		AuditFields:          domain.NewAuditFields(userID, now),
	}
}
