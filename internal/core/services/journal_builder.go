package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/simpleaccounts/ledger-core/internal/utils/accounting"
)

// journalBuilder turns business events into balanced, unposted journals.
type journalBuilder struct {
	BaseService
	baseCurrency string
	now          Clock
}

// JournalBuilderOption configures a journal builder.
type JournalBuilderOption func(*journalBuilder)

// WithBuilderClock overrides the clock used to default journal dates.
func WithBuilderClock(now Clock) JournalBuilderOption {
	return func(b *journalBuilder) {
		b.now = now
	}
}

// NewJournalBuilder creates a journal builder for a company with the given base currency.
func NewJournalBuilder(baseCurrency string, opts ...JournalBuilderOption) portssvc.JournalBuilderSvc {
	b := &journalBuilder{
		baseCurrency: strings.ToUpper(baseCurrency),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ portssvc.JournalBuilderSvc = (*journalBuilder)(nil)

// BuildJournal assembles a journal from signed line amounts. Each amount is rounded to the
// ledger precision and split into a debit or credit by the category's normal side; zero
// lines are dropped. The result must balance.
func (b *journalBuilder) BuildJournal(event dto.JournalEvent, lines []dto.JournalLine) (*domain.Journal, error) {
	if err := validateStruct(event); err != nil {
		return nil, err
	}
	if event.ExchangeRate != nil && !event.ExchangeRate.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive", apperrors.ErrValidation)
	}

	now := b.now()
	transactionDate := now
	if event.TransactionDate != nil {
		transactionDate = *event.TransactionDate
	}
	journalDate := now
	if event.JournalDate != nil {
		journalDate = *event.JournalDate
	}
	currency := b.baseCurrency
	if event.CurrencyCode != "" {
		currency = strings.ToUpper(event.CurrencyCode)
	}

	items := make([]domain.JournalLineItem, 0, len(lines))
	for i, line := range lines {
		item, keep, err := b.buildLine(event, line, currency, now)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if !keep {
			continue
		}
		item.LineNumber = len(items) + 1
		items = append(items, item)
	}

	if err := accounting.ValidateJournalBalance(items); err != nil {
		slog.Debug("Rejected journal",
			slog.String("posting_type", string(event.PostingReferenceType)),
			slog.Int64("reference_id", event.ReferenceID),
			slog.String("error", err.Error()))
		return nil, err
	}

	debit, credit := accounting.SumSides(items)
	journal := &domain.Journal{
		JournalDate:          journalDate,
		TransactionDate:      transactionDate,
		Description:          event.Description,
		ReferenceNumber:      event.ReferenceNumber,
		CurrencyCode:         currency,
		ExchangeRate:         event.ExchangeRate,
		SubTotalDebitAmount:  debit,
		SubTotalCreditAmount: credit,
		TotalDebitAmount:     debit,
		TotalCreditAmount:    credit,
		PostingReferenceType: event.PostingReferenceType,
		ReferenceID:          event.ReferenceID,
		LineItems:            items,
		AuditFields:          domain.NewAuditFields(event.UserID, now),
	}
	return journal, nil
}

func (b *journalBuilder) buildLine(event dto.JournalEvent, line dto.JournalLine, currency string, now time.Time) (domain.JournalLineItem, bool, error) {
	category := line.Category
	if category.TransactionCategoryID == 0 {
		return domain.JournalLineItem{}, false, fmt.Errorf("%w: category %q has not been persisted", apperrors.ErrValidation, category.Code)
	}
	if category.DeleteFlag {
		return domain.JournalLineItem{}, false, fmt.Errorf("%w: category %s is deleted", apperrors.ErrValidation, category.Code)
	}
	side, err := category.NormalSide()
	if err != nil {
		return domain.JournalLineItem{}, false, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	amount := accounting.Round(line.Amount)
	if amount.IsZero() {
		return domain.JournalLineItem{}, false, nil
	}
	debit, credit, err := accounting.SplitSignedAmount(amount, side)
	if err != nil {
		return domain.JournalLineItem{}, false, err
	}

	refType := line.ReferenceType
	if refType == "" {
		refType = event.PostingReferenceType
	} else if !refType.Valid() {
		return domain.JournalLineItem{}, false, fmt.Errorf("%w: unknown reference type %q", apperrors.ErrValidation, refType)
	}
	refID := line.ReferenceID
	if refID == 0 {
		refID = event.ReferenceID
	}

	return domain.JournalLineItem{
		TransactionCategoryID: category.TransactionCategoryID,
		DebitAmount:           debit,
		CreditAmount:          credit,
		OriginalDebitAmount:   debit,
		OriginalCreditAmount:  credit,
		CurrencyCode:          currency,
		ExchangeRate:          decimal.Zero,
		ReferenceID:           refID,
		ReferenceType:         refType,
		AuditFields:           domain.NewAuditFields(event.UserID, now),
	}, true, nil
}
