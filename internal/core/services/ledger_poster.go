package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/utils/accounting"
)

// ledgerPoster persists journals and keeps category running balances in step with them.
type ledgerPoster struct {
	BaseService
	categoryRepo portsrepo.TransactionCategoryReader
	journalRepo  portsrepo.JournalWriter
	converter    portssvc.CurrencyConverterSvc
	baseCurrency string
	maxRetries   int
	backoff      time.Duration
}

// LedgerPosterOption configures a ledger poster.
type LedgerPosterOption func(*ledgerPoster)

// WithPostingRetries bounds how often a posting is retried after a balance conflict and
// how long to wait before the first retry. The wait grows linearly with each attempt.
func WithPostingRetries(maxRetries int, backoff time.Duration) LedgerPosterOption {
	return func(p *ledgerPoster) {
		p.maxRetries = maxRetries
		p.backoff = backoff
	}
}

// NewLedgerPoster creates a ledger poster.
func NewLedgerPoster(categoryRepo portsrepo.TransactionCategoryReader, journalRepo portsrepo.JournalWriter, converter portssvc.CurrencyConverterSvc, baseCurrency string, opts ...LedgerPosterOption) portssvc.LedgerPosterSvc {
	p := &ledgerPoster{
		categoryRepo: categoryRepo,
		journalRepo:  journalRepo,
		converter:    converter,
		baseCurrency: strings.ToUpper(baseCurrency),
		maxRetries:   3,
		backoff:      25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ portssvc.LedgerPosterSvc = (*ledgerPoster)(nil)

type rateKey struct {
	from, to string
	date     time.Time
}

// Post validates, converts and persists a journal in one storage transaction.
// Balance conflicts are retried; every other failure leaves the ledger untouched.
func (p *ledgerPoster) Post(ctx context.Context, journal domain.Journal) (*domain.PostedJournal, error) {
	logger := p.GetLogger(ctx).With(
		slog.String("posting_type", string(journal.PostingReferenceType)),
		slog.Int64("reference_id", journal.ReferenceID),
	)

	if journal.JournalID != 0 {
		return nil, fmt.Errorf("%w: journal %d is already posted", apperrors.ErrValidation, journal.JournalID)
	}
	if !journal.PostingReferenceType.Valid() {
		return nil, fmt.Errorf("%w: unknown posting type %q", apperrors.ErrValidation, journal.PostingReferenceType)
	}
	if err := accounting.ValidateJournalBalance(journal.LineItems); err != nil {
		logger.Warn("Rejected unbalanced journal", slog.String("error", err.Error()))
		return nil, err
	}

	// Work on a copy so the caller's journal is never half-converted.
	journal.LineItems = append([]domain.JournalLineItem(nil), journal.LineItems...)

	if err := p.convertToBase(ctx, &journal); err != nil {
		logger.Warn("Currency conversion failed", slog.String("error", err.Error()))
		return nil, err
	}

	sides, err := p.normalSides(ctx, journal.LineItems)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		posted, err := p.journalRepo.SaveJournal(ctx, journal, sides)
		if err == nil {
			logger.Info("Journal posted",
				slog.Int64("journal_id", posted.Journal.JournalID),
				slog.Int("lines", len(posted.Journal.LineItems)),
				slog.String("total", posted.Journal.TotalDebitAmount.StringFixed(accounting.Precision)))
			return posted, nil
		}

		var conflict *apperrors.ConcurrentBalanceConflictError
		if !errors.As(err, &conflict) || attempt >= p.maxRetries {
			logger.Error("Failed to post journal", slog.String("error", err.Error()), slog.Int("attempt", attempt+1))
			return nil, err
		}

		logger.Warn("Balance conflict, retrying posting",
			slog.Int64("transaction_category_id", conflict.TransactionCategoryID),
			slog.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.backoff * time.Duration(attempt+1)):
		}
	}
}

// convertToBase converts every foreign-currency line into base currency at the rate in
// effect on the transaction date and fills the journal totals.
func (p *ledgerPoster) convertToBase(ctx context.Context, journal *domain.Journal) error {
	currency := strings.ToUpper(journal.CurrencyCode)
	if currency == "" {
		currency = p.baseCurrency
	}
	journal.CurrencyCode = currency

	asOf := dateOnly(journal.TransactionDate)
	rates := make(map[rateKey]decimal.Decimal)
	if journal.ExchangeRate != nil && currency != p.baseCurrency {
		rates[rateKey{from: currency, to: p.baseCurrency, date: asOf}] = *journal.ExchangeRate
	}

	converted := false
	for i := range journal.LineItems {
		line := &journal.LineItems[i]
		line.CurrencyCode = strings.ToUpper(line.CurrencyCode)
		if line.CurrencyCode == "" {
			line.CurrencyCode = currency
		}
		if line.OriginalDebitAmount.IsZero() && line.OriginalCreditAmount.IsZero() {
			line.OriginalDebitAmount = line.DebitAmount
			line.OriginalCreditAmount = line.CreditAmount
		}

		if line.CurrencyCode == p.baseCurrency {
			line.ExchangeRate = decimal.NewFromInt(1)
			continue
		}
		// A reversal mirrors base amounts that were converted and residue-adjusted when
		// the original posted, so they are kept as they are.
		if journal.ReversedJournalID != nil && line.ExchangeRate.IsPositive() {
			continue
		}

		rate := line.ExchangeRate
		if !rate.IsPositive() {
			var err error
			if rate, err = p.rateFor(ctx, rates, line.CurrencyCode, asOf); err != nil {
				return err
			}
		}
		line.DebitAmount = accounting.Convert(line.OriginalDebitAmount, rate)
		line.CreditAmount = accounting.Convert(line.OriginalCreditAmount, rate)
		line.ExchangeRate = rate
		converted = true
	}

	if converted {
		if err := accounting.AllocateRoundingResidue(journal.LineItems); err != nil {
			return err
		}
		if err := accounting.ValidateJournalBalance(journal.LineItems); err != nil {
			return err
		}
	}

	if currency != p.baseCurrency && journal.ExchangeRate == nil {
		if rate, ok := rates[rateKey{from: currency, to: p.baseCurrency, date: asOf}]; ok {
			journal.ExchangeRate = &rate
		}
	}

	subDebit, subCredit := decimal.Zero, decimal.Zero
	for _, line := range journal.LineItems {
		subDebit = subDebit.Add(line.OriginalDebitAmount)
		subCredit = subCredit.Add(line.OriginalCreditAmount)
	}
	journal.SubTotalDebitAmount, journal.SubTotalCreditAmount = subDebit, subCredit
	journal.TotalDebitAmount, journal.TotalCreditAmount = accounting.SumSides(journal.LineItems)
	return nil
}

// rateFor looks a rate up once per (pair, date) for the duration of one posting.
func (p *ledgerPoster) rateFor(ctx context.Context, cache map[rateKey]decimal.Decimal, from string, asOf time.Time) (decimal.Decimal, error) {
	key := rateKey{from: from, to: p.baseCurrency, date: asOf}
	if rate, ok := cache[key]; ok {
		return rate, nil
	}
	rate, err := p.converter.RateFor(ctx, from, p.baseCurrency, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	cache[key] = rate
	return rate, nil
}

// normalSides resolves the normal side of every category the journal touches.
func (p *ledgerPoster) normalSides(ctx context.Context, lines []domain.JournalLineItem) (map[int64]domain.NormalSide, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.TransactionCategoryID]; ok {
			continue
		}
		seen[line.TransactionCategoryID] = struct{}{}
		ids = append(ids, line.TransactionCategoryID)
	}

	categories, err := p.categoryRepo.FindCategoriesByIDs(ctx, ids)
	if err != nil {
		p.LogError(ctx, err, "Failed to load categories for posting")
		return nil, fmt.Errorf("failed to load categories for posting: %w", err)
	}

	sides := make(map[int64]domain.NormalSide, len(ids))
	for _, id := range ids {
		category, ok := categories[id]
		if !ok {
			return nil, &apperrors.UnknownCategoryError{Code: "id:" + strconv.FormatInt(id, 10)}
		}
		side, err := category.NormalSide()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		sides[id] = side
	}
	return sides, nil
}
