package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/core/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type LedgerPosterTestSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *testLedger
	txDate time.Time
}

func (s *LedgerPosterTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = newTestLedger(s.T())
	s.txDate = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
}

func (s *LedgerPosterTestSuite) build(event dto.JournalEvent, lines ...dto.JournalLine) domain.Journal {
	if event.PostingReferenceType == "" {
		event.PostingReferenceType = domain.PostingInvoice
	}
	if event.TransactionDate == nil {
		event.TransactionDate = &s.txDate
	}
	event.UserID = testUserID
	journal, err := s.ledger.svc.Builder.BuildJournal(event, lines)
	s.Require().NoError(err)
	return *journal
}

func (s *LedgerPosterTestSuite) line(code domain.CategoryCode, amount string) dto.JournalLine {
	return dto.JournalLine{Category: s.ledger.category(s.T(), code), Amount: dec(amount)}
}

func (s *LedgerPosterTestSuite) saveRate(from, to, rate string, effective time.Time) {
	_, err := s.ledger.svc.ExchangeRate.SaveExchangeRate(s.ctx, dto.CreateExchangeRateRequest{
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		Rate:             dec(rate),
		DateEffective:    effective,
		UserID:           testUserID,
	})
	s.Require().NoError(err)
}

func (s *LedgerPosterTestSuite) TestPost_UpdatesRunningBalancesAndStampsLines() {
	posted, err := s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{ReferenceID: 1},
		s.line(domain.CategoryAccountReceivable, "250"),
		s.line(domain.CategorySales, "250"),
	))
	s.Require().NoError(err)
	s.NotZero(posted.Journal.JournalID)
	s.Equal(testBaseCurrency, posted.Journal.CurrencyCode)
	s.Nil(posted.Journal.ExchangeRate)
	for _, line := range posted.Journal.LineItems {
		requireDecimal(s.T(), "1", line.ExchangeRate)
		requireDecimal(s.T(), "250", line.CurrentBalance)
	}
	s.Len(posted.Balances, 2)

	_, err = s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{PostingReferenceType: domain.PostingReceipt, ReferenceID: 2},
		s.line(domain.CategoryPettyCash, "100"),
		s.line(domain.CategoryAccountReceivable, "-100"),
	))
	s.Require().NoError(err)

	requireDecimal(s.T(), "150", s.ledger.running(s.T(), domain.CategoryAccountReceivable))
	requireDecimal(s.T(), "100", s.ledger.running(s.T(), domain.CategoryPettyCash))
	requireDecimal(s.T(), "250", s.ledger.running(s.T(), domain.CategorySales))
}

func (s *LedgerPosterTestSuite) TestPost_ConvertsWithStoredRate() {
	s.saveRate("USD", "AED", "3.6725", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	posted, err := s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{CurrencyCode: "USD", ReferenceID: 3},
		s.line(domain.CategoryPettyCash, "100"),
		s.line(domain.CategorySales, "100"),
	))
	s.Require().NoError(err)

	s.Require().NotNil(posted.Journal.ExchangeRate)
	requireDecimal(s.T(), "3.6725", *posted.Journal.ExchangeRate)
	requireDecimal(s.T(), "100", posted.Journal.SubTotalDebitAmount)
	requireDecimal(s.T(), "367.25", posted.Journal.TotalDebitAmount)
	requireDecimal(s.T(), "367.25", posted.Journal.TotalCreditAmount)

	cash := posted.Journal.LineItems[0]
	requireDecimal(s.T(), "100", cash.OriginalDebitAmount)
	requireDecimal(s.T(), "367.25", cash.DebitAmount)
	s.Equal("USD", cash.CurrencyCode)
	requireDecimal(s.T(), "367.25", s.ledger.running(s.T(), domain.CategoryPettyCash))
}

func (s *LedgerPosterTestSuite) TestPost_UsesCallerRateWithoutLookup() {
	rate := dec("4")
	posted, err := s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{CurrencyCode: "GBP", ExchangeRate: &rate, ReferenceID: 4},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	))
	s.Require().NoError(err)
	requireDecimal(s.T(), "40", posted.Journal.TotalDebitAmount)
	requireDecimal(s.T(), "40", s.ledger.running(s.T(), domain.CategorySales))
}

func (s *LedgerPosterTestSuite) TestPost_RecomputesBaseAmountsFromLineRate() {
	journal := s.build(dto.JournalEvent{CurrencyCode: "GBP", ReferenceID: 19},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	)
	journal.LineItems = append([]domain.JournalLineItem(nil), journal.LineItems...)
	for i := range journal.LineItems {
		journal.LineItems[i].ExchangeRate = dec("4")
	}
	journal.LineItems[0].DebitAmount = dec("500")
	journal.LineItems[1].CreditAmount = dec("500")

	posted, err := s.ledger.svc.Poster.Post(s.ctx, journal)
	s.Require().NoError(err)
	requireDecimal(s.T(), "40", posted.Journal.LineItems[0].DebitAmount)
	requireDecimal(s.T(), "40", posted.Journal.LineItems[1].CreditAmount)
	requireDecimal(s.T(), "40", posted.Journal.TotalDebitAmount)
	requireDecimal(s.T(), "40", s.ledger.running(s.T(), domain.CategoryPettyCash))
	requireDecimal(s.T(), "40", s.ledger.running(s.T(), domain.CategorySales))
}

func (s *LedgerPosterTestSuite) TestPost_AllocatesConversionResidue() {
	s.saveRate("USD", "AED", "3.6725", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	posted, err := s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{CurrencyCode: "USD", ReferenceID: 5},
		s.line(domain.CategoryPettyCash, "33.33"),
		s.line(domain.CategoryPettyCash, "33.34"),
		s.line(domain.CategorySalariesAndWages, "33.33"),
		s.line(domain.CategorySales, "100"),
	))
	s.Require().NoError(err)
	requireDecimal(s.T(), "367.25", posted.Journal.TotalDebitAmount)
	requireDecimal(s.T(), "367.25", posted.Journal.TotalCreditAmount)
	requireDecimal(s.T(), "122.45", posted.Journal.LineItems[1].DebitAmount)
}

func (s *LedgerPosterTestSuite) TestPost_MissingRateLeavesLedgerUntouched() {
	_, err := s.ledger.svc.Poster.Post(s.ctx, s.build(dto.JournalEvent{CurrencyCode: "EUR", ReferenceID: 6},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	))
	var noRate *apperrors.NoRateAvailableError
	s.Require().ErrorAs(err, &noRate)
	s.Equal("EUR", noRate.From)
	s.Equal(testBaseCurrency, noRate.To)

	s.True(s.ledger.running(s.T(), domain.CategoryPettyCash).IsZero())
	count, err := s.ledger.repos.JournalRepo.CountJournalsByReference(s.ctx, 6, domain.PostingInvoice)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *LedgerPosterTestSuite) TestPost_UnknownCategory() {
	journal := s.build(dto.JournalEvent{ReferenceID: 7},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	)
	journal.LineItems[1].TransactionCategoryID = 999

	_, err := s.ledger.svc.Poster.Post(s.ctx, journal)
	var unknown *apperrors.UnknownCategoryError
	s.Require().ErrorAs(err, &unknown)
	s.Equal("id:999", unknown.Code)
	s.True(s.ledger.running(s.T(), domain.CategoryPettyCash).IsZero())
}

func (s *LedgerPosterTestSuite) TestPost_RejectsInvalidJournals() {
	valid := s.build(dto.JournalEvent{ReferenceID: 8},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	)

	posted := valid
	posted.JournalID = 12
	_, err := s.ledger.svc.Poster.Post(s.ctx, posted)
	s.ErrorIs(err, apperrors.ErrValidation)

	unbalanced := valid
	unbalanced.LineItems = append([]domain.JournalLineItem(nil), valid.LineItems...)
	unbalanced.LineItems[0].DebitAmount = dec("11")
	_, err = s.ledger.svc.Poster.Post(s.ctx, unbalanced)
	s.ErrorIs(err, apperrors.ErrUnbalancedJournal)

	badType := valid
	badType.PostingReferenceType = "BOGUS"
	_, err = s.ledger.svc.Poster.Post(s.ctx, badType)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *LedgerPosterTestSuite) TestPost_RejectsSubCentAmounts() {
	journal := s.build(dto.JournalEvent{ReferenceID: 18},
		s.line(domain.CategoryPettyCash, "100"),
		s.line(domain.CategorySales, "100"),
	)
	journal.LineItems = append([]domain.JournalLineItem(nil), journal.LineItems...)
	journal.LineItems[0].DebitAmount = dec("100.004")
	journal.LineItems[0].OriginalDebitAmount = dec("100.004")
	journal.TotalDebitAmount = dec("100.004")

	_, err := s.ledger.svc.Poster.Post(s.ctx, journal)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	s.True(s.ledger.running(s.T(), domain.CategoryPettyCash).IsZero())
	s.True(s.ledger.running(s.T(), domain.CategorySales).IsZero())
	count, err := s.ledger.repos.JournalRepo.CountJournalsByReference(s.ctx, 18, domain.PostingInvoice)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *LedgerPosterTestSuite) TestPost_ConcurrentPostingsKeepBalancesConsistent() {
	journal := s.build(dto.JournalEvent{ReferenceID: 9},
		s.line(domain.CategoryPettyCash, "10"),
		s.line(domain.CategorySales, "10"),
	)

	const workers = 20
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := s.ledger.svc.Poster.Post(ctx, journal)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	requireDecimal(s.T(), "200", s.ledger.running(s.T(), domain.CategoryPettyCash))
	requireDecimal(s.T(), "200", s.ledger.running(s.T(), domain.CategorySales))

	for _, code := range []domain.CategoryCode{domain.CategoryPettyCash, domain.CategorySales} {
		check, err := s.ledger.svc.Ledger.VerifyCategoryBalance(s.ctx, code)
		s.Require().NoError(err)
		s.True(check.Consistent(), "running balance of %s drifted", code)
		s.Equal(workers, check.LineCount)
	}
}

func TestLedgerPosterTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerPosterTestSuite))
}

func TestLedgerPoster_RetriesBalanceConflicts(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	cash := ledger.category(t, domain.CategoryPettyCash)
	sales := ledger.category(t, domain.CategorySales)
	journal, err := ledger.svc.Builder.BuildJournal(
		dto.JournalEvent{PostingReferenceType: domain.PostingInvoice, ReferenceID: 1, UserID: testUserID},
		[]dto.JournalLine{{Category: cash, Amount: dec("5")}, {Category: sales, Amount: dec("5")}},
	)
	require.NoError(t, err)
	conflict := &apperrors.ConcurrentBalanceConflictError{TransactionCategoryID: cash.TransactionCategoryID, ExpectedVersion: 3}

	t.Run("succeeds after a conflict", func(t *testing.T) {
		writer := new(MockJournalWriter)
		writer.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal"), mock.Anything).Return(nil, conflict).Once()
		writer.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal"), mock.Anything).
			Return(&domain.PostedJournal{Journal: domain.Journal{JournalID: 42}, Balances: map[int64]domain.TransactionCategoryBalance{}}, nil).Once()

		poster := services.NewLedgerPoster(ledger.repos.CategoryRepo, writer, ledger.svc.ExchangeRate, testBaseCurrency,
			services.WithPostingRetries(3, time.Millisecond))
		posted, err := poster.Post(ctx, *journal)
		require.NoError(t, err)
		assert.Equal(t, int64(42), posted.Journal.JournalID)
		writer.AssertNumberOfCalls(t, "SaveJournal", 2)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		writer := new(MockJournalWriter)
		writer.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal"), mock.Anything).Return(nil, conflict)

		poster := services.NewLedgerPoster(ledger.repos.CategoryRepo, writer, ledger.svc.ExchangeRate, testBaseCurrency,
			services.WithPostingRetries(2, time.Millisecond))
		_, err := poster.Post(ctx, *journal)
		assert.ErrorIs(t, err, apperrors.ErrConcurrentBalanceConflict)
		writer.AssertNumberOfCalls(t, "SaveJournal", 3)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		writer := new(MockJournalWriter)
		writer.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal"), mock.Anything).Return(nil, apperrors.ErrInternal)

		poster := services.NewLedgerPoster(ledger.repos.CategoryRepo, writer, ledger.svc.ExchangeRate, testBaseCurrency)
		_, err := poster.Post(ctx, *journal)
		assert.ErrorIs(t, err, apperrors.ErrInternal)
		writer.AssertNumberOfCalls(t, "SaveJournal", 1)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancellable, cancel := context.WithCancel(ctx)
		defer cancel()
		writer := new(MockJournalWriter)
		writer.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal"), mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(nil, conflict)

		poster := services.NewLedgerPoster(ledger.repos.CategoryRepo, writer, ledger.svc.ExchangeRate, testBaseCurrency,
			services.WithPostingRetries(5, time.Hour))
		_, err := poster.Post(cancellable, *journal)
		assert.ErrorIs(t, err, context.Canceled)
		writer.AssertNumberOfCalls(t, "SaveJournal", 1)
	})
}

func TestLedgerPoster_CallerJournalIsNotModified(t *testing.T) {
	ledger := newTestLedger(t)
	rate := dec("3.5")
	journal, err := ledger.svc.Builder.BuildJournal(
		dto.JournalEvent{PostingReferenceType: domain.PostingInvoice, CurrencyCode: "USD", ExchangeRate: &rate, UserID: testUserID},
		[]dto.JournalLine{
			{Category: ledger.category(t, domain.CategoryPettyCash), Amount: dec("2")},
			{Category: ledger.category(t, domain.CategorySales), Amount: dec("2")},
		},
	)
	require.NoError(t, err)

	_, err = ledger.svc.Poster.Post(context.Background(), *journal)
	require.NoError(t, err)
	requireDecimal(t, "2", journal.LineItems[0].DebitAmount)
	assert.True(t, journal.LineItems[0].ExchangeRate.Equal(decimal.Zero))
}
