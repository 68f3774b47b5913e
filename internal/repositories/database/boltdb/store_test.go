package boltdb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T) portsrepo.RepositoryProvider {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewRepositoryProvider(store)
}

func ensure(t *testing.T, repo portsrepo.TransactionCategoryRepositoryFacade, code domain.CategoryCode, chart domain.ChartOfAccountCode) domain.TransactionCategory {
	t.Helper()
	c, _, err := repo.EnsureCategory(context.Background(), domain.TransactionCategory{
		Code:               code,
		Name:               string(code),
		ChartOfAccountCode: chart,
		AuditFields:        domain.NewAuditFields("seed", testNow),
	}, decimal.Zero)
	require.NoError(t, err)
	return *c
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func simpleJournal(debitID, creditID int64, amount string, date time.Time) domain.Journal {
	a := decimal.RequireFromString(amount)
	return domain.Journal{
		JournalDate:          date,
		TransactionDate:      date,
		CurrencyCode:         "AED",
		PostingReferenceType: domain.PostingManual,
		ReferenceID:          1,
		AuditFields:          domain.NewAuditFields("user-1", date),
		LineItems: []domain.JournalLineItem{
			{LineNumber: 1, TransactionCategoryID: debitID, DebitAmount: a, CreditAmount: decimal.Zero, ReferenceType: domain.PostingManual},
			{LineNumber: 2, TransactionCategoryID: creditID, DebitAmount: decimal.Zero, CreditAmount: a, ReferenceType: domain.PostingManual},
		},
	}
}

func TestStore_Ping(t *testing.T) {
	repos := newTestProvider(t)
	require.NoError(t, repos.Store.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repos.Store.Ping(ctx), context.Canceled)
}

func TestSaveJournal_AppliesLinesToRunningBalances(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	cash := ensure(t, repos.CategoryRepo, domain.CategoryPettyCash, domain.ChartCash)
	sales := ensure(t, repos.CategoryRepo, domain.CategorySales, domain.ChartOperatingIncome)
	sides := map[int64]domain.NormalSide{cash.TransactionCategoryID: domain.DebitNormal, sales.TransactionCategoryID: domain.CreditNormal}

	posted, err := repos.JournalRepo.SaveJournal(ctx, simpleJournal(cash.TransactionCategoryID, sales.TransactionCategoryID, "100", testNow), sides)
	require.NoError(t, err)
	assert.NotZero(t, posted.Journal.JournalID)
	require.Len(t, posted.Journal.LineItems, 2)
	assertDecimal(t, "100", posted.Journal.LineItems[0].CurrentBalance)
	assertDecimal(t, "100", posted.Journal.LineItems[1].CurrentBalance)

	_, err = repos.JournalRepo.SaveJournal(ctx, simpleJournal(cash.TransactionCategoryID, sales.TransactionCategoryID, "50", testNow), sides)
	require.NoError(t, err)

	balance, err := repos.CategoryRepo.FindBalance(ctx, cash.TransactionCategoryID)
	require.NoError(t, err)
	assertDecimal(t, "150", balance.RunningBalance)
	assert.Equal(t, int64(2), balance.Version)

	stored, err := repos.JournalRepo.FindJournalByID(ctx, posted.Journal.JournalID)
	require.NoError(t, err)
	assert.Len(t, stored.LineItems, 2)
	assert.Equal(t, posted.Journal.JournalID, stored.LineItems[0].JournalID)

	count, err := repos.JournalRepo.CountJournalsByReference(ctx, 1, domain.PostingManual)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveJournal_RollsBackWhenACategoryIsMissing(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	cash := ensure(t, repos.CategoryRepo, domain.CategoryPettyCash, domain.ChartCash)
	sides := map[int64]domain.NormalSide{cash.TransactionCategoryID: domain.DebitNormal, 999: domain.CreditNormal}

	_, err := repos.JournalRepo.SaveJournal(ctx, simpleJournal(cash.TransactionCategoryID, 999, "100", testNow), sides)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	balance, err := repos.CategoryRepo.FindBalance(ctx, cash.TransactionCategoryID)
	require.NoError(t, err)
	assert.True(t, balance.RunningBalance.IsZero())
	assert.Zero(t, balance.Version)

	_, err = repos.JournalRepo.FindJournalByID(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	lines, _, err := repos.JournalRepo.ListLinesByCategory(ctx, cash.TransactionCategoryID, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, lines)

	count, err := repos.JournalRepo.CountJournalsByReference(ctx, 1, domain.PostingManual)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSaveJournal_SecondReversalOfSameJournalIsRejected(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	cash := ensure(t, repos.CategoryRepo, domain.CategoryPettyCash, domain.ChartCash)
	sales := ensure(t, repos.CategoryRepo, domain.CategorySales, domain.ChartOperatingIncome)
	sides := map[int64]domain.NormalSide{cash.TransactionCategoryID: domain.DebitNormal, sales.TransactionCategoryID: domain.CreditNormal}

	original, err := repos.JournalRepo.SaveJournal(ctx, simpleJournal(cash.TransactionCategoryID, sales.TransactionCategoryID, "100", testNow), sides)
	require.NoError(t, err)

	reversal := simpleJournal(sales.TransactionCategoryID, cash.TransactionCategoryID, "100", testNow)
	reversal.PostingReferenceType = domain.PostingReverseManual
	reversal.ReversedJournalID = &original.Journal.JournalID
	first, err := repos.JournalRepo.SaveJournal(ctx, reversal, sides)
	require.NoError(t, err)

	_, err = repos.JournalRepo.SaveJournal(ctx, reversal, sides)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyReversed)

	found, err := repos.JournalRepo.FindReversalOf(ctx, original.Journal.JournalID)
	require.NoError(t, err)
	assert.Equal(t, first.Journal.JournalID, found.JournalID)

	_, err = repos.JournalRepo.FindReversalOf(ctx, first.Journal.JournalID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListLinesByCategory_PagesInTransactionDateOrder(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	cash := ensure(t, repos.CategoryRepo, domain.CategoryPettyCash, domain.ChartCash)
	sales := ensure(t, repos.CategoryRepo, domain.CategorySales, domain.ChartOperatingIncome)
	sides := map[int64]domain.NormalSide{cash.TransactionCategoryID: domain.DebitNormal, sales.TransactionCategoryID: domain.CreditNormal}

	// Posted out of date order.
	for _, d := range []int{3, 1, 2} {
		date := testNow.AddDate(0, 0, d)
		_, err := repos.JournalRepo.SaveJournal(ctx, simpleJournal(cash.TransactionCategoryID, sales.TransactionCategoryID, "10", date), sides)
		require.NoError(t, err)
	}

	page, next, err := repos.JournalRepo.ListLinesByCategory(ctx, cash.TransactionCategoryID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].TransactionDate.Equal(testNow.AddDate(0, 0, 1)))
	assert.True(t, page[1].TransactionDate.Equal(testNow.AddDate(0, 0, 2)))

	page, next, err = repos.JournalRepo.ListLinesByCategory(ctx, cash.TransactionCategoryID, 2, next)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, next)
	assert.True(t, page[0].TransactionDate.Equal(testNow.AddDate(0, 0, 3)))

	bad := "not-a-token"
	_, _, err = repos.JournalRepo.ListLinesByCategory(ctx, cash.TransactionCategoryID, 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	debit, credit, count, err := repos.JournalRepo.SumLinesByCategory(ctx, cash.TransactionCategoryID)
	require.NoError(t, err)
	assertDecimal(t, "30", debit)
	assert.True(t, credit.IsZero())
	assert.Equal(t, 3, count)
}

func TestCategoryRepository_CodesAndOwners(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	ensure(t, repos.CategoryRepo, domain.CategoryAccountPayable, domain.ChartAccountsPayable)

	kind := domain.OwnerContact
	ownerID := int64(42)
	created, err := repos.CategoryRepo.CreateCategoryWithNextCode(ctx, domain.TransactionCategory{
		Name:               "Acme Trading",
		ChartOfAccountCode: domain.ChartAccountsPayable,
		OwnerKind:          &kind,
		OwnerID:            &ownerID,
		AuditFields:        domain.NewAuditFields("user-1", testNow),
	}, decimal.RequireFromString("25"))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCode("02-01-002"), created.Code)

	balance, err := repos.CategoryRepo.FindBalance(ctx, created.TransactionCategoryID)
	require.NoError(t, err)
	assertDecimal(t, "25", balance.OpeningBalance)
	assertDecimal(t, "25", balance.RunningBalance)

	_, err = repos.CategoryRepo.CreateCategoryWithNextCode(ctx, domain.TransactionCategory{
		Name:               "Acme again",
		ChartOfAccountCode: domain.ChartAccountsPayable,
		OwnerKind:          &kind,
		OwnerID:            &ownerID,
	}, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	byOwner, err := repos.CategoryRepo.FindCategoryByOwner(ctx, kind, ownerID)
	require.NoError(t, err)
	assert.Equal(t, created.TransactionCategoryID, byOwner.TransactionCategoryID)

	require.NoError(t, repos.CategoryRepo.SoftDeleteCategory(ctx, created.TransactionCategoryID, "user-2", testNow))

	_, err = repos.CategoryRepo.FindCategoryByOwner(ctx, kind, ownerID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	deleted, err := repos.CategoryRepo.FindCategoryByCode(ctx, created.Code)
	require.NoError(t, err)
	assert.True(t, deleted.DeleteFlag)
	assert.Equal(t, "user-2", deleted.LastUpdatedBy)

	live, err := repos.CategoryRepo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, domain.CategoryAccountPayable, live[0].Code)
}

func TestCategoryRepository_EnsureCategoryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	category := domain.TransactionCategory{Code: domain.CategoryPettyCash, Name: "Petty Cash", ChartOfAccountCode: domain.ChartCash}

	first, created, err := repos.CategoryRepo.EnsureCategory(ctx, category, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repos.CategoryRepo.EnsureCategory(ctx, category, decimal.Zero)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.TransactionCategoryID, second.TransactionCategoryID)

	next, err := repos.CategoryRepo.CreateCategoryWithNextCode(ctx, domain.TransactionCategory{Name: "Cash Float", ChartOfAccountCode: domain.ChartCash}, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCode("01-01-002"), next.Code)
}

func TestCategoryRepository_ConcurrentCodeAllocationIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)

	const n = 20
	codes := make(chan domain.CategoryCode, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := repos.CategoryRepo.CreateCategoryWithNextCode(ctx, domain.TransactionCategory{Name: "Bank", ChartOfAccountCode: domain.ChartBank}, decimal.Zero)
			if assert.NoError(t, err) {
				codes <- c.Code
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[domain.CategoryCode]bool)
	for code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, n)
}

func TestExchangeRateRepository_FindLatestOnOrBefore(t *testing.T) {
	ctx := context.Background()
	repos := newTestProvider(t)
	save := func(from, to, rate string, date time.Time) *domain.ExchangeRate {
		saved, err := repos.ExchangeRateRepo.SaveExchangeRate(ctx, domain.ExchangeRate{
			FromCurrencyCode: from,
			ToCurrencyCode:   to,
			Rate:             decimal.RequireFromString(rate),
			DateEffective:    date,
			AuditFields:      domain.NewAuditFields("user-1", testNow),
		})
		require.NoError(t, err)
		return saved
	}

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	save("USD", "AED", "3.67", jan)
	febRate := save("USD", "AED", "3.68", feb)
	save("USD", "AEX", "9.99", jan)
	save("EUR", "AED", "4.00", feb)

	tests := []struct {
		name    string
		from    string
		asOf    time.Time
		want    string
		wantErr error
	}{
		{name: "exact date", from: "USD", asOf: feb, want: "3.68"},
		{name: "between dates", from: "USD", asOf: feb.AddDate(0, 0, -1), want: "3.67"},
		{name: "after latest", from: "USD", asOf: feb.AddDate(1, 0, 0), want: "3.68"},
		{name: "before first", from: "USD", asOf: jan.AddDate(0, 0, -1), wantErr: apperrors.ErrNotFound},
		{name: "other pair before first", from: "EUR", asOf: jan, wantErr: apperrors.ErrNotFound},
		{name: "unknown pair", from: "GBP", asOf: feb, wantErr: apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := repos.ExchangeRateRepo.FindExchangeRate(ctx, tt.from, "AED", tt.asOf)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assertDecimal(t, tt.want, rate.Rate)
		})
	}

	replaced := save("USD", "AED", "3.70", feb)
	assert.Equal(t, febRate.ExchangeRateID, replaced.ExchangeRateID)
	assert.Equal(t, int64(1), replaced.Version)
	rate, err := repos.ExchangeRateRepo.FindExchangeRate(ctx, "USD", "AED", feb)
	require.NoError(t, err)
	assertDecimal(t, "3.70", rate.Rate)
}
