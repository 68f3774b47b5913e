package services_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/core/services"
	"github.com/simpleaccounts/ledger-core/internal/platform/config"
	"github.com/simpleaccounts/ledger-core/internal/repositories/database/boltdb"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testBaseCurrency = "AED"
	testUserID       = "user-1"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// testLedger is a fully wired ledger on a throwaway embedded store with the system
// categories seeded.
type testLedger struct {
	repos portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer
}

func newTestRepos(t *testing.T) portsrepo.RepositoryProvider {
	t.Helper()
	store, err := boltdb.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return boltdb.NewRepositoryProvider(store)
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	repos := newTestRepos(t)
	cfg := &config.Config{
		LedgerStore:         config.StoreBolt,
		BaseCurrency:        testBaseCurrency,
		PostingMaxRetries:   3,
		PostingRetryBackoff: time.Millisecond,
		CategoryCacheSize:   64,
	}
	svc, err := services.NewServiceContainer(cfg, repos)
	require.NoError(t, err)

	_, err = svc.Categories.SeedSystemCategories(context.Background(), testUserID)
	require.NoError(t, err)
	return &testLedger{repos: repos, svc: svc}
}

func (l *testLedger) category(t *testing.T, code domain.CategoryCode) domain.TransactionCategory {
	t.Helper()
	c, err := l.svc.Categories.Resolve(context.Background(), code)
	require.NoError(t, err)
	return *c
}

func (l *testLedger) running(t *testing.T, code domain.CategoryCode) decimal.Decimal {
	t.Helper()
	c := l.category(t, code)
	b, err := l.repos.CategoryRepo.FindBalance(context.Background(), c.TransactionCategoryID)
	require.NoError(t, err)
	return b.RunningBalance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

// --- Mock ExchangeRateRepository ---
type MockExchangeRateRepository struct {
	mock.Mock
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*MockExchangeRateRepository)(nil)

func (m *MockExchangeRateRepository) FindExchangeRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, from, to, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, rate)
	if fn, ok := args.Get(0).(func(context.Context, domain.ExchangeRate) *domain.ExchangeRate); ok {
		return fn(ctx, rate), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

// --- Mock JournalWriter ---
type MockJournalWriter struct {
	mock.Mock
}

var _ portsrepo.JournalWriter = (*MockJournalWriter)(nil)

func (m *MockJournalWriter) SaveJournal(ctx context.Context, journal domain.Journal, sides map[int64]domain.NormalSide) (*domain.PostedJournal, error) {
	args := m.Called(ctx, journal, sides)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostedJournal), args.Error(1)
}

// countingCategoryRepo counts code lookups that reach storage.
type countingCategoryRepo struct {
	portsrepo.TransactionCategoryRepositoryFacade
	lookups atomic.Int32
}

func (r *countingCategoryRepo) FindCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error) {
	r.lookups.Add(1)
	return r.TransactionCategoryRepositoryFacade.FindCategoryByCode(ctx, code)
}
