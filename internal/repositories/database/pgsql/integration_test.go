package pgsql_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/core/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/simpleaccounts/ledger-core/internal/migration"
	"github.com/simpleaccounts/ledger-core/internal/platform/config"
	"github.com/simpleaccounts/ledger-core/internal/repositories/database/pgsql"
	"github.com/simpleaccounts/ledger-core/pkg/database"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

const (
	baseCurrency = "AED"
	userID       = "pg-user"
)

// PostgresLedgerTestSuite runs the ledger against a real PostgreSQL database. It needs
// PGSQL_URL pointing at a disposable database; every table is truncated between tests.
type PostgresLedgerTestSuite struct {
	suite.Suite
	ctx   context.Context
	pool  *pgxpool.Pool
	repos portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer
}

func TestPostgresLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerTestSuite))
}

func (s *PostgresLedgerTestSuite) SetupSuite() {
	url := os.Getenv("PGSQL_URL")
	if url == "" {
		s.T().Skip("PGSQL_URL not set; skipping PostgreSQL integration tests")
	}
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := migration.Up(url, logger)
	s.Require().NoError(err)

	s.pool, err = database.NewPgxPool(s.ctx, url, logger)
	s.Require().NoError(err)
}

func (s *PostgresLedgerTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresLedgerTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `
		TRUNCATE journal_line_item, journal, transaction_category_balance,
			transaction_category_code_sequence, transaction_category, exchange_rate
		RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.repos = pgsql.NewRepositoryProvider(s.pool)
	s.svc, err = services.NewServiceContainer(&config.Config{
		LedgerStore:         config.StorePostgres,
		BaseCurrency:        baseCurrency,
		PostingMaxRetries:   50,
		PostingRetryBackoff: 2 * time.Millisecond,
		CategoryCacheSize:   64,
	}, s.repos)
	s.Require().NoError(err)

	_, err = s.svc.Categories.SeedSystemCategories(s.ctx, userID)
	s.Require().NoError(err)
}

func (s *PostgresLedgerTestSuite) category(code domain.CategoryCode) domain.TransactionCategory {
	c, err := s.svc.Categories.Resolve(s.ctx, code)
	s.Require().NoError(err)
	return *c
}

func (s *PostgresLedgerTestSuite) running(code domain.CategoryCode) decimal.Decimal {
	b, err := s.repos.CategoryRepo.FindBalance(s.ctx, s.category(code).TransactionCategoryID)
	s.Require().NoError(err)
	return b.RunningBalance
}

func (s *PostgresLedgerTestSuite) requireDecimal(expected string, actual decimal.Decimal) {
	s.Require().Truef(decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func (s *PostgresLedgerTestSuite) opening(code domain.CategoryCode, amount string, referenceID int64) (*domain.PostedJournal, error) {
	return s.svc.Postings.PostOpeningBalance(s.ctx, dto.OpeningBalanceRequest{
		CategoryCode: code,
		Amount:       decimal.RequireFromString(amount),
		ReferenceID:  referenceID,
		UserID:       userID,
	})
}

func (s *PostgresLedgerTestSuite) TestParallelPostingsSumIntoOneBalance() {
	_, err := s.opening(domain.CategoryPettyCash, "100", 1)
	s.Require().NoError(err)

	const workers = 8
	g, _ := errgroup.WithContext(s.ctx)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, err := s.opening(domain.CategoryPettyCash, "10", int64(i+2))
			return err
		})
	}
	s.Require().NoError(g.Wait())

	s.requireDecimal("180", s.running(domain.CategoryPettyCash))
	s.requireDecimal("180", s.running(domain.CategoryOpeningBalanceOffsetAssets))

	for _, code := range []domain.CategoryCode{domain.CategoryPettyCash, domain.CategoryOpeningBalanceOffsetAssets} {
		check, err := s.svc.Ledger.VerifyCategoryBalance(s.ctx, code)
		s.Require().NoError(err)
		s.True(check.Consistent(), "running balance of %s drifted", code)
		s.Equal(workers+1, check.LineCount)
	}

	trial, err := s.svc.Ledger.TrialBalance(s.ctx)
	s.Require().NoError(err)
	s.True(trial.Balanced())
}

func (s *PostgresLedgerTestSuite) TestStaleBalanceVersionIsAConflict() {
	cash := s.category(domain.CategoryPettyCash)
	offset := s.category(domain.CategoryOpeningBalanceOffsetAssets)
	journal, err := s.svc.Builder.BuildJournal(dto.JournalEvent{
		PostingReferenceType: domain.PostingOpeningBalance,
		ReferenceID:          42,
		UserID:               userID,
	}, []dto.JournalLine{
		{Category: cash, Amount: decimal.NewFromInt(25)},
		{Category: offset, Amount: decimal.NewFromInt(25)},
	})
	s.Require().NoError(err)
	poster := services.NewLedgerPoster(s.repos.CategoryRepo, s.repos.JournalRepo, s.svc.ExchangeRate, baseCurrency,
		services.WithPostingRetries(0, time.Millisecond))

	// Hold an uncommitted version bump so the posting reads the old version and then
	// queues behind the row lock.
	tx, err := s.pool.Begin(s.ctx)
	s.Require().NoError(err)
	defer func() { _ = tx.Rollback(s.ctx) }()
	_, err = tx.Exec(s.ctx,
		`UPDATE transaction_category_balance SET version_number = version_number + 1 WHERE transaction_category_id = $1`,
		cash.TransactionCategoryID)
	s.Require().NoError(err)

	var (
		wg      sync.WaitGroup
		postErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, postErr = poster.Post(s.ctx, *journal)
	}()

	s.Require().Eventually(func() bool {
		var waiting int
		err := s.pool.QueryRow(s.ctx,
			`SELECT count(*) FROM pg_stat_activity WHERE wait_event_type = 'Lock' AND datname = current_database()`).Scan(&waiting)
		return err == nil && waiting > 0
	}, 5*time.Second, 10*time.Millisecond, "posting never blocked on the balance row")
	s.Require().NoError(tx.Commit(s.ctx))
	wg.Wait()

	var conflict *apperrors.ConcurrentBalanceConflictError
	s.Require().ErrorAs(postErr, &conflict)
	s.Equal(cash.TransactionCategoryID, conflict.TransactionCategoryID)
	s.ErrorIs(postErr, apperrors.ErrConcurrentBalanceConflict)

	s.True(s.running(domain.CategoryPettyCash).IsZero())
	s.True(s.running(domain.CategoryOpeningBalanceOffsetAssets).IsZero())
	count, err := s.repos.JournalRepo.CountJournalsByReference(s.ctx, 42, domain.PostingOpeningBalance)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PostgresLedgerTestSuite) TestJournalIsReversedOnlyOnce() {
	posted, err := s.opening(domain.CategoryPettyCash, "60", 7)
	s.Require().NoError(err)
	journalID := posted.Journal.JournalID

	const callers = 5
	results := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.svc.Reversal.Reverse(s.ctx, journalID, userID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, apperrors.ErrAlreadyReversed)
	}
	s.Equal(1, succeeded)

	_, err = s.svc.Reversal.Reverse(s.ctx, journalID, userID)
	var reversed *apperrors.AlreadyReversedError
	s.Require().ErrorAs(err, &reversed)
	s.Equal(journalID, reversed.JournalID)

	s.True(s.running(domain.CategoryPettyCash).IsZero())
	check, err := s.svc.Ledger.VerifyCategoryBalance(s.ctx, domain.CategoryPettyCash)
	s.Require().NoError(err)
	s.True(check.Consistent())
}

func (s *PostgresLedgerTestSuite) TestParallelOwnerCategoriesGetDistinctCodes() {
	const owners = 12
	codes := make([]domain.CategoryCode, owners)
	g, gctx := errgroup.WithContext(s.ctx)
	for i := 0; i < owners; i++ {
		i := i
		g.Go(func() error {
			c, err := s.svc.Categories.CreateForOwner(gctx, dto.CreateOwnerCategoryRequest{
				OwnerKind:      domain.OwnerContact,
				OwnerID:        int64(i + 1),
				ParentCode:     domain.ChartAccountsReceivable,
				Name:           "Customer",
				OpeningBalance: decimal.NewFromInt(5),
				UserID:         userID,
			})
			if err != nil {
				return err
			}
			codes[i] = c.Code
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	seen := make(map[domain.CategoryCode]bool, owners)
	for _, code := range codes {
		s.False(seen[code], "duplicate code %s", code)
		seen[code] = true
		seq, ok := code.Sequence(domain.ChartAccountsReceivable)
		s.True(ok, "code %s is not under the receivables node", code)
		s.Greater(seq, int64(1), "code %s collides with the control category", code)
	}
	s.Len(seen, owners)

	s.requireDecimal("60", s.running(domain.CategoryOpeningBalanceOffsetAssets))
	trial, err := s.svc.Ledger.TrialBalance(s.ctx)
	s.Require().NoError(err)
	s.True(trial.Balanced())
}

func (s *PostgresLedgerTestSuite) TestDuplicateOwnerIsRejectedByStorage() {
	kind, ownerID := domain.OwnerEmployee, int64(3)
	category := domain.TransactionCategory{
		Name:               "Jane Doe",
		ChartOfAccountCode: domain.ChartOtherCurrentLiabilities,
		OwnerKind:          &kind,
		OwnerID:            &ownerID,
		AuditFields:        domain.NewAuditFields(userID, time.Now()),
	}
	_, err := s.repos.CategoryRepo.CreateCategoryWithNextCode(s.ctx, category, decimal.Zero)
	s.Require().NoError(err)

	_, err = s.repos.CategoryRepo.CreateCategoryWithNextCode(s.ctx, category, decimal.Zero)
	s.True(errors.Is(err, apperrors.ErrDuplicate), "got %v", err)
}
