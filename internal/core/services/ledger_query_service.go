package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

const defaultLedgerPageSize = 50

// ledgerQueryService answers read-only questions about the posted ledger.
type ledgerQueryService struct {
	BaseService
	categories   portssvc.CategoryResolverSvc
	categoryRepo portsrepo.TransactionCategoryBalanceReader
	journalRepo  portsrepo.JournalRepositoryFacade
}

// NewLedgerQueryService creates a ledger query service.
func NewLedgerQueryService(categories portssvc.CategoryResolverSvc, categoryRepo portsrepo.TransactionCategoryBalanceReader, journalRepo portsrepo.JournalRepositoryFacade) portssvc.LedgerQuerySvc {
	return &ledgerQueryService{
		categories:   categories,
		categoryRepo: categoryRepo,
		journalRepo:  journalRepo,
	}
}

var _ portssvc.LedgerQuerySvc = (*ledgerQueryService)(nil)

// GetJournal retrieves a posted journal with its lines.
func (s *ledgerQueryService) GetJournal(ctx context.Context, journalID int64) (*domain.Journal, error) {
	journal, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("journal %d not found", journalID))
		}
		return nil, fmt.Errorf("failed to get journal %d: %w", journalID, err)
	}
	return journal, nil
}

// ListCategoryLedger retrieves a page of a category's posted lines in posting order.
func (s *ledgerQueryService) ListCategoryLedger(ctx context.Context, code domain.CategoryCode, params dto.ListLedgerParams) (*dto.ListLedgerResponse, error) {
	if err := validateStruct(params); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultLedgerPageSize
	}

	category, err := s.categories.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	lines, nextToken, err := s.journalRepo.ListLinesByCategory(ctx, category.TransactionCategoryID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list category ledger")
		return nil, fmt.Errorf("failed to list ledger of %s: %w", code, err)
	}

	return &dto.ListLedgerResponse{
		Category:  *category,
		Lines:     lines,
		NextToken: nextToken,
	}, nil
}

// TrialBalance places every non-zero category balance on its debit or credit column.
func (s *ledgerQueryService) TrialBalance(ctx context.Context) (*domain.TrialBalance, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.categoryRepo.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	byCategory := make(map[int64]domain.TransactionCategoryBalance, len(balances))
	for _, b := range balances {
		byCategory[b.TransactionCategoryID] = b
	}

	report := &domain.TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, c := range categories {
		balance, ok := byCategory[c.TransactionCategoryID]
		if !ok {
			continue
		}
		side, err := c.NormalSide()
		if err != nil {
			return nil, err
		}
		amount := balance.DebitBasisBalance(side)
		if amount.IsZero() {
			continue
		}

		row := domain.TrialBalanceRow{
			TransactionCategoryID: c.TransactionCategoryID,
			Code:                  c.Code,
			Name:                  c.Name,
			ChartOfAccountCode:    c.ChartOfAccountCode,
			Debit:                 decimal.Zero,
			Credit:                decimal.Zero,
		}
		if amount.IsPositive() {
			row.Debit = amount
			report.TotalDebit = report.TotalDebit.Add(amount)
		} else {
			row.Credit = amount.Neg()
			report.TotalCredit = report.TotalCredit.Add(row.Credit)
		}
		report.Rows = append(report.Rows, row)
	}

	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Code < report.Rows[j].Code })
	return report, nil
}

// VerifyCategoryBalance recomputes opening balance plus the signed sum of posted lines and
// compares it with the stored running balance.
func (s *ledgerQueryService) VerifyCategoryBalance(ctx context.Context, code domain.CategoryCode) (*domain.BalanceVerification, error) {
	category, err := s.categories.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	side, err := category.NormalSide()
	if err != nil {
		return nil, err
	}

	balance, err := s.categoryRepo.FindBalance(ctx, category.TransactionCategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", code, err)
	}
	debit, credit, count, err := s.journalRepo.SumLinesByCategory(ctx, category.TransactionCategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum lines of %s: %w", code, err)
	}

	lineTotal := debit.Sub(credit)
	if side == domain.CreditNormal {
		lineTotal = lineTotal.Neg()
	}

	result := &domain.BalanceVerification{
		TransactionCategoryID: category.TransactionCategoryID,
		Code:                  category.Code,
		OpeningBalance:        balance.OpeningBalance,
		LineTotal:             lineTotal,
		ExpectedBalance:       balance.OpeningBalance.Add(lineTotal),
		RunningBalance:        balance.RunningBalance,
		LineCount:             count,
	}
	if !result.Consistent() {
		s.LogWarn(ctx, "Running balance drift detected",
			slog.String("code", string(code)),
			slog.String("expected", result.ExpectedBalance.String()),
			slog.String("running", result.RunningBalance.String()))
	}
	return result, nil
}
