package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
)

// TransactionCategoryReader defines read operations for transaction categories.
// Lookups return apperrors.ErrNotFound when no live row matches.
type TransactionCategoryReader interface {
	// FindCategoryByCode retrieves a category by its stable code, including soft-deleted rows.
	FindCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error)

	// FindCategoriesByIDs retrieves categories keyed by ID. Missing IDs are absent from the map.
	FindCategoriesByIDs(ctx context.Context, ids []int64) (map[int64]domain.TransactionCategory, error)

	// FindCategoryByOwner retrieves the live sub-ledger category of an owner.
	FindCategoryByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64) (*domain.TransactionCategory, error)

	// ListCategories retrieves all live categories ordered by code.
	ListCategories(ctx context.Context) ([]domain.TransactionCategory, error)
}

// TransactionCategoryBalanceReader defines read operations for running balances.
type TransactionCategoryBalanceReader interface {
	// FindBalance retrieves the balance row of a category.
	FindBalance(ctx context.Context, categoryID int64) (*domain.TransactionCategoryBalance, error)

	// ListBalances retrieves every live balance row.
	ListBalances(ctx context.Context) ([]domain.TransactionCategoryBalance, error)
}

// TransactionCategoryWriter defines write operations for transaction categories.
type TransactionCategoryWriter interface {
	// CreateCategoryWithNextCode allocates the next "<chart>-NNN" code under the category's
	// chart of account, then inserts the category and its balance row in one transaction.
	// An existing live owner category yields apperrors.ErrDuplicate.
	CreateCategoryWithNextCode(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, error)

	// EnsureCategory inserts a category with a fixed code and its balance row unless the code
	// already exists. It reports whether a row was created.
	EnsureCategory(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, bool, error)

	// SoftDeleteCategory flags a category and its balance row as deleted.
	SoftDeleteCategory(ctx context.Context, categoryID int64, userID string, now time.Time) error
}

// TransactionCategoryRepositoryFacade combines all category-related repository interfaces.
type TransactionCategoryRepositoryFacade interface {
	TransactionCategoryReader
	TransactionCategoryBalanceReader
	TransactionCategoryWriter
}
