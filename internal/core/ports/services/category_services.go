package services

import (
	"context"

	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

// CategoryResolverSvc resolves stable codes to live transaction categories.
type CategoryResolverSvc interface {
	// Resolve returns the live category for code or *apperrors.UnknownCategoryError.
	Resolve(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error)

	// ListCategories returns all live categories ordered by code.
	ListCategories(ctx context.Context) ([]domain.TransactionCategory, error)
}

// CategoryWriterSvc creates and retires transaction categories.
type CategoryWriterSvc interface {
	// CreateForOwner returns the owner's sub-ledger category, creating it when missing.
	CreateForOwner(ctx context.Context, req dto.CreateOwnerCategoryRequest) (*domain.TransactionCategory, error)

	// SeedSystemCategories creates the default categories of a company. It returns how many were created.
	SeedSystemCategories(ctx context.Context, userID string) (int, error)

	// SoftDelete retires an editable category.
	SoftDelete(ctx context.Context, code domain.CategoryCode, userID string) error
}

// CategoryRegistrySvcFacade combines all category-related service interfaces.
type CategoryRegistrySvcFacade interface {
	CategoryResolverSvc
	CategoryWriterSvc
}
