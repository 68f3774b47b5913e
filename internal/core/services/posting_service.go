package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/simpleaccounts/ledger-core/internal/platform/logging"
)

// postingService posts events whose line layout the ledger core owns.
type postingService struct {
	BaseService
	categories portssvc.CategoryResolverSvc
	builder    portssvc.JournalBuilderSvc
	poster     portssvc.LedgerPosterSvc
}

// NewPostingService creates a posting service.
func NewPostingService(categories portssvc.CategoryResolverSvc, builder portssvc.JournalBuilderSvc, poster portssvc.LedgerPosterSvc) portssvc.PostingSvc {
	return &postingService{
		categories: categories,
		builder:    builder,
		poster:     poster,
	}
}

var _ portssvc.PostingSvc = (*postingService)(nil)

// PostOpeningBalance raises (or lowers, for a negative amount) a category's balance and
// books the other side to the opening balance offset for its normal side: debit-normal
// categories offset against Opening Balance Offset Assets, credit-normal ones against
// Opening Balance Offset Liabilities.
func (s *postingService) PostOpeningBalance(ctx context.Context, req dto.OpeningBalanceRequest) (*domain.PostedJournal, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.CategoryCode == domain.CategoryOpeningBalanceOffsetAssets || req.CategoryCode == domain.CategoryOpeningBalanceOffsetLiabilities {
		return nil, fmt.Errorf("%w: cannot post an opening balance to an offset category", apperrors.ErrValidation)
	}

	category, err := s.categories.Resolve(ctx, req.CategoryCode)
	if err != nil {
		return nil, err
	}
	return postOpeningBalance(ctx, s.categories, s.builder, s.poster, *category, req)
}

// postOpeningBalance books req.Amount against category and the offset matching its
// normal side in one journal.
func postOpeningBalance(ctx context.Context, categories portssvc.CategoryResolverSvc, builder portssvc.JournalBuilderSvc, poster portssvc.LedgerPosterSvc, category domain.TransactionCategory, req dto.OpeningBalanceRequest) (*domain.PostedJournal, error) {
	side, err := category.NormalSide()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	offsetCode := domain.CategoryOpeningBalanceOffsetAssets
	offsetAmount := req.Amount
	if side == domain.CreditNormal {
		offsetCode = domain.CategoryOpeningBalanceOffsetLiabilities
		offsetAmount = req.Amount.Neg()
	}
	offset, err := categories.Resolve(ctx, offsetCode)
	if err != nil {
		return nil, err
	}

	journal, err := builder.BuildJournal(dto.JournalEvent{
		PostingReferenceType: domain.PostingOpeningBalance,
		ReferenceID:          req.ReferenceID,
		TransactionDate:      req.TransactionDate,
		Description:          "Opening balance: " + category.Name,
		UserID:               req.UserID,
	}, []dto.JournalLine{
		{Category: category, Amount: req.Amount},
		{Category: *offset, Amount: offsetAmount},
	})
	if err != nil {
		return nil, err
	}

	logging.GetLoggerFromCtx(ctx).Debug("Posting opening balance",
		slog.String("code", string(category.Code)),
		slog.String("offset", string(offset.Code)),
		slog.String("amount", req.Amount.String()))
	return poster.Post(ctx, *journal)
}
