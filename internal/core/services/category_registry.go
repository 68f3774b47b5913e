package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/simpleaccounts/ledger-core/internal/utils/accounting"
	"golang.org/x/sync/singleflight"
)

// categoryRegistry resolves and creates transaction categories.
type categoryRegistry struct {
	BaseService
	repo  portsrepo.TransactionCategoryRepositoryFacade
	cache *lru.Cache[domain.CategoryCode, domain.TransactionCategory]
	group singleflight.Group
	now   Clock

	builder portssvc.JournalBuilderSvc
	poster  portssvc.LedgerPosterSvc
}

// CategoryRegistryOption configures a category registry.
type CategoryRegistryOption func(*categoryRegistry)

// WithRegistryClock overrides the clock used to stamp audit fields.
func WithRegistryClock(now Clock) CategoryRegistryOption {
	return func(r *categoryRegistry) {
		r.now = now
	}
}

// WithOpeningBalancePosting lets CreateForOwner book a requested opening balance as a
// journal against the matching opening balance offset.
func WithOpeningBalancePosting(builder portssvc.JournalBuilderSvc, poster portssvc.LedgerPosterSvc) CategoryRegistryOption {
	return func(r *categoryRegistry) {
		r.builder = builder
		r.poster = poster
	}
}

// NewCategoryRegistry creates a registry caching up to cacheSize resolved categories.
func NewCategoryRegistry(repo portsrepo.TransactionCategoryRepositoryFacade, cacheSize int, opts ...CategoryRegistryOption) (portssvc.CategoryRegistrySvcFacade, error) {
	cache, err := lru.New[domain.CategoryCode, domain.TransactionCategory](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create category cache: %w", err)
	}
	r := &categoryRegistry{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var _ portssvc.CategoryRegistrySvcFacade = (*categoryRegistry)(nil)

// Resolve returns the live category registered under code.
func (r *categoryRegistry) Resolve(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error) {
	if cached, ok := r.cache.Get(code); ok {
		return &cached, nil
	}

	v, err, _ := r.group.Do(string(code), func() (any, error) {
		category, err := r.repo.FindCategoryByCode(ctx, code)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, &apperrors.UnknownCategoryError{Code: string(code)}
			}
			return nil, fmt.Errorf("failed to resolve category %s: %w", code, err)
		}
		if category.DeleteFlag {
			return nil, &apperrors.UnknownCategoryError{Code: string(code)}
		}
		r.cache.Add(code, *category)
		return *category, nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownCategory) {
			r.LogWarn(ctx, "Unknown transaction category", slog.String("code", string(code)))
		}
		return nil, err
	}

	category := v.(domain.TransactionCategory)
	return &category, nil
}

// ListCategories returns every live category.
func (r *categoryRegistry) ListCategories(ctx context.Context) ([]domain.TransactionCategory, error) {
	categories, err := r.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateForOwner returns the owner's sub-ledger category, creating it under the given chart
// of account with the next free code when it does not exist yet.
func (r *categoryRegistry) CreateForOwner(ctx context.Context, req dto.CreateOwnerCategoryRequest) (*domain.TransactionCategory, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	chart, ok := domain.LookupChartOfAccount(req.ParentCode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown chart of account %q", apperrors.ErrValidation, req.ParentCode)
	}
	if chart.IsRoot() {
		return nil, fmt.Errorf("%w: chart of account %q is a class root", apperrors.ErrValidation, req.ParentCode)
	}

	logger := r.GetLogger(ctx).With(
		slog.String("owner_kind", string(req.OwnerKind)),
		slog.Int64("owner_id", req.OwnerID),
	)

	existing, err := r.repo.FindCategoryByOwner(ctx, req.OwnerKind, req.OwnerID)
	if err == nil {
		logger.Debug("Owner category already exists", slog.String("code", string(existing.Code)))
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up owner category: %w", err)
	}

	opening := accounting.Round(req.OpeningBalance)
	if !opening.IsZero() && r.poster == nil {
		return nil, fmt.Errorf("%w: opening balance posting is not configured", apperrors.ErrValidation)
	}

	parentID, err := r.parentCategory(ctx, req)
	if err != nil {
		return nil, err
	}

	kind, ownerID := req.OwnerKind, req.OwnerID
	category := domain.TransactionCategory{
		Name:                        req.Name,
		ChartOfAccountCode:          req.ParentCode,
		ParentTransactionCategoryID: parentID,
		Editable:                    false,
		Selectable:                  kind.Selectable(),
		OwnerKind:                   &kind,
		OwnerID:                     &ownerID,
		AuditFields:                 domain.NewAuditFields(req.UserID, r.now()),
	}

	created, err := r.repo.CreateCategoryWithNextCode(ctx, category, decimal.Zero)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost a race with a concurrent call for the same owner.
			return r.repo.FindCategoryByOwner(ctx, req.OwnerKind, req.OwnerID)
		}
		logger.Error("Failed to create owner category", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create owner category: %w", err)
	}

	r.cache.Add(created.Code, *created)
	logger.Info("Owner category created", slog.String("code", string(created.Code)))

	if !opening.IsZero() {
		_, err := postOpeningBalance(ctx, r, r.builder, r.poster, *created, dto.OpeningBalanceRequest{
			CategoryCode:    created.Code,
			Amount:          opening,
			TransactionDate: req.OpeningDate,
			ReferenceID:     req.OwnerID,
			UserID:          req.UserID,
		})
		if err != nil {
			logger.Error("Failed to post owner opening balance", slog.String("code", string(created.Code)), slog.String("error", err.Error()))
			return created, fmt.Errorf("category %s created but its opening balance was not posted: %w", created.Code, err)
		}
	}
	return created, nil
}

// parentCategory picks the category an owner sub-ledger rolls up into: the requested
// parent when given, otherwise the control category of the chart node if it is seeded.
func (r *categoryRegistry) parentCategory(ctx context.Context, req dto.CreateOwnerCategoryRequest) (*int64, error) {
	if req.ParentCategoryCode != "" {
		parent, err := r.Resolve(ctx, req.ParentCategoryCode)
		if err != nil {
			return nil, err
		}
		if parent.ChartOfAccountCode != req.ParentCode {
			return nil, fmt.Errorf("%w: parent category %s is not under chart of account %q", apperrors.ErrValidation, parent.Code, req.ParentCode)
		}
		if parent.OwnerKind != nil {
			return nil, fmt.Errorf("%w: parent category %s is itself an owner sub-ledger", apperrors.ErrValidation, parent.Code)
		}
		return &parent.TransactionCategoryID, nil
	}

	code, ok := domain.ControlCategory(req.ParentCode)
	if !ok {
		return nil, nil
	}
	parent, err := r.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownCategory) {
			return nil, nil
		}
		return nil, err
	}
	return &parent.TransactionCategoryID, nil
}

// SeedSystemCategories creates the default categories and their balance rows. Existing
// categories are left alone.
func (r *categoryRegistry) SeedSystemCategories(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}

	now := r.now()
	created := 0
	for _, sc := range domain.SystemCategories {
		category := domain.TransactionCategory{
			Code:               sc.Code,
			Name:               sc.Name,
			ChartOfAccountCode: sc.ChartCode,
			Editable:           false,
			Selectable:         sc.Selectable,
			AuditFields:        domain.NewAuditFields(userID, now),
		}
		_, ok, err := r.repo.EnsureCategory(ctx, category, decimal.Zero)
		if err != nil {
			r.LogError(ctx, err, "Failed to seed system category", slog.String("code", string(sc.Code)))
			return created, fmt.Errorf("failed to seed category %s: %w", sc.Code, err)
		}
		if ok {
			created++
		}
	}

	r.LogInfo(ctx, "System categories seeded", slog.Int("created", created))
	return created, nil
}

// SoftDelete retires an editable category. System and owner categories cannot be deleted.
func (r *categoryRegistry) SoftDelete(ctx context.Context, code domain.CategoryCode, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	category, err := r.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if !category.Editable {
		return fmt.Errorf("%w: category %s is not editable", apperrors.ErrValidation, code)
	}

	if err := r.repo.SoftDeleteCategory(ctx, category.TransactionCategoryID, userID, r.now()); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", code, err)
	}
	r.cache.Remove(code)
	r.LogInfo(ctx, "Category soft-deleted", slog.String("code", string(code)))
	return nil
}
