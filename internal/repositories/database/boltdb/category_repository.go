package boltdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

type boltCategoryRepository struct {
	store *Store
}

func newBoltCategoryRepository(store *Store) portsrepo.TransactionCategoryRepositoryFacade {
	return &boltCategoryRepository{store: store}
}

var _ portsrepo.TransactionCategoryRepositoryFacade = (*boltCategoryRepository)(nil)

func ownerKey(kind domain.OwnerKind, ownerID int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", kind, ownerID))
}

func findCategory(tx *bolt.Tx, id int64) (*domain.TransactionCategory, error) {
	var c domain.TransactionCategory
	if err := getJSON(bucket(tx, bucketCategories), itob(id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func findCategoryByCode(tx *bolt.Tx, code domain.CategoryCode) (*domain.TransactionCategory, error) {
	id := bucket(tx, bucketCategoryCodes).Get([]byte(code))
	if id == nil {
		return nil, apperrors.ErrNotFound
	}
	return findCategory(tx, btoi(id))
}

// FindCategoryByCode retrieves a category by code, soft-deleted rows included.
func (r *boltCategoryRepository) FindCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error) {
	var category *domain.TransactionCategory
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		var err error
		category, err = findCategoryByCode(tx, code)
		return err
	})
	return category, err
}

// FindCategoriesByIDs retrieves the categories that exist among ids.
func (r *boltCategoryRepository) FindCategoriesByIDs(ctx context.Context, ids []int64) (map[int64]domain.TransactionCategory, error) {
	result := make(map[int64]domain.TransactionCategory, len(ids))
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		for _, id := range ids {
			c, err := findCategory(tx, id)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			result[id] = *c
		}
		return nil
	})
	return result, err
}

// FindCategoryByOwner retrieves the live category of an owner.
func (r *boltCategoryRepository) FindCategoryByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64) (*domain.TransactionCategory, error) {
	var category *domain.TransactionCategory
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		id := bucket(tx, bucketCategoryOwners).Get(ownerKey(kind, ownerID))
		if id == nil {
			return apperrors.ErrNotFound
		}
		c, err := findCategory(tx, btoi(id))
		if err != nil {
			return err
		}
		if c.DeleteFlag {
			return apperrors.ErrNotFound
		}
		category = c
		return nil
	})
	return category, err
}

// ListCategories retrieves all live categories ordered by code.
func (r *boltCategoryRepository) ListCategories(ctx context.Context) ([]domain.TransactionCategory, error) {
	var categories []domain.TransactionCategory
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		return bucket(tx, bucketCategories).ForEach(func(_, v []byte) error {
			var c domain.TransactionCategory
			if err := unmarshal(v, &c); err != nil {
				return err
			}
			if !c.DeleteFlag {
				categories = append(categories, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Code < categories[j].Code })
	return categories, nil
}

// FindBalance retrieves the balance row of a category.
func (r *boltCategoryRepository) FindBalance(ctx context.Context, categoryID int64) (*domain.TransactionCategoryBalance, error) {
	var balance domain.TransactionCategoryBalance
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		return getJSON(bucket(tx, bucketBalances), itob(categoryID), &balance)
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListBalances retrieves every live balance row.
func (r *boltCategoryRepository) ListBalances(ctx context.Context) ([]domain.TransactionCategoryBalance, error) {
	var balances []domain.TransactionCategoryBalance
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		return bucket(tx, bucketBalances).ForEach(func(_, v []byte) error {
			var b domain.TransactionCategoryBalance
			if err := unmarshal(v, &b); err != nil {
				return err
			}
			if !b.DeleteFlag {
				balances = append(balances, b)
			}
			return nil
		})
	})
	return balances, err
}

// CreateCategoryWithNextCode allocates the next code under the category's chart and stores
// the category with its balance row.
func (r *boltCategoryRepository) CreateCategoryWithNextCode(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, error) {
	err := r.store.update(ctx, func(tx *bolt.Tx) error {
		if category.OwnerKind != nil && category.OwnerID != nil {
			if bucket(tx, bucketCategoryOwners).Get(ownerKey(*category.OwnerKind, *category.OwnerID)) != nil {
				return fmt.Errorf("%w: owner %s:%d already has a category", apperrors.ErrDuplicate, *category.OwnerKind, *category.OwnerID)
			}
		}

		code, err := allocateCode(tx, category.ChartOfAccountCode)
		if err != nil {
			return err
		}
		category.Code = code
		return insertCategory(tx, &category, openingBalance)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// EnsureCategory stores a category under its fixed code unless the code is taken.
func (r *boltCategoryRepository) EnsureCategory(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, bool, error) {
	var result *domain.TransactionCategory
	created := false
	err := r.store.update(ctx, func(tx *bolt.Tx) error {
		existing, err := findCategoryByCode(tx, category.Code)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		if err := reserveCode(tx, category.ChartOfAccountCode, category.Code); err != nil {
			return err
		}
		if err := insertCategory(tx, &category, openingBalance); err != nil {
			return err
		}
		result, created = &category, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// SoftDeleteCategory flags a category and its balance row as deleted.
func (r *boltCategoryRepository) SoftDeleteCategory(ctx context.Context, categoryID int64, userID string, now time.Time) error {
	return r.store.update(ctx, func(tx *bolt.Tx) error {
		category, err := findCategory(tx, categoryID)
		if err != nil {
			return err
		}
		category.DeleteFlag = true
		category.Touch(userID, now)
		if err := putJSON(bucket(tx, bucketCategories), itob(categoryID), category); err != nil {
			return err
		}
		if category.OwnerKind != nil && category.OwnerID != nil {
			if err := bucket(tx, bucketCategoryOwners).Delete(ownerKey(*category.OwnerKind, *category.OwnerID)); err != nil {
				return err
			}
		}

		balances := bucket(tx, bucketBalances)
		var balance domain.TransactionCategoryBalance
		if err := getJSON(balances, itob(categoryID), &balance); err != nil {
			return err
		}
		balance.DeleteFlag = true
		balance.Touch(userID, now)
		return putJSON(balances, itob(categoryID), balance)
	})
}

func insertCategory(tx *bolt.Tx, category *domain.TransactionCategory, openingBalance decimal.Decimal) error {
	categories := bucket(tx, bucketCategories)
	id, err := nextID(categories)
	if err != nil {
		return err
	}
	category.TransactionCategoryID = id
	if err := putJSON(categories, itob(id), category); err != nil {
		return err
	}
	if err := bucket(tx, bucketCategoryCodes).Put([]byte(category.Code), itob(id)); err != nil {
		return err
	}
	if category.OwnerKind != nil && category.OwnerID != nil {
		if err := bucket(tx, bucketCategoryOwners).Put(ownerKey(*category.OwnerKind, *category.OwnerID), itob(id)); err != nil {
			return err
		}
	}

	balances := bucket(tx, bucketBalances)
	balanceID, err := nextID(balances)
	if err != nil {
		return err
	}
	balance := domain.TransactionCategoryBalance{
		TransactionCategoryBalanceID: balanceID,
		TransactionCategoryID:        id,
		OpeningBalance:               openingBalance,
		RunningBalance:               openingBalance,
		EffectiveDate:                category.CreatedAt,
		AuditFields:                  domain.NewAuditFields(category.CreatedBy, category.CreatedAt),
	}
	return putJSON(balances, itob(id), balance)
}

// allocateCode bumps the chart's sequence until it yields a free code.
func allocateCode(tx *bolt.Tx, chart domain.ChartOfAccountCode) (domain.CategoryCode, error) {
	sequences := bucket(tx, bucketCategorySequence)
	codes := bucket(tx, bucketCategoryCodes)

	var last int64
	if v := sequences.Get([]byte(chart)); v != nil {
		last = btoi(v)
	}
	for {
		last++
		code := domain.CategoryCodeAt(chart, last)
		if codes.Get([]byte(code)) == nil {
			return code, sequences.Put([]byte(chart), itob(last))
		}
	}
}

// reserveCode moves the chart's sequence past a fixed code.
func reserveCode(tx *bolt.Tx, chart domain.ChartOfAccountCode, code domain.CategoryCode) error {
	n, ok := code.Sequence(chart)
	if !ok {
		return nil
	}
	sequences := bucket(tx, bucketCategorySequence)
	if v := sequences.Get([]byte(chart)); v != nil && btoi(v) >= n {
		return nil
	}
	return sequences.Put([]byte(chart), itob(n))
}
