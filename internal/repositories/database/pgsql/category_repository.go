package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	"github.com/simpleaccounts/ledger-core/internal/models"
	"github.com/simpleaccounts/ledger-core/internal/utils/mapping"
)

const categoryColumns = `
	transaction_category_id, transaction_category_code, transaction_category_name, chart_of_account_code,
	parent_transaction_category_id, editable_flag, selectable_flag, owner_kind, owner_id,
	created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number`

const balanceColumns = `
	transaction_category_balance_id, transaction_category_id, opening_balance, running_balance, effective_date,
	created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number`

type PgxCategoryRepository struct {
	BaseRepository
}

func newPgxCategoryRepository(pool *pgxpool.Pool) portsrepo.TransactionCategoryRepositoryFacade {
	return &PgxCategoryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionCategoryRepositoryFacade = (*PgxCategoryRepository)(nil)

func scanCategory(row pgx.Row) (models.TransactionCategory, error) {
	var m models.TransactionCategory
	err := row.Scan(
		&m.TransactionCategoryID,
		&m.TransactionCategoryCode,
		&m.TransactionCategoryName,
		&m.ChartOfAccountCode,
		&m.ParentTransactionCategoryID,
		&m.EditableFlag,
		&m.SelectableFlag,
		&m.OwnerKind,
		&m.OwnerID,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.LastUpdatedBy,
		&m.LastUpdatedAt,
		&m.DeleteFlag,
		&m.Version,
	)
	return m, err
}

func scanBalance(row pgx.Row) (models.TransactionCategoryBalance, error) {
	var m models.TransactionCategoryBalance
	err := row.Scan(
		&m.TransactionCategoryBalanceID,
		&m.TransactionCategoryID,
		&m.OpeningBalance,
		&m.RunningBalance,
		&m.EffectiveDate,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.LastUpdatedBy,
		&m.LastUpdatedAt,
		&m.DeleteFlag,
		&m.Version,
	)
	return m, err
}

func (r *PgxCategoryRepository) findOne(q pgx.Row, what string) (*domain.TransactionCategory, error) {
	m, err := scanCategory(q)
	if err != nil {
		return nil, wrapQueryError(err, "failed to find category "+what)
	}
	c := mapping.ToDomainTransactionCategory(m)
	return &c, nil
}

// FindCategoryByCode retrieves a category by code, soft-deleted rows included.
func (r *PgxCategoryRepository) FindCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.TransactionCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM transaction_category WHERE transaction_category_code = $1`
	return r.findOne(r.Pool.QueryRow(ctx, query, string(code)), string(code))
}

// FindCategoriesByIDs retrieves the categories that exist among ids.
func (r *PgxCategoryRepository) FindCategoriesByIDs(ctx context.Context, ids []int64) (map[int64]domain.TransactionCategory, error) {
	result := make(map[int64]domain.TransactionCategory, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM transaction_category WHERE transaction_category_id = ANY($1)`
	rows, err := r.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query categories by id", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan category row", err)
		}
		result[m.TransactionCategoryID] = mapping.ToDomainTransactionCategory(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating category rows", err)
	}
	return result, nil
}

// FindCategoryByOwner retrieves the live category of an owner.
func (r *PgxCategoryRepository) FindCategoryByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64) (*domain.TransactionCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM transaction_category
		WHERE owner_kind = $1 AND owner_id = $2 AND NOT delete_flag`
	return r.findOne(r.Pool.QueryRow(ctx, query, string(kind), ownerID), fmt.Sprintf("for owner %s:%d", kind, ownerID))
}

// ListCategories retrieves all live categories ordered by code.
func (r *PgxCategoryRepository) ListCategories(ctx context.Context) ([]domain.TransactionCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM transaction_category
		WHERE NOT delete_flag ORDER BY transaction_category_code`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list categories", err)
	}
	defer rows.Close()

	var categories []domain.TransactionCategory
	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan category row", err)
		}
		categories = append(categories, mapping.ToDomainTransactionCategory(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating category rows", err)
	}
	return categories, nil
}

// FindBalance retrieves the balance row of a category.
func (r *PgxCategoryRepository) FindBalance(ctx context.Context, categoryID int64) (*domain.TransactionCategoryBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM transaction_category_balance WHERE transaction_category_id = $1`
	m, err := scanBalance(r.Pool.QueryRow(ctx, query, categoryID))
	if err != nil {
		return nil, wrapQueryError(err, "failed to find balance of category "+strconv.FormatInt(categoryID, 10))
	}
	b := mapping.ToDomainTransactionCategoryBalance(m)
	return &b, nil
}

// ListBalances retrieves every live balance row.
func (r *PgxCategoryRepository) ListBalances(ctx context.Context) ([]domain.TransactionCategoryBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM transaction_category_balance
		WHERE NOT delete_flag ORDER BY transaction_category_id`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list balances", err)
	}
	defer rows.Close()

	var balances []domain.TransactionCategoryBalance
	for rows.Next() {
		m, err := scanBalance(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance row", err)
		}
		balances = append(balances, mapping.ToDomainTransactionCategoryBalance(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance rows", err)
	}
	return balances, nil
}

// CreateCategoryWithNextCode allocates the next code under the category's chart and stores
// the category with its balance row. The sequence row lock serialises allocations per chart.
func (r *PgxCategoryRepository) CreateCategoryWithNextCode(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	code, err := allocateCode(ctx, tx, category.ChartOfAccountCode)
	if err != nil {
		return nil, err
	}
	category.Code = code
	if err := insertCategory(ctx, tx, &category, openingBalance); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &category, nil
}

// EnsureCategory stores a category under its fixed code unless the code is taken.
func (r *PgxCategoryRepository) EnsureCategory(ctx context.Context, category domain.TransactionCategory, openingBalance decimal.Decimal) (*domain.TransactionCategory, bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer r.Rollback(ctx, tx)

	query := `SELECT ` + categoryColumns + ` FROM transaction_category WHERE transaction_category_code = $1 FOR UPDATE`
	existing, err := scanCategory(tx.QueryRow(ctx, query, string(category.Code)))
	if err == nil {
		c := mapping.ToDomainTransactionCategory(existing)
		return &c, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapQueryError(err, "failed to look up category "+string(category.Code))
	}

	if err := reserveCode(ctx, tx, category.ChartOfAccountCode, category.Code); err != nil {
		return nil, false, err
	}
	if err := insertCategory(ctx, tx, &category, openingBalance); err != nil {
		return nil, false, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, false, err
	}
	return &category, true, nil
}

// SoftDeleteCategory flags a category and its balance row as deleted.
func (r *PgxCategoryRepository) SoftDeleteCategory(ctx context.Context, categoryID int64, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	for _, table := range []string{"transaction_category", "transaction_category_balance"} {
		query := `UPDATE ` + table + `
			SET delete_flag = TRUE, last_updated_by = $2, last_update_date = $3, version_number = version_number + 1
			WHERE transaction_category_id = $1`
		tag, err := tx.Exec(ctx, query, categoryID, userID, now)
		if err != nil {
			return apperrors.NewAppError(500, "failed to soft delete "+table, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s %d: %w", table, categoryID, apperrors.ErrNotFound)
		}
	}
	return r.Commit(ctx, tx)
}

func insertCategory(ctx context.Context, tx pgx.Tx, category *domain.TransactionCategory, openingBalance decimal.Decimal) error {
	m := mapping.ToModelTransactionCategory(*category)
	err := tx.QueryRow(ctx, `
		INSERT INTO transaction_category (
			transaction_category_code, transaction_category_name, chart_of_account_code,
			parent_transaction_category_id, editable_flag, selectable_flag, owner_kind, owner_id,
			created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING transaction_category_id`,
		m.TransactionCategoryCode,
		m.TransactionCategoryName,
		m.ChartOfAccountCode,
		m.ParentTransactionCategoryID,
		m.EditableFlag,
		m.SelectableFlag,
		m.OwnerKind,
		m.OwnerID,
		m.CreatedBy,
		m.CreatedAt,
		m.LastUpdatedBy,
		m.LastUpdatedAt,
		m.DeleteFlag,
		m.Version,
	).Scan(&category.TransactionCategoryID)
	if err != nil {
		return wrapQueryError(err, "failed to insert category "+m.TransactionCategoryCode)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transaction_category_balance (
			transaction_category_id, opening_balance, running_balance, effective_date,
			created_by, created_date, last_updated_by, last_update_date
		)
		VALUES ($1, $2, $2, $3, $4, $3, $4, $3)`,
		category.TransactionCategoryID, openingBalance, category.CreatedAt, category.CreatedBy,
	)
	if err != nil {
		return wrapQueryError(err, "failed to insert balance for category "+m.TransactionCategoryCode)
	}
	return nil
}

// allocateCode bumps the chart's sequence until it yields a free code.
func allocateCode(ctx context.Context, tx pgx.Tx, chart domain.ChartOfAccountCode) (domain.CategoryCode, error) {
	for {
		var next int64
		err := tx.QueryRow(ctx, `
			INSERT INTO transaction_category_code_sequence (chart_of_account_code, last_value)
			VALUES ($1, 1)
			ON CONFLICT (chart_of_account_code)
			DO UPDATE SET last_value = transaction_category_code_sequence.last_value + 1
			RETURNING last_value`, string(chart)).Scan(&next)
		if err != nil {
			return "", apperrors.NewAppError(500, "failed to allocate code under chart "+string(chart), err)
		}

		code := domain.CategoryCodeAt(chart, next)
		var taken bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM transaction_category WHERE transaction_category_code = $1)`,
			string(code)).Scan(&taken)
		if err != nil {
			return "", apperrors.NewAppError(500, "failed to check code "+string(code), err)
		}
		if !taken {
			return code, nil
		}
	}
}

// reserveCode moves the chart's sequence past a fixed code.
func reserveCode(ctx context.Context, tx pgx.Tx, chart domain.ChartOfAccountCode, code domain.CategoryCode) error {
	n, ok := code.Sequence(chart)
	if !ok {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO transaction_category_code_sequence (chart_of_account_code, last_value)
		VALUES ($1, $2)
		ON CONFLICT (chart_of_account_code)
		DO UPDATE SET last_value = GREATEST(transaction_category_code_sequence.last_value, EXCLUDED.last_value)`,
		string(chart), n)
	if err != nil {
		return apperrors.NewAppError(500, "failed to reserve code "+string(code), err)
	}
	return nil
}
