package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	"github.com/simpleaccounts/ledger-core/internal/models"
	"github.com/simpleaccounts/ledger-core/internal/utils/accounting"
	"github.com/simpleaccounts/ledger-core/internal/utils/mapping"
	"github.com/simpleaccounts/ledger-core/internal/utils/pagination"
)

const journalColumns = `
	journal_id, journal_date, transaction_date, description, journal_reference_no, currency_code, exchange_rate,
	sub_total_debit_amount, sub_total_credit_amount, total_debit_amount, total_credit_amount,
	posting_reference_type, reference_id, reversal_flag, reversed_journal_id,
	created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number`

const lineColumns = `
	journal_line_item_id, journal_id, line_number, transaction_category_id, transaction_date,
	debit_amount, credit_amount, original_debit_amount, original_credit_amount, currency_code, exchange_rate,
	reference_id, reference_type, current_balance, reversal_flag,
	created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number`

const reversalIndex = "uq_journal_reversed_journal_id"

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal and line item data.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

func scanJournal(row pgx.Row) (models.Journal, error) {
	var m models.Journal
	err := row.Scan(
		&m.JournalID,
		&m.JournalDate,
		&m.TransactionDate,
		&m.Description,
		&m.ReferenceNumber,
		&m.CurrencyCode,
		&m.ExchangeRate,
		&m.SubTotalDebitAmount,
		&m.SubTotalCreditAmount,
		&m.TotalDebitAmount,
		&m.TotalCreditAmount,
		&m.PostingReferenceType,
		&m.ReferenceID,
		&m.ReversalFlag,
		&m.ReversedJournalID,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.LastUpdatedBy,
		&m.LastUpdatedAt,
		&m.DeleteFlag,
		&m.Version,
	)
	return m, err
}

func scanLine(row pgx.Row) (models.JournalLineItem, error) {
	var m models.JournalLineItem
	err := row.Scan(
		&m.JournalLineItemID,
		&m.JournalID,
		&m.LineNumber,
		&m.TransactionCategoryID,
		&m.TransactionDate,
		&m.DebitAmount,
		&m.CreditAmount,
		&m.OriginalDebitAmount,
		&m.OriginalCreditAmount,
		&m.CurrencyCode,
		&m.ExchangeRate,
		&m.ReferenceID,
		&m.ReferenceType,
		&m.CurrentBalance,
		&m.ReversalFlag,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.LastUpdatedBy,
		&m.LastUpdatedAt,
		&m.DeleteFlag,
		&m.Version,
	)
	return m, err
}

func collectLines(rows pgx.Rows, what string) ([]models.JournalLineItem, error) {
	defer rows.Close()
	var lines []models.JournalLineItem
	for rows.Next() {
		m, err := scanLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line item row for "+what, err)
		}
		lines = append(lines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line item rows for "+what, err)
	}
	return lines, nil
}

// touchedCategoryIDs returns the distinct categories of a journal in ascending order, so
// concurrent postings update balance rows in the same order.
func touchedCategoryIDs(lines []domain.JournalLineItem) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.TransactionCategoryID]; ok {
			continue
		}
		seen[line.TransactionCategoryID] = struct{}{}
		ids = append(ids, line.TransactionCategoryID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SaveJournal writes the journal, its lines and the touched balances in one transaction.
// Balance rows are read without locks and written back with a version check; a row that
// moved in between aborts the posting with a ConcurrentBalanceConflictError.
func (r *PgxJournalRepository) SaveJournal(ctx context.Context, journal domain.Journal, sides map[int64]domain.NormalSide) (*domain.PostedJournal, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	if journal.ReversedJournalID != nil {
		var existing int64
		err := tx.QueryRow(ctx,
			`SELECT journal_id FROM journal WHERE reversed_journal_id = $1 AND NOT delete_flag`,
			*journal.ReversedJournalID).Scan(&existing)
		if err == nil {
			return nil, &apperrors.AlreadyReversedError{JournalID: *journal.ReversedJournalID, ReversalJournalID: existing}
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAppError(500, "failed to check reversal of journal", err)
		}
	}

	now := journal.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// 1. Read the balances the journal moves.
	categoryIDs := touchedCategoryIDs(journal.LineItems)
	balances := make(map[int64]domain.TransactionCategoryBalance, len(categoryIDs))
	expected := make(map[int64]int64, len(categoryIDs))
	rows, err := tx.Query(ctx,
		`SELECT `+balanceColumns+` FROM transaction_category_balance WHERE transaction_category_id = ANY($1)`,
		categoryIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to read category balances", err)
	}
	for rows.Next() {
		m, err := scanBalance(rows)
		if err != nil {
			rows.Close()
			return nil, apperrors.NewAppError(500, "failed to scan balance row", err)
		}
		balances[m.TransactionCategoryID] = mapping.ToDomainTransactionCategoryBalance(m)
		expected[m.TransactionCategoryID] = m.Version
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance rows", err)
	}

	// 2. Insert the journal header.
	modelJournal := mapping.ToModelJournal(journal)
	err = tx.QueryRow(ctx, `
		INSERT INTO journal (
			journal_date, transaction_date, description, journal_reference_no, currency_code, exchange_rate,
			sub_total_debit_amount, sub_total_credit_amount, total_debit_amount, total_credit_amount,
			posting_reference_type, reference_id, reversal_flag, reversed_journal_id,
			created_by, created_date, last_updated_by, last_update_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING journal_id`,
		modelJournal.JournalDate,
		modelJournal.TransactionDate,
		modelJournal.Description,
		modelJournal.ReferenceNumber,
		modelJournal.CurrencyCode,
		modelJournal.ExchangeRate,
		modelJournal.SubTotalDebitAmount,
		modelJournal.SubTotalCreditAmount,
		modelJournal.TotalDebitAmount,
		modelJournal.TotalCreditAmount,
		modelJournal.PostingReferenceType,
		modelJournal.ReferenceID,
		modelJournal.ReversalFlag,
		modelJournal.ReversedJournalID,
		modelJournal.CreatedBy,
		modelJournal.CreatedAt,
		modelJournal.LastUpdatedBy,
		modelJournal.LastUpdatedAt,
	).Scan(&journal.JournalID)
	if err != nil {
		if constraint, ok := constraintViolation(err); ok && constraint == reversalIndex && journal.ReversedJournalID != nil {
			return nil, &apperrors.AlreadyReversedError{JournalID: *journal.ReversedJournalID}
		}
		return nil, wrapQueryError(err, "failed to insert journal")
	}

	// 3. Apply each line in order and queue its insert.
	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO journal_line_item (
			journal_id, line_number, transaction_category_id, transaction_date,
			debit_amount, credit_amount, original_debit_amount, original_credit_amount, currency_code, exchange_rate,
			reference_id, reference_type, current_balance, reversal_flag,
			created_by, created_date, last_updated_by, last_update_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING journal_line_item_id`
	touched := make(map[int64]domain.TransactionCategoryBalance, len(categoryIDs))
	journal.LineItems = append([]domain.JournalLineItem(nil), journal.LineItems...)
	for i := range journal.LineItems {
		line := &journal.LineItems[i]
		categoryID := line.TransactionCategoryID

		side, ok := sides[categoryID]
		if !ok {
			return nil, fmt.Errorf("%w: no normal side for category %d", apperrors.ErrValidation, categoryID)
		}
		balance, ok := balances[categoryID]
		if !ok {
			return nil, fmt.Errorf("balance of category %d: %w", categoryID, apperrors.ErrNotFound)
		}
		delta, err := accounting.CalculateSignedAmount(*line, side)
		if err != nil {
			return nil, err
		}
		balance.RunningBalance = balance.RunningBalance.Add(delta)
		if _, seen := touched[categoryID]; !seen {
			balance.Touch(journal.CreatedBy, now)
		}
		balances[categoryID] = balance
		touched[categoryID] = balance

		line.JournalID = journal.JournalID
		if line.LineNumber == 0 {
			line.LineNumber = i + 1
		}
		line.CurrentBalance = balance.RunningBalance
		line.TransactionDate = journal.TransactionDate

		m := mapping.ToModelJournalLineItem(*line)
		batch.Queue(lineQuery,
			m.JournalID,
			m.LineNumber,
			m.TransactionCategoryID,
			m.TransactionDate,
			m.DebitAmount,
			m.CreditAmount,
			m.OriginalDebitAmount,
			m.OriginalCreditAmount,
			m.CurrencyCode,
			m.ExchangeRate,
			m.ReferenceID,
			m.ReferenceType,
			m.CurrentBalance,
			m.ReversalFlag,
			m.CreatedBy,
			m.CreatedAt,
			m.LastUpdatedBy,
			m.LastUpdatedAt,
		)
	}

	// 4. Write the final balance of every touched category behind a version check.
	updateQuery := `
		UPDATE transaction_category_balance
		SET running_balance = $1, last_updated_by = $2, last_update_date = $3, version_number = $4
		WHERE transaction_category_id = $5 AND version_number = $6`
	for _, categoryID := range categoryIDs {
		b := touched[categoryID]
		batch.Queue(updateQuery, b.RunningBalance, b.LastUpdatedBy, b.LastUpdatedAt, b.Version, categoryID, expected[categoryID])
	}

	br := tx.SendBatch(ctx, batch)
	for i := range journal.LineItems {
		if err := br.QueryRow().Scan(&journal.LineItems[i].JournalLineItemID); err != nil {
			br.Close()
			return nil, wrapQueryError(err, "failed to insert line "+strconv.Itoa(i+1)+" of journal "+strconv.FormatInt(journal.JournalID, 10))
		}
	}
	for _, categoryID := range categoryIDs {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			if isRetryable(err) {
				return nil, &apperrors.ConcurrentBalanceConflictError{TransactionCategoryID: categoryID, ExpectedVersion: expected[categoryID]}
			}
			return nil, apperrors.NewAppError(500, "failed to update balance of category "+strconv.FormatInt(categoryID, 10), err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return nil, &apperrors.ConcurrentBalanceConflictError{TransactionCategoryID: categoryID, ExpectedVersion: expected[categoryID]}
		}
	}
	if err := br.Close(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to execute batch for journal "+strconv.FormatInt(journal.JournalID, 10), err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		if isRetryable(err) {
			return nil, &apperrors.ConcurrentBalanceConflictError{TransactionCategoryID: categoryIDs[0], ExpectedVersion: expected[categoryIDs[0]]}
		}
		return nil, err
	}
	return &domain.PostedJournal{Journal: journal, Balances: touched}, nil
}

// FindJournalByID retrieves a journal with its lines.
func (r *PgxJournalRepository) FindJournalByID(ctx context.Context, journalID int64) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE journal_id = $1`
	return r.findJournal(ctx, r.Pool.QueryRow(ctx, query, journalID), "journal "+strconv.FormatInt(journalID, 10))
}

// FindReversalOf retrieves the live journal that reversed journalID.
func (r *PgxJournalRepository) FindReversalOf(ctx context.Context, journalID int64) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE reversed_journal_id = $1 AND NOT delete_flag`
	return r.findJournal(ctx, r.Pool.QueryRow(ctx, query, journalID), "reversal of journal "+strconv.FormatInt(journalID, 10))
}

func (r *PgxJournalRepository) findJournal(ctx context.Context, row pgx.Row, what string) (*domain.Journal, error) {
	m, err := scanJournal(row)
	if err != nil {
		return nil, wrapQueryError(err, "failed to find "+what)
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+lineColumns+` FROM journal_line_item WHERE journal_id = $1 ORDER BY line_number, journal_line_item_id`,
		m.JournalID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for "+what, err)
	}
	lines, err := collectLines(rows, what)
	if err != nil {
		return nil, err
	}
	journal := mapping.ToDomainJournal(m, lines)
	return &journal, nil
}

// CountJournalsByReference counts the live journals posted for a source document.
func (r *PgxJournalRepository) CountJournalsByReference(ctx context.Context, referenceID int64, postingType domain.PostingReferenceType) (int, error) {
	var count int
	err := r.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal WHERE reference_id = $1 AND posting_reference_type = $2 AND NOT delete_flag`,
		referenceID, string(postingType)).Scan(&count)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to count journals for reference", err)
	}
	return count, nil
}

// ListLinesByCategory pages through a category's lines with a keyset cursor on
// (transaction_date, journal_line_item_id).
func (r *PgxJournalRepository) ListLinesByCategory(ctx context.Context, categoryID int64, limit int, nextToken *string) ([]domain.JournalLineItem, *string, error) {
	cursor, err := pagination.DecodeOptionalToken(nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	// Fetch one extra row to learn whether another page exists.
	fetchLimit := limit + 1

	args := []any{categoryID}
	query := `SELECT ` + lineColumns + ` FROM journal_line_item WHERE transaction_category_id = $1`
	if cursor != nil {
		query += ` AND (transaction_date, journal_line_item_id) > ($2, $3)`
		args = append(args, cursor.TransactionDate, cursor.LineID)
	}
	query += ` ORDER BY transaction_date, journal_line_item_id LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query lines of category "+strconv.FormatInt(categoryID, 10), err)
	}
	lines, err := collectLines(rows, "category "+strconv.FormatInt(categoryID, 10))
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	if len(lines) > limit {
		last := lines[limit-1]
		token := pagination.EncodeToken(pagination.Cursor{TransactionDate: last.TransactionDate, LineID: last.JournalLineItemID})
		nextTokenVal = &token
		lines = lines[:limit]
	}
	return mapping.ToDomainJournalLineItemSlice(lines), nextTokenVal, nil
}

// SumLinesByCategory totals the debit and credit columns of a category's live lines.
func (r *PgxJournalRepository) SumLinesByCategory(ctx context.Context, categoryID int64) (decimal.Decimal, decimal.Decimal, int, error) {
	var debit, credit decimal.Decimal
	var count int
	err := r.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(debit_amount), 0), COALESCE(SUM(credit_amount), 0), COUNT(*)
		FROM journal_line_item
		WHERE transaction_category_id = $1 AND NOT delete_flag`, categoryID).Scan(&debit, &credit, &count)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, apperrors.NewAppError(500, "failed to total lines of category "+strconv.FormatInt(categoryID, 10), err)
	}
	return debit, credit, count, nil
}
