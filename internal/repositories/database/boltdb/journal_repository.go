package boltdb

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	"github.com/simpleaccounts/ledger-core/internal/utils/accounting"
	"github.com/simpleaccounts/ledger-core/internal/utils/pagination"
	bolt "go.etcd.io/bbolt"
)

type boltJournalRepository struct {
	store *Store
}

func newBoltJournalRepository(store *Store) portsrepo.JournalRepositoryFacade {
	return &boltJournalRepository{store: store}
}

var _ portsrepo.JournalRepositoryFacade = (*boltJournalRepository)(nil)

func referenceKey(postingType domain.PostingReferenceType, referenceID int64) []byte {
	return joinKey([]byte(postingType), []byte("|"), itob(referenceID))
}

// lineKey orders a category's lines by transaction date, then line ID.
func lineKey(categoryID int64, date time.Time, lineID int64) []byte {
	return joinKey(itob(categoryID), timeKey(date), itob(lineID))
}

// SaveJournal writes the journal, its lines and the touched balances in one Update
// transaction. Any error rolls the whole posting back.
func (r *boltJournalRepository) SaveJournal(ctx context.Context, journal domain.Journal, sides map[int64]domain.NormalSide) (*domain.PostedJournal, error) {
	var posted *domain.PostedJournal
	err := r.store.update(ctx, func(tx *bolt.Tx) error {
		reversals := bucket(tx, bucketReversals)
		if journal.ReversedJournalID != nil {
			if existing := reversals.Get(itob(*journal.ReversedJournalID)); existing != nil {
				return &apperrors.AlreadyReversedError{JournalID: *journal.ReversedJournalID, ReversalJournalID: btoi(existing)}
			}
		}

		journals := bucket(tx, bucketJournals)
		journalID, err := nextID(journals)
		if err != nil {
			return err
		}
		journal.JournalID = journalID

		now := journal.CreatedAt
		if now.IsZero() {
			now = time.Now().UTC()
		}

		balances := bucket(tx, bucketBalances)
		lines := bucket(tx, bucketJournalLines)
		byCategory := bucket(tx, bucketLinesByCategory)
		touched := make(map[int64]domain.TransactionCategoryBalance)

		journal.LineItems = append([]domain.JournalLineItem(nil), journal.LineItems...)
		for i := range journal.LineItems {
			line := &journal.LineItems[i]
			categoryID := line.TransactionCategoryID

			side, ok := sides[categoryID]
			if !ok {
				return fmt.Errorf("%w: no normal side for category %d", apperrors.ErrValidation, categoryID)
			}
			var balance domain.TransactionCategoryBalance
			if err := getJSON(balances, itob(categoryID), &balance); err != nil {
				return fmt.Errorf("balance of category %d: %w", categoryID, err)
			}
			delta, err := accounting.CalculateSignedAmount(*line, side)
			if err != nil {
				return err
			}
			balance.RunningBalance = balance.RunningBalance.Add(delta)
			if _, seen := touched[categoryID]; !seen {
				balance.Touch(journal.CreatedBy, now)
			}
			if err := putJSON(balances, itob(categoryID), balance); err != nil {
				return err
			}
			touched[categoryID] = balance

			lineID, err := nextID(lines)
			if err != nil {
				return err
			}
			line.JournalLineItemID = lineID
			line.JournalID = journalID
			if line.LineNumber == 0 {
				line.LineNumber = i + 1
			}
			line.CurrentBalance = balance.RunningBalance
			line.TransactionDate = journal.TransactionDate
			if err := putJSON(lines, itob(lineID), line); err != nil {
				return err
			}
			if err := putJSON(byCategory, lineKey(categoryID, journal.TransactionDate, lineID), line); err != nil {
				return err
			}
		}

		if err := putJSON(journals, itob(journalID), journal); err != nil {
			return err
		}
		if journal.ReversedJournalID != nil {
			if err := reversals.Put(itob(*journal.ReversedJournalID), itob(journalID)); err != nil {
				return err
			}
		}

		counts := bucket(tx, bucketReferenceCounts)
		key := referenceKey(journal.PostingReferenceType, journal.ReferenceID)
		var count int64
		if v := counts.Get(key); v != nil {
			count = btoi(v)
		}
		if err := counts.Put(key, itob(count+1)); err != nil {
			return err
		}

		posted = &domain.PostedJournal{Journal: journal, Balances: touched}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// FindJournalByID retrieves a journal with its lines.
func (r *boltJournalRepository) FindJournalByID(ctx context.Context, journalID int64) (*domain.Journal, error) {
	var journal domain.Journal
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		return getJSON(bucket(tx, bucketJournals), itob(journalID), &journal)
	})
	if err != nil {
		return nil, err
	}
	return &journal, nil
}

// FindReversalOf retrieves the journal that reversed journalID.
func (r *boltJournalRepository) FindReversalOf(ctx context.Context, journalID int64) (*domain.Journal, error) {
	var journal domain.Journal
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		id := bucket(tx, bucketReversals).Get(itob(journalID))
		if id == nil {
			return apperrors.ErrNotFound
		}
		return getJSON(bucket(tx, bucketJournals), id, &journal)
	})
	if err != nil {
		return nil, err
	}
	return &journal, nil
}

// CountJournalsByReference counts the journals posted for a source document.
func (r *boltJournalRepository) CountJournalsByReference(ctx context.Context, referenceID int64, postingType domain.PostingReferenceType) (int, error) {
	var count int
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		if v := bucket(tx, bucketReferenceCounts).Get(referenceKey(postingType, referenceID)); v != nil {
			count = int(btoi(v))
		}
		return nil
	})
	return count, err
}

// ListLinesByCategory pages through a category's lines with a keyset cursor.
func (r *boltJournalRepository) ListLinesByCategory(ctx context.Context, categoryID int64, limit int, nextToken *string) ([]domain.JournalLineItem, *string, error) {
	cursor, err := pagination.DecodeOptionalToken(nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	prefix := itob(categoryID)
	start := prefix
	if cursor != nil {
		start = lineKey(categoryID, cursor.TransactionDate, cursor.LineID+1)
	}

	var page []domain.JournalLineItem
	hasMore := false
	err = r.store.view(ctx, func(tx *bolt.Tx) error {
		c := bucket(tx, bucketLinesByCategory).Cursor()
		for k, v := c.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if len(page) == limit {
				hasMore = true
				return nil
			}
			var line domain.JournalLineItem
			if err := unmarshal(v, &line); err != nil {
				return err
			}
			page = append(page, line)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if !hasMore || len(page) == 0 {
		return page, nil, nil
	}
	last := page[len(page)-1]
	token := pagination.EncodeToken(pagination.Cursor{TransactionDate: last.TransactionDate, LineID: last.JournalLineItemID})
	return page, &token, nil
}

// SumLinesByCategory totals the debit and credit columns of a category's lines.
func (r *boltJournalRepository) SumLinesByCategory(ctx context.Context, categoryID int64) (decimal.Decimal, decimal.Decimal, int, error) {
	debit, credit := decimal.Zero, decimal.Zero
	count := 0
	prefix := itob(categoryID)
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		c := bucket(tx, bucketLinesByCategory).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var line domain.JournalLineItem
			if err := unmarshal(v, &line); err != nil {
				return err
			}
			if line.DeleteFlag {
				continue
			}
			debit = debit.Add(line.DebitAmount)
			credit = credit.Add(line.CreditAmount)
			count++
		}
		return nil
	})
	return debit, credit, count, err
}
