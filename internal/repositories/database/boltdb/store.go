package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	bucketCategories       = "transaction_category"
	bucketCategoryCodes    = "transaction_category_by_code"
	bucketCategoryOwners   = "transaction_category_by_owner"
	bucketCategorySequence = "transaction_category_code_sequence"
	bucketBalances         = "transaction_category_balance"
	bucketJournals         = "journal"
	bucketJournalLines     = "journal_line_item"
	bucketLinesByCategory  = "journal_line_item_by_category"
	bucketReversals        = "journal_by_reversed_journal"
	bucketReferenceCounts  = "journal_reference_count"
	bucketExchangeRates    = "exchange_rate"
)

var allBuckets = []string{
	bucketCategories,
	bucketCategoryCodes,
	bucketCategoryOwners,
	bucketCategorySequence,
	bucketBalances,
	bucketJournals,
	bucketJournalLines,
	bucketLinesByCategory,
	bucketReversals,
	bucketReferenceCounts,
	bucketExchangeRates,
}

// Store is a single-file embedded ledger store. bbolt allows one writer at a time, so every
// posting runs serialised inside its own Update transaction.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at path and initialises its buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketJournals)) == nil {
			return fmt.Errorf("bucket %s not found", bucketJournals)
		}
		return nil
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// view and update run fn in a read-only or read-write transaction unless ctx is already done.
func (s *Store) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

func bucket(tx *bolt.Tx, name string) *bolt.Bucket {
	return tx.Bucket([]byte(name))
}

// nextID returns the next sequence value of a bucket.
func nextID(b *bolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to allocate id", err)
	}
	return int64(seq), nil
}

func getJSON(b *bolt.Bucket, key []byte, value any) error {
	data := b.Get(key)
	if data == nil {
		return apperrors.ErrNotFound
	}
	return unmarshal(data, value)
}

func unmarshal(data []byte, value any) error {
	if err := json.Unmarshal(data, value); err != nil {
		return apperrors.NewAppError(500, "failed to decode record", err)
	}
	return nil
}

func putJSON(b *bolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode record", err)
	}
	return b.Put(key, data)
}

// itob encodes an id as an order-preserving 8-byte key.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// timeKey encodes t as an order-preserving 8-byte key, negative offsets included.
func timeKey(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UTC().UnixNano())^(1<<63))
	return b
}

func joinKey(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}
