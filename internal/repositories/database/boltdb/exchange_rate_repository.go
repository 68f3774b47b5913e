package boltdb

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

const rateDateFormat = "20060102"

type boltExchangeRateRepository struct {
	store *Store
}

func newBoltExchangeRateRepository(store *Store) portsrepo.ExchangeRateRepositoryFacade {
	return &boltExchangeRateRepository{store: store}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*boltExchangeRateRepository)(nil)

func ratePrefix(from, to string) []byte {
	return []byte(strings.ToUpper(from) + "|" + strings.ToUpper(to) + "|")
}

func rateKey(from, to string, date time.Time) []byte {
	return append(ratePrefix(from, to), date.UTC().Format(rateDateFormat)...)
}

// SaveExchangeRate stores a rate, replacing the rate of the same pair and date.
func (r *boltExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) (*domain.ExchangeRate, error) {
	err := r.store.update(ctx, func(tx *bolt.Tx) error {
		rates := bucket(tx, bucketExchangeRates)
		key := rateKey(rate.FromCurrencyCode, rate.ToCurrencyCode, rate.DateEffective)

		var existing domain.ExchangeRate
		switch err := getJSON(rates, key, &existing); {
		case err == nil:
			rate.ExchangeRateID = existing.ExchangeRateID
			rate.CreatedAt = existing.CreatedAt
			rate.CreatedBy = existing.CreatedBy
			rate.Version = existing.Version
			rate.Touch(rate.LastUpdatedBy, rate.LastUpdatedAt)
		case errors.Is(err, apperrors.ErrNotFound):
			id, err := nextID(rates)
			if err != nil {
				return err
			}
			rate.ExchangeRateID = id
		default:
			return err
		}
		return putJSON(rates, key, rate)
	})
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindExchangeRate retrieves the latest rate of the pair effective on or before asOf.
func (r *boltExchangeRateRepository) FindExchangeRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	var rate *domain.ExchangeRate
	err := r.store.view(ctx, func(tx *bolt.Tx) error {
		prefix := ratePrefix(from, to)
		target := rateKey(from, to, asOf)

		c := bucket(tx, bucketExchangeRates).Cursor()
		k, v := c.Seek(target)
		if k == nil {
			k, v = c.Last()
		} else if !bytes.Equal(k, target) {
			k, v = c.Prev()
		}

		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var candidate domain.ExchangeRate
			if err := unmarshal(v, &candidate); err != nil {
				return err
			}
			if !candidate.DeleteFlag {
				rate = &candidate
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return rate, nil
}
