package boltdb

import (
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
)

// NewRepositoryProvider creates the repositories backed by an embedded store.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		Store:            store,
		CategoryRepo:     newBoltCategoryRepository(store),
		JournalRepo:      newBoltJournalRepository(store),
		ExchangeRateRepo: newBoltExchangeRateRepository(store),
	}
}
