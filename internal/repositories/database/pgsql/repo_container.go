package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
)

// NewRepositoryProvider creates the repositories backed by a PostgreSQL pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		Store:            &poolStore{pool: dbPool},
		CategoryRepo:     newPgxCategoryRepository(dbPool),
		JournalRepo:      newPgxJournalRepository(dbPool),
		ExchangeRateRepo: newPgxExchangeRateRepository(dbPool),
	}
}
