package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
)

// poolStore adapts a connection pool to the repository Store lifecycle.
type poolStore struct {
	pool *pgxpool.Pool
}

var _ portsrepo.Store = (*poolStore)(nil)

func (s *poolStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *poolStore) Close() error {
	s.pool.Close()
	return nil
}
