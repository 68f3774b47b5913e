package pgsql

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	"github.com/simpleaccounts/ledger-core/internal/models"
	"github.com/simpleaccounts/ledger-core/internal/utils/mapping"
)

const exchangeRateColumns = `
	exchange_rate_id, from_currency_code, to_currency_code, exchange_rate, date_effective,
	created_by, created_date, last_updated_by, last_update_date, delete_flag, version_number`

// PgxExchangeRateRepository implements the exchange rate repository using pgxpool.
type PgxExchangeRateRepository struct {
	BaseRepository
}

func newPgxExchangeRateRepository(pool *pgxpool.Pool) portsrepo.ExchangeRateRepositoryFacade {
	return &PgxExchangeRateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

func scanExchangeRate(row pgx.Row) (models.ExchangeRate, error) {
	var m models.ExchangeRate
	err := row.Scan(
		&m.ExchangeRateID,
		&m.FromCurrencyCode,
		&m.ToCurrencyCode,
		&m.Rate,
		&m.DateEffective,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.LastUpdatedBy,
		&m.LastUpdatedAt,
		&m.DeleteFlag,
		&m.Version,
	)
	return m, err
}

// SaveExchangeRate upserts the rate of a pair for its effective date. A replaced row keeps
// its ID and creation columns and bumps its version.
func (r *PgxExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) (*domain.ExchangeRate, error) {
	modelRate := mapping.ToModelExchangeRate(rate)
	modelRate.FromCurrencyCode = strings.ToUpper(modelRate.FromCurrencyCode)
	modelRate.ToCurrencyCode = strings.ToUpper(modelRate.ToCurrencyCode)

	row := r.Pool.QueryRow(ctx, `
		INSERT INTO exchange_rate (
			from_currency_code, to_currency_code, exchange_rate, date_effective,
			created_by, created_date, last_updated_by, last_update_date
		)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8)
		ON CONFLICT (from_currency_code, to_currency_code, date_effective)
		DO UPDATE SET
			exchange_rate = EXCLUDED.exchange_rate,
			last_updated_by = EXCLUDED.last_updated_by,
			last_update_date = EXCLUDED.last_update_date,
			delete_flag = FALSE,
			version_number = exchange_rate.version_number + 1
		RETURNING `+exchangeRateColumns,
		modelRate.FromCurrencyCode,
		modelRate.ToCurrencyCode,
		modelRate.Rate,
		modelRate.DateEffective,
		modelRate.CreatedBy,
		modelRate.CreatedAt,
		modelRate.LastUpdatedBy,
		modelRate.LastUpdatedAt,
	)
	saved, err := scanExchangeRate(row)
	if err != nil {
		return nil, wrapQueryError(err, "failed to save exchange rate "+modelRate.FromCurrencyCode+"/"+modelRate.ToCurrencyCode)
	}
	result := mapping.ToDomainExchangeRate(saved)
	return &result, nil
}

// FindExchangeRate retrieves the latest live rate of the pair effective on or before asOf.
func (r *PgxExchangeRateRepository) FindExchangeRate(ctx context.Context, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT `+exchangeRateColumns+`
		FROM exchange_rate
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND date_effective <= $3::date AND NOT delete_flag
		ORDER BY date_effective DESC
		LIMIT 1`,
		strings.ToUpper(from), strings.ToUpper(to), asOf.UTC(),
	)
	m, err := scanExchangeRate(row)
	if err != nil {
		return nil, wrapQueryError(err, "failed to find exchange rate "+from+"/"+to)
	}
	rate := mapping.ToDomainExchangeRate(m)
	return &rate, nil
}
