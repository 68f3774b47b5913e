package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a row of exchange_rate. DateEffective is a calendar date.
type ExchangeRate struct {
	ExchangeRateID   int64           `db:"exchange_rate_id"`
	FromCurrencyCode string          `db:"from_currency_code"`
	ToCurrencyCode   string          `db:"to_currency_code"`
	Rate             decimal.Decimal `db:"exchange_rate"`
	DateEffective    time.Time       `db:"date_effective"`
	AuditFields
}
