package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

// CurrencyConverterSvc supplies the exchange rate in effect for a pair on a date.
type CurrencyConverterSvc interface {
	// RateFor returns how many units of to one unit of from buys as of asOf, or
	// *apperrors.NoRateAvailableError.
	RateFor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
}

// ExchangeRateWriterSvc defines write operations for exchange rate data
type ExchangeRateWriterSvc interface {
	// SaveExchangeRate records a rate for a pair and effective date.
	SaveExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest) (*domain.ExchangeRate, error)
}

// ExchangeRateSvcFacade combines all exchange rate-related service interfaces
type ExchangeRateSvcFacade interface {
	CurrencyConverterSvc
	ExchangeRateWriterSvc
}
