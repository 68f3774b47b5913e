package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateExchangeRateRequest defines the structure for recording an exchange rate.
type CreateExchangeRateRequest struct {
	FromCurrencyCode string          `json:"fromCurrencyCode" validate:"required,len=3,uppercase"`
	ToCurrencyCode   string          `json:"toCurrencyCode" validate:"required,len=3,uppercase,nefield=FromCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	DateEffective    time.Time       `json:"dateEffective" validate:"required"`
	UserID           string          `json:"userID" validate:"required"`
}
