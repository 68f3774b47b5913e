package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/dto"
)

// inverseRatePrecision is the number of decimal places kept when inverting a stored rate.
const inverseRatePrecision = 10

// exchangeRateService provides business logic for exchange rates.
type exchangeRateService struct {
	BaseService
	rateRepo portsrepo.ExchangeRateRepositoryFacade
	now      Clock
}

// NewExchangeRateService creates a new exchange rate service.
func NewExchangeRateService(rateRepo portsrepo.ExchangeRateRepositoryFacade) portssvc.ExchangeRateSvcFacade {
	return &exchangeRateService{
		rateRepo: rateRepo,
		now:      time.Now,
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

// RateFor returns the rate in effect on asOf. A stored rate for the inverse pair is used
// when the direct pair has none.
func (s *exchangeRateService) RateFor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	day := dateOnly(asOf)

	rate, err := s.rateRepo.FindExchangeRate(ctx, from, to, day)
	if err == nil {
		return rate.Rate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("failed to get exchange rate %s/%s: %w", from, to, err)
	}

	inverse, err := s.rateRepo.FindExchangeRate(ctx, to, from, day)
	if err == nil && inverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse.Rate, inverseRatePrecision), nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("failed to get exchange rate %s/%s: %w", to, from, err)
	}

	s.LogWarn(ctx, "No exchange rate available",
		slog.String("from", from),
		slog.String("to", to),
		slog.Time("as_of", day))
	return decimal.Zero, &apperrors.NoRateAvailableError{From: from, To: to, AsOf: day}
}

// SaveExchangeRate records a rate effective from the request's date.
func (s *exchangeRateService) SaveExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest) (*domain.ExchangeRate, error) {
	req.FromCurrencyCode = strings.ToUpper(req.FromCurrencyCode)
	req.ToCurrencyCode = strings.ToUpper(req.ToCurrencyCode)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive", apperrors.ErrValidation)
	}

	rate := domain.ExchangeRate{
		FromCurrencyCode: req.FromCurrencyCode,
		ToCurrencyCode:   req.ToCurrencyCode,
		Rate:             req.Rate,
		DateEffective:    dateOnly(req.DateEffective),
		AuditFields:      domain.NewAuditFields(req.UserID, s.now()),
	}

	saved, err := s.rateRepo.SaveExchangeRate(ctx, rate)
	if err != nil {
		s.LogError(ctx, err, "Failed to save exchange rate")
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}
	s.LogInfo(ctx, "Exchange rate saved",
		slog.String("from", saved.FromCurrencyCode),
		slog.String("to", saved.ToCurrencyCode),
		slog.String("rate", saved.Rate.String()))
	return saved, nil
}
