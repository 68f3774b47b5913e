package services

import (
	"fmt"

	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) (*portssvc.ServiceContainer, error) {
	container := &portssvc.ServiceContainer{}

	container.ExchangeRate = NewExchangeRateService(repos.ExchangeRateRepo)

	// The poster depends on the converter; the registry, reversal and posting services post through it.
	container.Builder = NewJournalBuilder(cfg.BaseCurrency)
	container.Poster = NewLedgerPoster(
		repos.CategoryRepo,
		repos.JournalRepo,
		container.ExchangeRate,
		cfg.BaseCurrency,
		WithPostingRetries(cfg.PostingMaxRetries, cfg.PostingRetryBackoff),
	)

	categories, err := NewCategoryRegistry(repos.CategoryRepo, cfg.CategoryCacheSize,
		WithOpeningBalancePosting(container.Builder, container.Poster))
	if err != nil {
		return nil, fmt.Errorf("failed to create category registry: %w", err)
	}
	container.Categories = categories
	container.Reversal = NewReversalService(repos.JournalRepo, container.Poster)
	container.Postings = NewPostingService(container.Categories, container.Builder, container.Poster)
	container.Ledger = NewLedgerQueryService(container.Categories, repos.CategoryRepo, repos.JournalRepo)

	return container, nil
}
