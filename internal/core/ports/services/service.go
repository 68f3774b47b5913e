package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used by the command line front end.
type ServiceContainer struct {
	Categories   CategoryRegistrySvcFacade
	ExchangeRate ExchangeRateSvcFacade
	Builder      JournalBuilderSvc
	Poster       LedgerPosterSvc
	Reversal     ReversalSvc
	Postings     PostingSvc
	Ledger       LedgerQuerySvc
}
