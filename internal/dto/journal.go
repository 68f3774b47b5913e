package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
)

// JournalEvent carries the header of a business event to be turned into a journal.
type JournalEvent struct {
	PostingReferenceType domain.PostingReferenceType `json:"postingReferenceType" validate:"required,posting_type"`
	ReferenceID          int64                       `json:"referenceID" validate:"gte=0"`
	TransactionDate      *time.Time                  `json:"transactionDate,omitempty"`
	JournalDate          *time.Time                  `json:"journalDate,omitempty"`
	Description          string                      `json:"description" validate:"max=255"`
	ReferenceNumber      string                      `json:"referenceNumber" validate:"max=100"`
	CurrencyCode         string                      `json:"currencyCode" validate:"omitempty,iso4217"` // empty means base currency
	ExchangeRate         *decimal.Decimal            `json:"exchangeRate,omitempty"`
	UserID               string                      `json:"userID" validate:"required"`
}

// JournalLine is one caller-supplied leg: a signed change to a category's balance.
// Positive increases the balance in the category's own convention, negative decreases it.
type JournalLine struct {
	Category      domain.TransactionCategory
	Amount        decimal.Decimal
	ReferenceID   int64
	ReferenceType domain.PostingReferenceType // defaults to the event's posting type
}

// OpeningBalanceRequest posts an opening balance against a category, offset by the
// opening balance offset category matching its class.
type OpeningBalanceRequest struct {
	CategoryCode    domain.CategoryCode `json:"categoryCode" validate:"required"`
	Amount          decimal.Decimal     `json:"amount"`
	TransactionDate *time.Time          `json:"transactionDate,omitempty"`
	ReferenceID     int64               `json:"referenceID" validate:"gte=0"`
	UserID          string              `json:"userID" validate:"required"`
}

// JournalLineResponse is the printable form of a posted line.
type JournalLineResponse struct {
	LineNumber            int             `json:"lineNumber"`
	TransactionCategoryID int64           `json:"transactionCategoryID"`
	Debit                 decimal.Decimal `json:"debit"`
	Credit                decimal.Decimal `json:"credit"`
	CurrentBalance        decimal.Decimal `json:"currentBalance"`
	CurrencyCode          string          `json:"currencyCode"`
}

// JournalResponse defines the data returned for a journal.
type JournalResponse struct {
	JournalID            int64                 `json:"journalID"`
	TransactionDate      time.Time             `json:"transactionDate"`
	Description          string                `json:"description"`
	PostingReferenceType string                `json:"postingReferenceType"`
	ReferenceID          int64                 `json:"referenceID"`
	ReversalFlag         bool                  `json:"reversalFlag"`
	ReversedJournalID    *int64                `json:"reversedJournalID,omitempty"`
	TotalDebit           decimal.Decimal       `json:"totalDebit"`
	TotalCredit          decimal.Decimal       `json:"totalCredit"`
	Lines                []JournalLineResponse `json:"lines"`
}

// ToJournalResponse converts a domain.Journal to JournalResponse DTO.
func ToJournalResponse(j *domain.Journal) JournalResponse {
	lines := make([]JournalLineResponse, len(j.LineItems))
	for i, l := range j.LineItems {
		lines[i] = JournalLineResponse{
			LineNumber:            l.LineNumber,
			TransactionCategoryID: l.TransactionCategoryID,
			Debit:                 l.DebitAmount,
			Credit:                l.CreditAmount,
			CurrentBalance:        l.CurrentBalance,
			CurrencyCode:          l.CurrencyCode,
		}
	}
	return JournalResponse{
		JournalID:            j.JournalID,
		TransactionDate:      j.TransactionDate,
		Description:          j.Description,
		PostingReferenceType: string(j.PostingReferenceType),
		ReferenceID:          j.ReferenceID,
		ReversalFlag:         j.ReversalFlag,
		ReversedJournalID:    j.ReversedJournalID,
		TotalDebit:           j.TotalDebitAmount,
		TotalCredit:          j.TotalCreditAmount,
		Lines:                lines,
	}
}
