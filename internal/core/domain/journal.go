package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingReferenceType identifies the kind of source document behind a journal or line.
type PostingReferenceType string

const (
	PostingInvoice             PostingReferenceType = "INVOICE"
	PostingExpense             PostingReferenceType = "EXPENSE"
	PostingPettyCash           PostingReferenceType = "PETTY_CASH"
	PostingPayroll             PostingReferenceType = "PAYROLL"
	PostingBalanceAdjustment   PostingReferenceType = "BALANCE_ADJUSTMENT"
	PostingCreditNote          PostingReferenceType = "CREDIT_NOTE"
	PostingDebitNote           PostingReferenceType = "DEBIT_NOTE"
	PostingReceipt             PostingReferenceType = "RECEIPT"
	PostingPayment             PostingReferenceType = "PAYMENT"
	PostingOpeningBalance      PostingReferenceType = "OPENING_BALANCE"
	PostingCurrencyRevaluation PostingReferenceType = "CURRENCY_REVALUATION"
	PostingManual              PostingReferenceType = "MANUAL"

	PostingReverseInvoice             PostingReferenceType = "REVERSE_INVOICE"
	PostingReverseExpense             PostingReferenceType = "REVERSE_EXPENSE"
	PostingReversePettyCash           PostingReferenceType = "REVERSE_PETTY_CASH"
	PostingReversePayroll             PostingReferenceType = "REVERSE_PAYROLL"
	PostingReverseBalanceAdjustment   PostingReferenceType = "REVERSE_BALANCE_ADJUSTMENT"
	PostingReverseCreditNote          PostingReferenceType = "REVERSE_CREDIT_NOTE"
	PostingReverseDebitNote           PostingReferenceType = "REVERSE_DEBIT_NOTE"
	PostingReverseReceipt             PostingReferenceType = "REVERSE_RECEIPT"
	PostingReversePayment             PostingReferenceType = "REVERSE_PAYMENT"
	PostingReverseOpeningBalance      PostingReferenceType = "REVERSE_OPENING_BALANCE"
	PostingReverseCurrencyRevaluation PostingReferenceType = "REVERSE_CURRENCY_REVALUATION"
	PostingReverseManual              PostingReferenceType = "REVERSE_MANUAL"
)

// Reverse returns the REVERSE_* counterpart of a forward posting type.
func (t PostingReferenceType) Reverse() (PostingReferenceType, bool) {
	switch t {
	case PostingInvoice:
		return PostingReverseInvoice, true
	case PostingExpense:
		return PostingReverseExpense, true
	case PostingPettyCash:
		return PostingReversePettyCash, true
	case PostingPayroll:
		return PostingReversePayroll, true
	case PostingBalanceAdjustment:
		return PostingReverseBalanceAdjustment, true
	case PostingCreditNote:
		return PostingReverseCreditNote, true
	case PostingDebitNote:
		return PostingReverseDebitNote, true
	case PostingReceipt:
		return PostingReverseReceipt, true
	case PostingPayment:
		return PostingReversePayment, true
	case PostingOpeningBalance:
		return PostingReverseOpeningBalance, true
	case PostingCurrencyRevaluation:
		return PostingReverseCurrencyRevaluation, true
	case PostingManual:
		return PostingReverseManual, true
	}
	return "", false
}

// IsReversal reports whether t is one of the REVERSE_* types.
func (t PostingReferenceType) IsReversal() bool {
	switch t {
	case PostingReverseInvoice, PostingReverseExpense, PostingReversePettyCash, PostingReversePayroll,
		PostingReverseBalanceAdjustment, PostingReverseCreditNote, PostingReverseDebitNote,
		PostingReverseReceipt, PostingReversePayment, PostingReverseOpeningBalance,
		PostingReverseCurrencyRevaluation, PostingReverseManual:
		return true
	}
	return false
}

// Valid reports whether t belongs to the closed set of posting types.
func (t PostingReferenceType) Valid() bool {
	_, forward := t.Reverse()
	return forward || t.IsReversal()
}

// Journal is one balanced accounting event.
type Journal struct {
	JournalID            int64                `json:"journalID"`
	JournalDate          time.Time            `json:"journalDate"`
	TransactionDate      time.Time            `json:"transactionDate"`
	Description          string               `json:"description"`
	ReferenceNumber      string               `json:"referenceNumber"`
	CurrencyCode         string               `json:"currencyCode"`
	ExchangeRate         *decimal.Decimal     `json:"exchangeRate,omitempty"` // journal currency -> base currency
	SubTotalDebitAmount  decimal.Decimal      `json:"subTotalDebitAmount"`    // journal currency
	SubTotalCreditAmount decimal.Decimal      `json:"subTotalCreditAmount"`   // journal currency
	TotalDebitAmount     decimal.Decimal      `json:"totalDebitAmount"`       // base currency
	TotalCreditAmount    decimal.Decimal      `json:"totalCreditAmount"`      // base currency
	PostingReferenceType PostingReferenceType `json:"postingReferenceType"`
	ReferenceID          int64                `json:"referenceID"`
	ReversalFlag         bool                 `json:"reversalFlag"`
	ReversedJournalID    *int64               `json:"reversedJournalID,omitempty"`
	AuditFields
	LineItems []JournalLineItem `json:"lineItems,omitempty"`
}

// JournalLineItem is one leg of a journal.
// DebitAmount/CreditAmount are in base currency once posted; the Original* amounts keep
// the figures in the line's own currency. A positive ExchangeRate on an incoming line is
// used instead of a stored rate; base amounts are always recomputed from the originals
// except on reversal journals.
type JournalLineItem struct {
	JournalLineItemID     int64                `json:"journalLineItemID"`
	JournalID             int64                `json:"journalID"`
	LineNumber            int                  `json:"lineNumber"`
	TransactionCategoryID int64                `json:"transactionCategoryID"`
	DebitAmount           decimal.Decimal      `json:"debitAmount"`
	CreditAmount          decimal.Decimal      `json:"creditAmount"`
	OriginalDebitAmount   decimal.Decimal      `json:"originalDebitAmount"`
	OriginalCreditAmount  decimal.Decimal      `json:"originalCreditAmount"`
	CurrencyCode          string               `json:"currencyCode"`
	ExchangeRate          decimal.Decimal      `json:"exchangeRate"`
	ReferenceID           int64                `json:"referenceID"`
	ReferenceType         PostingReferenceType `json:"referenceType"`
	CurrentBalance        decimal.Decimal      `json:"currentBalance"`
	ReversalFlag          bool                 `json:"reversalFlag"`
	AuditFields

	// Read-side only: populated by ledger statement queries.
	TransactionDate time.Time `json:"transactionDate,omitempty"`
}

// IsDebit reports whether the line posts on the debit side.
func (l JournalLineItem) IsDebit() bool {
	return l.DebitAmount.IsPositive()
}

// PostedJournal is a journal persisted together with the category balances it produced.
type PostedJournal struct {
	Journal  Journal                              `json:"journal"`
	Balances map[int64]TransactionCategoryBalance `json:"balances"` // keyed by transaction category ID
}
