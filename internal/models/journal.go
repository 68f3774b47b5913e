package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal is a row of journal.
type Journal struct {
	JournalID            int64            `db:"journal_id"`
	JournalDate          time.Time        `db:"journal_date"`
	TransactionDate      time.Time        `db:"transaction_date"`
	Description          string           `db:"description"`
	ReferenceNumber      string           `db:"journal_reference_no"`
	CurrencyCode         string           `db:"currency_code"`
	ExchangeRate         *decimal.Decimal `db:"exchange_rate"`
	SubTotalDebitAmount  decimal.Decimal  `db:"sub_total_debit_amount"`
	SubTotalCreditAmount decimal.Decimal  `db:"sub_total_credit_amount"`
	TotalDebitAmount     decimal.Decimal  `db:"total_debit_amount"`
	TotalCreditAmount    decimal.Decimal  `db:"total_credit_amount"`
	PostingReferenceType string           `db:"posting_reference_type"`
	ReferenceID          int64            `db:"reference_id"`
	ReversalFlag         bool             `db:"reversal_flag"`
	ReversedJournalID    *int64           `db:"reversed_journal_id"`
	AuditFields
}

// JournalLineItem is a row of journal_line_item. TransactionDate copies the parent
// journal's so statements page on the line table alone.
type JournalLineItem struct {
	JournalLineItemID     int64           `db:"journal_line_item_id"`
	JournalID             int64           `db:"journal_id"`
	LineNumber            int             `db:"line_number"`
	TransactionCategoryID int64           `db:"transaction_category_id"`
	DebitAmount           decimal.Decimal `db:"debit_amount"`
	CreditAmount          decimal.Decimal `db:"credit_amount"`
	OriginalDebitAmount   decimal.Decimal `db:"original_debit_amount"`
	OriginalCreditAmount  decimal.Decimal `db:"original_credit_amount"`
	CurrencyCode          string          `db:"currency_code"`
	ExchangeRate          decimal.Decimal `db:"exchange_rate"`
	ReferenceID           int64           `db:"reference_id"`
	ReferenceType         string          `db:"reference_type"`
	CurrentBalance        decimal.Decimal `db:"current_balance"`
	ReversalFlag          bool            `db:"reversal_flag"`
	AuditFields
	TransactionDate time.Time `db:"transaction_date"`
}
