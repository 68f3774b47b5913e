package domain

import (
	"github.com/shopspring/decimal"
)

// TrialBalanceRow represents a single row in a trial balance report.
type TrialBalanceRow struct {
	TransactionCategoryID int64              `json:"transactionCategoryID"`
	Code                  CategoryCode       `json:"code"`
	Name                  string             `json:"name"`
	ChartOfAccountCode    ChartOfAccountCode `json:"chartOfAccountCode"`
	Debit                 decimal.Decimal    `json:"debit"`
	Credit                decimal.Decimal    `json:"credit"`
}

// TrialBalance is the full report with its column totals.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
}

// Balanced reports whether the debit and credit columns agree.
func (t TrialBalance) Balanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit)
}

// BalanceVerification compares a stored running balance with one recomputed from line items.
type BalanceVerification struct {
	TransactionCategoryID int64           `json:"transactionCategoryID"`
	Code                  CategoryCode    `json:"code"`
	OpeningBalance        decimal.Decimal `json:"openingBalance"`
	LineTotal             decimal.Decimal `json:"lineTotal"`
	ExpectedBalance       decimal.Decimal `json:"expectedBalance"`
	RunningBalance        decimal.Decimal `json:"runningBalance"`
	LineCount             int             `json:"lineCount"`
}

// Consistent reports whether the stored balance matches the recomputed one.
func (v BalanceVerification) Consistent() bool {
	return v.ExpectedBalance.Equal(v.RunningBalance)
}
