package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryCode is the stable account code of a transaction category ("01-01-001").
type CategoryCode string

// Well-known system categories. Callers resolve these through the registry instead of
// embedding account codes.
const (
	CategoryPettyCash                       CategoryCode = "01-01-001"
	CategoryAccountReceivable               CategoryCode = "01-03-001"
	CategoryInputVAT                        CategoryCode = "01-04-001"
	CategoryAccountPayable                  CategoryCode = "02-01-001"
	CategoryOutputVAT                       CategoryCode = "02-02-001"
	CategoryPayrollLiability                CategoryCode = "02-02-002"
	CategoryEmployeeReimbursements          CategoryCode = "02-02-003"
	CategoryOpeningBalanceOffsetAssets      CategoryCode = "03-01-001"
	CategoryOpeningBalanceOffsetLiabilities CategoryCode = "03-01-002"
	CategoryRetainedEarnings                CategoryCode = "03-01-003"
	CategorySales                           CategoryCode = "04-01-001"
	CategoryExchangeGainLoss                CategoryCode = "04-02-001"
	CategoryCostOfGoodsSold                 CategoryCode = "05-01-001"
	CategorySalariesAndWages                CategoryCode = "05-02-001"
)

// CategoryCodeAt formats the n-th category code under a chart node ("01-03" -> "01-03-002").
func CategoryCodeAt(chart ChartOfAccountCode, n int64) CategoryCode {
	return CategoryCode(fmt.Sprintf("%s-%03d", chart, n))
}

// Sequence returns the numeric suffix of a code that sits under chart.
func (c CategoryCode) Sequence(chart ChartOfAccountCode) (int64, bool) {
	suffix, ok := strings.CutPrefix(string(c), string(chart)+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SystemCategory describes a category created when a company registers.
// A control category is the default parent of owner sub-ledgers opened under its chart node.
type SystemCategory struct {
	Code       CategoryCode
	Name       string
	ChartCode  ChartOfAccountCode
	Selectable bool
	Control    bool
}

// SystemCategories is the default set seeded for every company.
var SystemCategories = []SystemCategory{
	{Code: CategoryPettyCash, Name: "Petty Cash", ChartCode: ChartCash, Selectable: true},
	{Code: CategoryAccountReceivable, Name: "Accounts Receivable", ChartCode: ChartAccountsReceivable, Control: true},
	{Code: CategoryInputVAT, Name: "Input VAT", ChartCode: ChartOtherCurrentAsset},
	{Code: CategoryAccountPayable, Name: "Accounts Payable", ChartCode: ChartAccountsPayable, Control: true},
	{Code: CategoryOutputVAT, Name: "Output VAT", ChartCode: ChartOtherCurrentLiabilities},
	{Code: CategoryPayrollLiability, Name: "Payroll Liability", ChartCode: ChartOtherCurrentLiabilities},
	{Code: CategoryEmployeeReimbursements, Name: "Employee Reimbursements", ChartCode: ChartOtherCurrentLiabilities, Control: true},
	{Code: CategoryOpeningBalanceOffsetAssets, Name: "Opening Balance Offset Assets", ChartCode: ChartOwnersEquity},
	{Code: CategoryOpeningBalanceOffsetLiabilities, Name: "Opening Balance Offset Liabilities", ChartCode: ChartOwnersEquity},
	{Code: CategoryRetainedEarnings, Name: "Retained Earnings", ChartCode: ChartOwnersEquity, Selectable: true},
	{Code: CategorySales, Name: "Sales", ChartCode: ChartOperatingIncome, Selectable: true},
	{Code: CategoryExchangeGainLoss, Name: "Realized Exchange Gain/Loss", ChartCode: ChartOtherIncome},
	{Code: CategoryCostOfGoodsSold, Name: "Cost of Goods Sold", ChartCode: ChartCostOfGoodsSold, Selectable: true},
	{Code: CategorySalariesAndWages, Name: "Salaries and Employee Wages", ChartCode: ChartAdminExpense, Control: true},
}

// ControlCategory returns the control category of a chart node, if it has one.
func ControlCategory(chart ChartOfAccountCode) (CategoryCode, bool) {
	for _, sc := range SystemCategories {
		if sc.Control && sc.ChartCode == chart {
			return sc.Code, true
		}
	}
	return "", false
}

// OwnerKind identifies who a dedicated sub-ledger category belongs to.
type OwnerKind string

const (
	OwnerContact          OwnerKind = "CONTACT"
	OwnerEmployee         OwnerKind = "EMPLOYEE"
	OwnerPayrollComponent OwnerKind = "PAYROLL_COMPONENT"
	OwnerBankAccount      OwnerKind = "BANK_ACCOUNT"
)

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerContact, OwnerEmployee, OwnerPayrollComponent, OwnerBankAccount:
		return true
	}
	return false
}

// Selectable reports whether end users may post directly against a category of this owner kind.
func (k OwnerKind) Selectable() bool {
	return k == OwnerBankAccount
}

// TransactionCategory is a named ledger account.
type TransactionCategory struct {
	TransactionCategoryID       int64              `json:"transactionCategoryID"`
	Code                        CategoryCode       `json:"code"`
	Name                        string             `json:"name"`
	ChartOfAccountCode          ChartOfAccountCode `json:"chartOfAccountCode"`
	ParentTransactionCategoryID *int64             `json:"parentTransactionCategoryID,omitempty"`
	Editable                    bool               `json:"editable"`
	Selectable                  bool               `json:"selectable"`
	OwnerKind                   *OwnerKind         `json:"ownerKind,omitempty"`
	OwnerID                     *int64             `json:"ownerID,omitempty"`
	AuditFields
}

// ChartOfAccount returns the chart node the category belongs to.
func (c TransactionCategory) ChartOfAccount() (ChartOfAccountCategory, error) {
	chart, ok := LookupChartOfAccount(c.ChartOfAccountCode)
	if !ok {
		return ChartOfAccountCategory{}, fmt.Errorf("category %s references unknown chart of account %q", c.Code, c.ChartOfAccountCode)
	}
	return chart, nil
}

// NormalSide returns the side on which the category's balance increases.
func (c TransactionCategory) NormalSide() (NormalSide, error) {
	chart, err := c.ChartOfAccount()
	if err != nil {
		return "", err
	}
	return chart.NormalSide(), nil
}

// TransactionCategoryBalance is the authoritative running balance of one category.
// Balances are kept in the category's own sign convention.
type TransactionCategoryBalance struct {
	TransactionCategoryBalanceID int64           `json:"transactionCategoryBalanceID"`
	TransactionCategoryID        int64           `json:"transactionCategoryID"`
	OpeningBalance               decimal.Decimal `json:"openingBalance"`
	RunningBalance               decimal.Decimal `json:"runningBalance"`
	EffectiveDate                time.Time       `json:"effectiveDate"`
	AuditFields
}

// DebitBasisBalance expresses the running balance in debit terms: positive for a net debit
// balance, negative for a net credit balance.
func (b TransactionCategoryBalance) DebitBasisBalance(side NormalSide) decimal.Decimal {
	if side == CreditNormal {
		return b.RunningBalance.Neg()
	}
	return b.RunningBalance
}
