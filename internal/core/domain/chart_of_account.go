package domain

import "sort"

// AccountClass is the top level of the chart of accounts.
type AccountClass string

const (
	Asset     AccountClass = "ASSET"
	Liability AccountClass = "LIABILITY"
	Equity    AccountClass = "EQUITY"
	Income    AccountClass = "INCOME"
	Expense   AccountClass = "EXPENSE"
)

// NormalSide is the side on which a category's balance increases.
type NormalSide string

const (
	DebitNormal  NormalSide = "DEBIT"
	CreditNormal NormalSide = "CREDIT"
)

// ChartOfAccountCode identifies a node of the chart-of-accounts tree.
type ChartOfAccountCode string

// Class roots.
const (
	ChartAssets      ChartOfAccountCode = "01"
	ChartLiabilities ChartOfAccountCode = "02"
	ChartEquity      ChartOfAccountCode = "03"
	ChartIncome      ChartOfAccountCode = "04"
	ChartExpenses    ChartOfAccountCode = "05"
)

// Leaf categories under the class roots.
const (
	ChartCash                    ChartOfAccountCode = "01-01"
	ChartBank                    ChartOfAccountCode = "01-02"
	ChartAccountsReceivable      ChartOfAccountCode = "01-03"
	ChartOtherCurrentAsset       ChartOfAccountCode = "01-04"
	ChartFixedAsset              ChartOfAccountCode = "01-05"
	ChartStock                   ChartOfAccountCode = "01-06"
	ChartAccountsPayable         ChartOfAccountCode = "02-01"
	ChartOtherCurrentLiabilities ChartOfAccountCode = "02-02"
	ChartOtherLiability          ChartOfAccountCode = "02-03"
	ChartOwnersEquity            ChartOfAccountCode = "03-01"
	ChartOperatingIncome         ChartOfAccountCode = "04-01"
	ChartOtherIncome             ChartOfAccountCode = "04-02"
	ChartCostOfGoodsSold         ChartOfAccountCode = "05-01"
	ChartAdminExpense            ChartOfAccountCode = "05-02"
	ChartOtherExpense            ChartOfAccountCode = "05-03"
)

// ChartOfAccountCategory is a node of the static chart-of-accounts tree.
type ChartOfAccountCategory struct {
	Code       ChartOfAccountCode `json:"code"`
	Name       string             `json:"name"`
	Class      AccountClass       `json:"class"`
	ParentCode ChartOfAccountCode `json:"parentCode,omitempty"` // empty for class roots
}

// NormalSide returns the side on which the category's balance increases.
// Assets and expenses are debit-normal; liabilities, equity and income are credit-normal.
func (c ChartOfAccountCategory) NormalSide() NormalSide {
	switch c.Class {
	case Liability, Equity, Income:
		return CreditNormal
	default:
		return DebitNormal
	}
}

// IsRoot reports whether the node is a class root.
func (c ChartOfAccountCategory) IsRoot() bool {
	return c.ParentCode == ""
}

var chartOfAccounts = map[ChartOfAccountCode]ChartOfAccountCategory{
	ChartAssets:      {Code: ChartAssets, Name: "Assets", Class: Asset},
	ChartLiabilities: {Code: ChartLiabilities, Name: "Liabilities", Class: Liability},
	ChartEquity:      {Code: ChartEquity, Name: "Equity", Class: Equity},
	ChartIncome:      {Code: ChartIncome, Name: "Income", Class: Income},
	ChartExpenses:    {Code: ChartExpenses, Name: "Expenses", Class: Expense},

	ChartCash:               {Code: ChartCash, Name: "Cash", Class: Asset, ParentCode: ChartAssets},
	ChartBank:               {Code: ChartBank, Name: "Bank", Class: Asset, ParentCode: ChartAssets},
	ChartAccountsReceivable: {Code: ChartAccountsReceivable, Name: "Accounts Receivable", Class: Asset, ParentCode: ChartAssets},
	ChartOtherCurrentAsset:  {Code: ChartOtherCurrentAsset, Name: "Other Current Asset", Class: Asset, ParentCode: ChartAssets},
	ChartFixedAsset:         {Code: ChartFixedAsset, Name: "Fixed Asset", Class: Asset, ParentCode: ChartAssets},
	ChartStock:              {Code: ChartStock, Name: "Stock", Class: Asset, ParentCode: ChartAssets},

	ChartAccountsPayable:         {Code: ChartAccountsPayable, Name: "Accounts Payable", Class: Liability, ParentCode: ChartLiabilities},
	ChartOtherCurrentLiabilities: {Code: ChartOtherCurrentLiabilities, Name: "Other Current Liabilities", Class: Liability, ParentCode: ChartLiabilities},
	ChartOtherLiability:          {Code: ChartOtherLiability, Name: "Other Liability", Class: Liability, ParentCode: ChartLiabilities},

	ChartOwnersEquity: {Code: ChartOwnersEquity, Name: "Equity", Class: Equity, ParentCode: ChartEquity},

	ChartOperatingIncome: {Code: ChartOperatingIncome, Name: "Income", Class: Income, ParentCode: ChartIncome},
	ChartOtherIncome:     {Code: ChartOtherIncome, Name: "Other Income", Class: Income, ParentCode: ChartIncome},

	ChartCostOfGoodsSold: {Code: ChartCostOfGoodsSold, Name: "Cost of Goods Sold", Class: Expense, ParentCode: ChartExpenses},
	ChartAdminExpense:    {Code: ChartAdminExpense, Name: "Admin Expense", Class: Expense, ParentCode: ChartExpenses},
	ChartOtherExpense:    {Code: ChartOtherExpense, Name: "Other Expense", Class: Expense, ParentCode: ChartExpenses},
}

// LookupChartOfAccount returns the chart node for code.
func LookupChartOfAccount(code ChartOfAccountCode) (ChartOfAccountCategory, bool) {
	c, ok := chartOfAccounts[code]
	return c, ok
}

// ChartOfAccountChildren lists the direct children of code, ordered by code.
func ChartOfAccountChildren(code ChartOfAccountCode) []ChartOfAccountCategory {
	var children []ChartOfAccountCategory
	for _, c := range chartOfAccounts {
		if c.ParentCode == code {
			children = append(children, c)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Code < children[j].Code })
	return children
}

// ChartOfAccountPath returns the chain from the class root down to code.
func ChartOfAccountPath(code ChartOfAccountCode) []ChartOfAccountCategory {
	var path []ChartOfAccountCategory
	for cur, ok := chartOfAccounts[code]; ok; cur, ok = chartOfAccounts[cur.ParentCode] {
		path = append([]ChartOfAccountCategory{cur}, path...)
		if cur.IsRoot() {
			break
		}
	}
	return path
}
