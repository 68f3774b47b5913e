package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCategory is a row of transaction_category.
// OwnerKind/OwnerID are set only for sub-ledger categories.
type TransactionCategory struct {
	TransactionCategoryID       int64   `db:"transaction_category_id"`
	TransactionCategoryCode     string  `db:"transaction_category_code"`
	TransactionCategoryName     string  `db:"transaction_category_name"`
	ChartOfAccountCode          string  `db:"chart_of_account_code"`
	ParentTransactionCategoryID *int64  `db:"parent_transaction_category_id"`
	EditableFlag                bool    `db:"editable_flag"`
	SelectableFlag              bool    `db:"selectable_flag"`
	OwnerKind                   *string `db:"owner_kind"`
	OwnerID                     *int64  `db:"owner_id"`
	AuditFields
}

// TransactionCategoryBalance is a row of transaction_category_balance.
type TransactionCategoryBalance struct {
	TransactionCategoryBalanceID int64           `db:"transaction_category_balance_id"`
	TransactionCategoryID        int64           `db:"transaction_category_id"`
	OpeningBalance               decimal.Decimal `db:"opening_balance"`
	RunningBalance               decimal.Decimal `db:"running_balance"`
	EffectiveDate                time.Time       `db:"effective_date"`
	AuditFields
}
