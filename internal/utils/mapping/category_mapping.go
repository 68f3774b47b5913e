package mapping

import (
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/models"
)

// ToModelTransactionCategory converts a domain TransactionCategory to a model TransactionCategory
func ToModelTransactionCategory(d domain.TransactionCategory) models.TransactionCategory {
	var ownerKind *string
	if d.OwnerKind != nil {
		k := string(*d.OwnerKind)
		ownerKind = &k
	}
	return models.TransactionCategory{
		TransactionCategoryID:       d.TransactionCategoryID,
		TransactionCategoryCode:     string(d.Code),
		TransactionCategoryName:     d.Name,
		ChartOfAccountCode:          string(d.ChartOfAccountCode),
		ParentTransactionCategoryID: d.ParentTransactionCategoryID,
		EditableFlag:                d.Editable,
		SelectableFlag:              d.Selectable,
		OwnerKind:                   ownerKind,
		OwnerID:                     d.OwnerID,
		AuditFields:                 ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransactionCategory converts a model TransactionCategory to a domain TransactionCategory
func ToDomainTransactionCategory(m models.TransactionCategory) domain.TransactionCategory {
	var ownerKind *domain.OwnerKind
	if m.OwnerKind != nil {
		k := domain.OwnerKind(*m.OwnerKind)
		ownerKind = &k
	}
	return domain.TransactionCategory{
		TransactionCategoryID:       m.TransactionCategoryID,
		Code:                        domain.CategoryCode(m.TransactionCategoryCode),
		Name:                        m.TransactionCategoryName,
		ChartOfAccountCode:          domain.ChartOfAccountCode(m.ChartOfAccountCode),
		ParentTransactionCategoryID: m.ParentTransactionCategoryID,
		Editable:                    m.EditableFlag,
		Selectable:                  m.SelectableFlag,
		OwnerKind:                   ownerKind,
		OwnerID:                     m.OwnerID,
		AuditFields:                 ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTransactionCategoryBalance converts a model balance row to a domain balance
func ToDomainTransactionCategoryBalance(m models.TransactionCategoryBalance) domain.TransactionCategoryBalance {
	return domain.TransactionCategoryBalance{
		TransactionCategoryBalanceID: m.TransactionCategoryBalanceID,
		TransactionCategoryID:        m.TransactionCategoryID,
		OpeningBalance:               m.OpeningBalance,
		RunningBalance:               m.RunningBalance,
		EffectiveDate:                m.EffectiveDate,
		AuditFields:                  ToDomainAuditFields(m.AuditFields),
	}
}
