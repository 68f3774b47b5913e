package mapping

import (
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/models"
)

// ToModelJournal converts a domain Journal to a model Journal. Line items are mapped
// separately.
func ToModelJournal(d domain.Journal) models.Journal {
	return models.Journal{
		JournalID:            d.JournalID,
		JournalDate:          d.JournalDate,
		TransactionDate:      d.TransactionDate,
		Description:          d.Description,
		ReferenceNumber:      d.ReferenceNumber,
		CurrencyCode:         d.CurrencyCode,
		ExchangeRate:         d.ExchangeRate,
		SubTotalDebitAmount:  d.SubTotalDebitAmount,
		SubTotalCreditAmount: d.SubTotalCreditAmount,
		TotalDebitAmount:     d.TotalDebitAmount,
		TotalCreditAmount:    d.TotalCreditAmount,
		PostingReferenceType: string(d.PostingReferenceType),
		ReferenceID:          d.ReferenceID,
		ReversalFlag:         d.ReversalFlag,
		ReversedJournalID:    d.ReversedJournalID,
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainJournal converts a model Journal and its lines to a domain Journal
func ToDomainJournal(m models.Journal, lines []models.JournalLineItem) domain.Journal {
	return domain.Journal{
		JournalID:            m.JournalID,
		JournalDate:          m.JournalDate,
		TransactionDate:      m.TransactionDate,
		Description:          m.Description,
		ReferenceNumber:      m.ReferenceNumber,
		CurrencyCode:         m.CurrencyCode,
		ExchangeRate:         m.ExchangeRate,
		SubTotalDebitAmount:  m.SubTotalDebitAmount,
		SubTotalCreditAmount: m.SubTotalCreditAmount,
		TotalDebitAmount:     m.TotalDebitAmount,
		TotalCreditAmount:    m.TotalCreditAmount,
		PostingReferenceType: domain.PostingReferenceType(m.PostingReferenceType),
		ReferenceID:          m.ReferenceID,
		ReversalFlag:         m.ReversalFlag,
		ReversedJournalID:    m.ReversedJournalID,
		AuditFields:          ToDomainAuditFields(m.AuditFields),
		LineItems:            ToDomainJournalLineItemSlice(lines),
	}
}

// ToModelJournalLineItem converts a domain JournalLineItem to a model JournalLineItem
func ToModelJournalLineItem(d domain.JournalLineItem) models.JournalLineItem {
	return models.JournalLineItem{
		JournalLineItemID:     d.JournalLineItemID,
		JournalID:             d.JournalID,
		LineNumber:            d.LineNumber,
		TransactionCategoryID: d.TransactionCategoryID,
		DebitAmount:           d.DebitAmount,
		CreditAmount:          d.CreditAmount,
		OriginalDebitAmount:   d.OriginalDebitAmount,
		OriginalCreditAmount:  d.OriginalCreditAmount,
		CurrencyCode:          d.CurrencyCode,
		ExchangeRate:          d.ExchangeRate,
		ReferenceID:           d.ReferenceID,
		ReferenceType:         string(d.ReferenceType),
		CurrentBalance:        d.CurrentBalance,
		ReversalFlag:          d.ReversalFlag,
		AuditFields:           ToModelAuditFields(d.AuditFields),
		TransactionDate:       d.TransactionDate,
	}
}

// ToDomainJournalLineItem converts a model JournalLineItem to a domain JournalLineItem
func ToDomainJournalLineItem(m models.JournalLineItem) domain.JournalLineItem {
	return domain.JournalLineItem{
		JournalLineItemID:     m.JournalLineItemID,
		JournalID:             m.JournalID,
		LineNumber:            m.LineNumber,
		TransactionCategoryID: m.TransactionCategoryID,
		DebitAmount:           m.DebitAmount,
		CreditAmount:          m.CreditAmount,
		OriginalDebitAmount:   m.OriginalDebitAmount,
		OriginalCreditAmount:  m.OriginalCreditAmount,
		CurrencyCode:          m.CurrencyCode,
		ExchangeRate:          m.ExchangeRate,
		ReferenceID:           m.ReferenceID,
		ReferenceType:         domain.PostingReferenceType(m.ReferenceType),
		CurrentBalance:        m.CurrentBalance,
		ReversalFlag:          m.ReversalFlag,
		AuditFields:           ToDomainAuditFields(m.AuditFields),
		TransactionDate:       m.TransactionDate,
	}
}

// ToDomainJournalLineItemSlice converts a slice of model lines to domain lines
func ToDomainJournalLineItemSlice(ms []models.JournalLineItem) []domain.JournalLineItem {
	if len(ms) == 0 {
		return nil
	}
	ds := make([]domain.JournalLineItem, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainJournalLineItem(m)
	}
	return ds
}
