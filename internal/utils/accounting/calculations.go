package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/apperrors"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
)

// Precision is the minor-unit precision of every currency the ledger handles.
const Precision int32 = 2

// MinorUnit is the smallest representable amount (0.01).
var MinorUnit = decimal.New(1, -Precision)

// Round rounds an amount half away from zero to the ledger precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Precision)
}

// Convert multiplies an amount by a rate and rounds the result.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// SplitSignedAmount turns an increase (+) or decrease (-) of a category balance into
// debit and credit amounts, according to the category's normal side.
// DEBIT-normal: + -> debit, - -> credit
// CREDIT-normal: + -> credit, - -> debit
func SplitSignedAmount(amount decimal.Decimal, side domain.NormalSide) (debit, credit decimal.Decimal, err error) {
	increase := amount.IsPositive()
	magnitude := amount.Abs()

	switch side {
	case domain.DebitNormal:
		if increase {
			return magnitude, decimal.Zero, nil
		}
		return decimal.Zero, magnitude, nil
	case domain.CreditNormal:
		if increase {
			return decimal.Zero, magnitude, nil
		}
		return magnitude, decimal.Zero, nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("unknown normal side %q", side)
	}
}

// CalculateSignedAmount returns the change a line makes to its category's balance,
// expressed in the category's own sign convention.
func CalculateSignedAmount(line domain.JournalLineItem, side domain.NormalSide) (decimal.Decimal, error) {
	switch side {
	case domain.DebitNormal:
		return line.DebitAmount.Sub(line.CreditAmount), nil
	case domain.CreditNormal:
		return line.CreditAmount.Sub(line.DebitAmount), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown normal side %q for category %d", side, line.TransactionCategoryID)
	}
}

// SumSides totals the debit and credit columns of the given lines.
func SumSides(lines []domain.JournalLineItem) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
	}
	return debit, credit
}

// ValidateLine checks the per-line amount invariant: both sides non-negative, at most
// one of them non-zero, and neither finer than the ledger precision.
func ValidateLine(line domain.JournalLineItem) error {
	if line.DebitAmount.IsNegative() || line.CreditAmount.IsNegative() {
		return fmt.Errorf("%w: line %d has a negative amount", apperrors.ErrValidation, line.LineNumber)
	}
	if !line.DebitAmount.IsZero() && !line.CreditAmount.IsZero() {
		return fmt.Errorf("%w: line %d has both debit and credit amounts", apperrors.ErrValidation, line.LineNumber)
	}
	if !IsRounded(line.DebitAmount) || !IsRounded(line.CreditAmount) {
		return fmt.Errorf("%w: line %d has an amount below %s", apperrors.ErrValidation, line.LineNumber, MinorUnit.String())
	}
	return nil
}

// IsRounded reports whether amount is already at ledger precision.
func IsRounded(amount decimal.Decimal) bool {
	return amount.Equal(Round(amount))
}

// ValidateJournalBalance checks that a set of lines balances exactly.
func ValidateJournalBalance(lines []domain.JournalLineItem) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: journal must have at least two line items", apperrors.ErrValidation)
	}
	for _, l := range lines {
		if err := ValidateLine(l); err != nil {
			return err
		}
	}

	debit, credit := SumSides(lines)
	if !debit.Equal(credit) {
		return &apperrors.UnbalancedJournalError{DebitTotal: debit, CreditTotal: credit}
	}
	return nil
}

// AllocateRoundingResidue absorbs the difference introduced by converting each line
// separately. The residue goes to the largest line on the short side. A residue larger
// than one minor unit per line is not a rounding artefact and is reported as unbalanced.
func AllocateRoundingResidue(lines []domain.JournalLineItem) error {
	debit, credit := SumSides(lines)
	residue := debit.Sub(credit)
	if residue.IsZero() {
		return nil
	}

	limit := MinorUnit.Mul(decimal.NewFromInt(int64(len(lines))))
	if residue.Abs().GreaterThan(limit) {
		return &apperrors.UnbalancedJournalError{DebitTotal: debit, CreditTotal: credit}
	}

	shortIsCredit := residue.IsPositive()
	target := -1
	for i, l := range lines {
		amount := l.DebitAmount
		if shortIsCredit {
			amount = l.CreditAmount
		}
		if !amount.IsPositive() {
			continue
		}
		if target < 0 || amount.GreaterThan(sideAmount(lines[target], shortIsCredit)) {
			target = i
		}
	}
	if target < 0 {
		return &apperrors.UnbalancedJournalError{DebitTotal: debit, CreditTotal: credit}
	}

	if shortIsCredit {
		lines[target].CreditAmount = lines[target].CreditAmount.Add(residue)
	} else {
		lines[target].DebitAmount = lines[target].DebitAmount.Add(residue.Neg())
	}
	return nil
}

func sideAmount(line domain.JournalLineItem, credit bool) decimal.Decimal {
	if credit {
		return line.CreditAmount
	}
	return line.DebitAmount
}
