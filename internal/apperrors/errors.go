package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the operation conflicts with the current state of a resource.
var ErrConflict = errors.New("conflict")

// ErrInternal indicates an unexpected failure in a lower layer.
var ErrInternal = errors.New("internal error")

// Ledger error classes. Each typed error below unwraps to one of these so callers can
// branch with errors.Is without caring about the detail payload.
var (
	ErrUnbalancedJournal         = errors.New("journal debits and credits do not balance")
	ErrUnknownCategory           = errors.New("unknown transaction category")
	ErrNoRateAvailable           = errors.New("no exchange rate available")
	ErrConcurrentBalanceConflict = errors.New("concurrent update on transaction category balance")
	ErrAlreadyReversed           = errors.New("journal already reversed")
)

// AppError carries a status-like code and a message alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError wraps err with a code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError returns an AppError that matches ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}

// NewValidationError returns an AppError that matches ErrValidation.
func NewValidationError(message string) *AppError {
	return &AppError{Code: 400, Message: message, Err: ErrValidation}
}

// UnbalancedJournalError is raised when the debit and credit sides of a journal differ.
type UnbalancedJournalError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("%s: debits %s, credits %s", ErrUnbalancedJournal, e.DebitTotal.StringFixed(2), e.CreditTotal.StringFixed(2))
}

func (e *UnbalancedJournalError) Unwrap() error { return ErrUnbalancedJournal }

// UnknownCategoryError is raised when a category code has no backing row.
type UnknownCategoryError struct {
	Code string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: code %q", ErrUnknownCategory, e.Code)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// NoRateAvailableError is raised when no conversion exists for a currency pair and date.
type NoRateAvailableError struct {
	From string
	To   string
	AsOf time.Time
}

func (e *NoRateAvailableError) Error() string {
	return fmt.Sprintf("%s: %s to %s as of %s", ErrNoRateAvailable, e.From, e.To, e.AsOf.Format("2006-01-02"))
}

func (e *NoRateAvailableError) Unwrap() error { return ErrNoRateAvailable }

// ConcurrentBalanceConflictError is raised when a balance row changed between read and write.
type ConcurrentBalanceConflictError struct {
	TransactionCategoryID int64
	ExpectedVersion       int64
}

func (e *ConcurrentBalanceConflictError) Error() string {
	return fmt.Sprintf("%s: category %d, expected version %d", ErrConcurrentBalanceConflict, e.TransactionCategoryID, e.ExpectedVersion)
}

func (e *ConcurrentBalanceConflictError) Unwrap() error { return ErrConcurrentBalanceConflict }

// AlreadyReversedError guards against reversing the same journal twice.
type AlreadyReversedError struct {
	JournalID         int64
	ReversalJournalID int64 // zero when the reversal is known only by reference
}

func (e *AlreadyReversedError) Error() string {
	if e.ReversalJournalID != 0 {
		return fmt.Sprintf("%s: journal %d reversed by journal %d", ErrAlreadyReversed, e.JournalID, e.ReversalJournalID)
	}
	return fmt.Sprintf("%s: journal %d", ErrAlreadyReversed, e.JournalID)
}

func (e *AlreadyReversedError) Unwrap() error { return ErrAlreadyReversed }
