/*
errors.go - error taxonomy for order placement and the back-office

Sentinels are matched with errors.Is. Structured errors carry the offending
values so the caller can correct a request without a second round trip, and
unwrap to their sentinel.

	if errors.Is(err, domain.ErrExceedsMonthlyAllowance) {
	    var ae *domain.AllowanceError
	    errors.As(err, &ae) // ae.Remaining
	}
*/
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrExceedsOrderCeiling     = errors.New("exceeds order ceiling")
	ErrExceedsMonthlyAllowance = errors.New("exceeds monthly allowance")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInsufficientAllowance   = errors.New("insufficient allowance")
	ErrMemberNotFound          = errors.New("member not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrMessageNotFound         = errors.New("message not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrTransactionFailed       = errors.New("transaction failed")
	ErrInvalidInput            = errors.New("invalid input")
	ErrConflict                = errors.New("conflict")
)

// QuantityError is returned for a non-positive requested quantity or one
// finer than GramsScale decimal places.
type QuantityError struct {
	Requested decimal.Decimal
}

func (e *QuantityError) Error() string {
	if e.Requested.IsPositive() {
		return fmt.Sprintf("quantity cannot have more than %d decimal places", GramsScale)
	}
	return "quantity must be a positive number"
}

func (e *QuantityError) Unwrap() error { return ErrInvalidQuantity }

type CeilingError struct {
	Requested decimal.Decimal
	Ceiling   decimal.Decimal
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("quantity cannot exceed %s per order", FormatGrams(e.Ceiling))
}

func (e *CeilingError) Unwrap() error { return ErrExceedsOrderCeiling }

type AllowanceError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *AllowanceError) Error() string {
	return fmt.Sprintf("quantity exceeds your remaining monthly allowance of %s", FormatGrams(e.Remaining))
}

func (e *AllowanceError) Unwrap() error { return ErrExceedsMonthlyAllowance }

// StockError reports the stock actually available for a product.
type StockError struct {
	ProductID string
	Name      string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("only %s of %s available in stock", FormatGrams(e.Available), name)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientAllowanceError is raised by the allowance ledger itself when a
// decrement would take the counter below zero.
type InsufficientAllowanceError struct {
	MemberID  string
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance for member %s: remaining %s, requested %s",
		e.MemberID, FormatGrams(e.Remaining), FormatGrams(e.Requested))
}

func (e *InsufficientAllowanceError) Unwrap() error { return ErrInsufficientAllowance }

type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }

type UnauthorizedError struct {
	Role     Role
	Required []Role
}

func (e *UnauthorizedError) Error() string {
	if len(e.Required) == 0 {
		return "unauthorized access"
	}
	req := make([]string, len(e.Required))
	for i, r := range e.Required {
		req[i] = string(r)
	}
	return fmt.Sprintf("unauthorized access: role %q, requires one of %s", e.Role, strings.Join(req, ", "))
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// TransactionError wraps a backing-store failure. It matches both
// ErrTransactionFailed and the underlying cause.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() []error { return []error{ErrTransactionFailed, e.Err} }

// TxFailed wraps err as a TransactionError unless it already carries a
// taxonomy error, which is passed through untouched.
func TxFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	if Code(err) != "" {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

// Invalid builds an ErrInvalidInput with a message for the caller.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Conflict builds an ErrConflict with a message for the caller.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidQuantity, "invalid_quantity"},
	{ErrExceedsOrderCeiling, "exceeds_order_ceiling"},
	{ErrExceedsMonthlyAllowance, "exceeds_monthly_allowance"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrInsufficientAllowance, "insufficient_allowance"},
	{ErrMemberNotFound, "member_not_found"},
	{ErrProductNotFound, "product_not_found"},
	{ErrOrderNotFound, "order_not_found"},
	{ErrMessageNotFound, "message_not_found"},
	{ErrInvalidStatusTransition, "invalid_status_transition"},
	{ErrUnauthorized, "unauthorized"},
	{ErrTransactionFailed, "transaction_failed"},
	{ErrInvalidInput, "invalid_input"},
	{ErrConflict, "conflict"},
}

// Code returns the taxonomy code of err, or "" for errors outside it.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// IsRuleViolation reports errors the caller can fix by changing the request.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrExceedsOrderCeiling) ||
		errors.Is(err, ErrExceedsMonthlyAllowance) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientAllowance) ||
		errors.Is(err, ErrInvalidInput)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrMessageNotFound)
}

// IsRetryable is true only for infrastructure failures; rule violations never
// succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
