package vouchers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/shared"
)

var (
	// ErrVoucherNotFound indicates an unknown voucher id.
	ErrVoucherNotFound = fmt.Errorf("vouchers: voucher %w", shared.ErrNotFound)
	// ErrInvalidStatus is the parent of every lifecycle violation.
	ErrInvalidStatus = fmt.Errorf("vouchers: %w", shared.ErrInvalidState)
	// ErrNotDraft is returned when editing, deleting or posting a non-draft voucher.
	ErrNotDraft = fmt.Errorf("%w: voucher is not a draft", ErrInvalidStatus)
	// ErrNotPosted is returned when cancelling a draft.
	ErrNotPosted = fmt.Errorf("%w: voucher is not posted", ErrInvalidStatus)
	// ErrAlreadyCancelled is returned when cancelling twice.
	ErrAlreadyCancelled = fmt.Errorf("%w: voucher already cancelled", ErrInvalidStatus)
	// ErrImbalanced marks ImbalancedError.
	ErrImbalanced = fmt.Errorf("vouchers: debit and credit totals differ: %w", shared.ErrRuleViolation)
)

// FieldError describes one problem in a draft.
type FieldError struct {
	// Line is the 1-based entry or item line, zero for header fields.
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every problem found in a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "vouchers: invalid voucher: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// ProblemFields exposes the field list to HTTP problem responses.
func (e *ValidationError) ProblemFields() map[string]any {
	return map[string]any{"errors": e.Fields}
}

func (e *ValidationError) add(line int, field, msg string) {
	e.Fields = append(e.Fields, FieldError{Line: line, Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ImbalancedError reports a voucher whose debits and credits differ.
type ImbalancedError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

// Delta is debit total minus credit total.
func (e *ImbalancedError) Delta() decimal.Decimal {
	return e.DebitTotal.Sub(e.CreditTotal)
}

func (e *ImbalancedError) Error() string {
	return fmt.Sprintf("vouchers: imbalanced voucher: debit %s, credit %s, delta %s",
		money.String(e.DebitTotal), money.String(e.CreditTotal), money.String(e.Delta()))
}

func (e *ImbalancedError) Unwrap() error { return ErrImbalanced }

// ProblemFields exposes the totals to HTTP problem responses.
func (e *ImbalancedError) ProblemFields() map[string]any {
	return map[string]any{
		"debit_total":  money.String(e.DebitTotal),
		"credit_total": money.String(e.CreditTotal),
		"delta":        money.String(e.Delta()),
	}
}
