package shared

import "errors"

// Error kinds shared by the domain packages. Domain errors wrap one of these
// so transport layers can map them without importing every package.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an operation not allowed in the current lifecycle state.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrRuleViolation indicates well-formed input that breaks a bookkeeping rule.
	ErrRuleViolation = errors.New("rule violation")
	// ErrConcurrentModification indicates a transaction conflict. Callers may retry.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// IsRetryable reports whether err is worth retrying unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
