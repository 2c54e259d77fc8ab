package domain

import "errors"

// Planning failures. Call sites wrap these with context; test with errors.Is.
var (
	// ErrConfiguration means required reference data is missing, such as the
	// intermediate currency or a staking handler for a symbol that needs one.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvariantViolation means the inputs or the simulated plan are internally inconsistent.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrDegenerateInput means the portfolio cannot be expressed as percentages.
	ErrDegenerateInput = errors.New("degenerate input")
)

// IsPlanningError reports whether err is one of the planning failures above.
func IsPlanningError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrDegenerateInput)
}
