package query

import "errors"

var (
	// ErrUnsupportedCondition is returned when a placeholder sits in a clause
	// the scanner cannot bound, or a null-bearing list is used outside "col in (...)".
	ErrUnsupportedCondition = errors.New("unsupported sql condition")

	// ErrNotSelect is returned when a count query cannot be derived.
	ErrNotSelect = errors.New("template is not a select statement")

	// ErrForbiddenStatement is returned by Validate.
	ErrForbiddenStatement = errors.New("forbidden operation")

	// ErrConnectionLost classifies driver failures after which the connection
	// must be re-established.
	ErrConnectionLost = errors.New("database connection lost")
)

// LostConnectionError wraps a driver error that was classified as a lost
// connection. errors.Is(err, ErrConnectionLost) holds for it.
type LostConnectionError struct {
	Err error
}

func (e *LostConnectionError) Error() string {
	return ErrConnectionLost.Error() + ": " + e.Err.Error()
}

func (e *LostConnectionError) Unwrap() error { return e.Err }

func (e *LostConnectionError) Is(target error) bool { return target == ErrConnectionLost }
