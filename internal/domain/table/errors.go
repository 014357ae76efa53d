package table

import "errors"

var (
	// ErrUnknownColumn is returned for a header name or position the table
	// does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrGroupKeyMismatch is returned by Merge when the leading key columns
	// of both tables differ.
	ErrGroupKeyMismatch = errors.New("group key columns differ")

	// ErrUnsupportedAggregate is returned for an unknown aggregate method.
	ErrUnsupportedAggregate = errors.New("unsupported aggregate method")

	// ErrNotNumeric is returned when SUM meets a value that is not a number.
	ErrNotNumeric = errors.New("value is not numeric")

	// ErrUnsupportedFormat is returned by ParseFormat.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
