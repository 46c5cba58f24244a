package value

import "errors"

var (
	// ErrMalformed is returned when serialized bytes do not decode to exactly
	// one supported Value.
	ErrMalformed = errors.New("malformed payload")

	// ErrUnsupported is returned when a Go value has no Value representation.
	ErrUnsupported = errors.New("unsupported value type")

	// ErrTooDeep is returned when lists and maps nest deeper than MaxDepth.
	ErrTooDeep = errors.New("value nested too deeply")
)
