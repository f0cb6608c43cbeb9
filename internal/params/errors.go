package params

import "fmt"

// typeError signals a value that cannot be coerced to the declared kind.
type typeError struct {
	name  string
	value any
	kind  Kind
}

func (e typeError) Error() string {
	return fmt.Sprintf("parameter %s: cannot convert %v to %s", e.name, e.value, e.kind)
}

// ErrType constructs a type-coercion error for a parameter.
func ErrType(name string, value any, kind Kind) error {
	return typeError{name: name, value: value, kind: kind}
}

// IsTypeError reports whether err indicates a failed type coercion.
func IsTypeError(err error) bool {
	_, ok := err.(typeError)
	return ok
}

// rangeError signals a coerced value outside the definition's bounds.
type rangeError struct {
	name  string
	value any
	bound float64
	limit string // "minimum" or "maximum"
}

func (e rangeError) Error() string {
	return fmt.Sprintf("parameter %s: value %v violates %s %v", e.name, e.value, e.limit, e.bound)
}

// ErrBelowMin constructs a range error for a value under the minimum.
func ErrBelowMin(name string, value any, min float64) error {
	return rangeError{name: name, value: value, bound: min, limit: "minimum"}
}

// ErrAboveMax constructs a range error for a value over the maximum.
func ErrAboveMax(name string, value any, max float64) error {
	return rangeError{name: name, value: value, bound: max, limit: "maximum"}
}

// IsRangeError reports whether err indicates an out-of-bounds value.
func IsRangeError(err error) bool {
	_, ok := err.(rangeError)
	return ok
}

// IsValidationError reports whether err is any parameter validation failure.
func IsValidationError(err error) bool {
	return IsTypeError(err) || IsRangeError(err)
}
