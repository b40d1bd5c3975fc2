package engine

import "fmt"

// ValidationError reports a required-field or range violation on one row.
// Row-local: the controller logs it and skips the row.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ComputationError reports an arithmetic failure deriving a metric, e.g.
// division by zero. Row-local; never silently coerced to zero or infinity.
type ComputationError struct {
	Metric string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation: %s: %s", e.Metric, e.Reason)
}

// DateFormatError reports an unparseable date value. Row-local.
type DateFormatError struct {
	Field string
	Value string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("date format: %s: %q is not YYYY-MM-DD or legacy DD/MM/YY", e.Field, e.Value)
}
