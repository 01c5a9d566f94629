package performance

import (
	"errors"
	"fmt"
)

var (
	ErrKPINotFound       = errors.New("kpi not found")
	ErrPeriodNotFound    = errors.New("evaluation period not found")
	ErrReviewNotFound    = errors.New("review not found")
	ErrPeriodNotOpen     = errors.New("period not open for scoring")
	ErrInvalidTransition = errors.New("invalid period transition")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrUnavailable       = errors.New("performance store unavailable")
	ErrValidation        = errors.New("validation failed")
)

// ValidationError names the offending field. Item fields are reported as
// items[i].field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func itemField(index int, field string) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}
