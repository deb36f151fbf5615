// Package errors defines domain errors surfaced across service boundaries.
// Domain errors are reported synchronously to callers and never retried.
package errors

import "fmt"

// DomainError is a caller-visible business rule violation.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
