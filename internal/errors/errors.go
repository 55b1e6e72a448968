package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDonationNotFound     = fmt.Errorf("donation not found")
	ErrOrderNotFound        = fmt.Errorf("donation for order not found")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrInvalidTransition    = fmt.Errorf("donation is not in a state that allows this transition")
	ErrInvalidSignature     = fmt.Errorf("payment verification failed")
	ErrGatewayNotConfigured = fmt.Errorf("payment gateway is not configured")
	ErrGateway              = fmt.Errorf("payment gateway request failed")
	ErrInvalidCredentials   = fmt.Errorf("the provided credentials are incorrect")
	ErrNotAdmin             = fmt.Errorf("you do not have admin access")
	ErrUnauthenticated      = fmt.Errorf("unauthenticated")
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
