package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateInvoices is returned when the invoice set still contains
	// numbers with conflicting field values.
	ErrDuplicateInvoices = errors.New("unresolved duplicate invoice numbers")

	// ErrUnknownRule is returned when a disabled-rule key names no registered rule.
	ErrUnknownRule = errors.New("unknown rule key")
)

// DuplicateInvoicesError lists every conflicting invoice number.
type DuplicateInvoicesError struct {
	Numbers []string
}

// Error implements the error interface.
func (e *DuplicateInvoicesError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateInvoices, strings.Join(e.Numbers, ", "))
}

// Is matches ErrDuplicateInvoices.
func (e *DuplicateInvoicesError) Is(target error) bool {
	return target == ErrDuplicateInvoices
}
