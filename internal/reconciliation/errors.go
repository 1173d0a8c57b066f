package reconciliation

import (
	"errors"
	"fmt"
)

var (
	// ErrSharedInvoice is returned when an invoice number appears in more than one group.
	ErrSharedInvoice = errors.New("invoice assigned to more than one group")

	// ErrNoLedger is returned when Run is called without a credit ledger.
	ErrNoLedger = errors.New("credit ledger is required")

	// ErrEmptySheet is returned when a credit worksheet has no header row.
	ErrEmptySheet = errors.New("credit sheet is empty")
)

// RunError wraps a failure of a reconciliation run.
type RunError struct {
	// Op is the operation that failed.
	Op string

	// GroupID is the group being processed, if any.
	GroupID string

	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.GroupID != "" {
		return fmt.Sprintf("reconciliation: %s failed (group: %s): %v", e.Op, e.GroupID, e.Err)
	}
	return fmt.Sprintf("reconciliation: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}
