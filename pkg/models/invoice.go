package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the payment situation declared on the invoice.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentDirect     PaymentStatus = "paid_direct"
	PaymentAssessment PaymentStatus = "paid_assessment"
)

// Regime is the tax regime the provider declared on the invoice.
type Regime string

const (
	RegimeNormal     Regime = "normal"
	RegimeSimplified Regime = "simplified"
	RegimeMEI        Regime = "mei"
	RegimeFixed      Regime = "fixed"
)

// Nature is the declared nature of the operation.
type Nature string

const (
	NatureLocal    Nature = "local"
	NatureNonLocal Nature = "non_local"
	NatureExempt   Nature = "exempt"
	NatureImmune   Nature = "immune"
)

// ManualStatus is set by the reviewer and overrides classification.
type ManualStatus string

const (
	ManualNone          ManualStatus = "none"
	ManualBuyerLocation ManualStatus = "buyer_location"
	ManualIgnored       ManualStatus = "ignored"
)

// LegalStatus records the statute-of-limitations outcome of classification.
type LegalStatus string

const (
	LegalNone       LegalStatus = "none"
	LegalDecadent   LegalStatus = "decadent"
	LegalPrescribed LegalStatus = "prescribed"
)

type InvoiceRecord struct {
	// Identity
	Number    string    // External invoice number (NFS-e), unique after cleaning
	IssueDate time.Time // Date the service invoice was issued
	FirstRPS  bool      // Issued from the first provisional receipt (only used to break duplicate ties)

	// Amounts (decimal to keep cents exact)
	GrossValue            decimal.Decimal
	UnconditionalDiscount decimal.Decimal
	Deduction             decimal.Decimal // Base-reduction deduction claimed
	DeclaredRate          decimal.Decimal // Percent, e.g. 2 for 2%

	// Declarations
	ActivityCode  string
	PaymentStatus PaymentStatus
	Regime        Regime
	Nature        Nature
	Withheld      bool
	Description   string

	// Reviewer input
	ManualStatus ManualStatus
	GroupID      string // Assessment group currently holding this invoice, empty if none

	// Classification output
	ReferenceRate decimal.Decimal // Statutory rate of the activity code
	Labels        []Label         // Ordered; the first is the primary motive
	LegalStatus   LegalStatus
}

// TaxableBase returns gross value minus unconditional discount and deduction.
// Callers clamp negative inputs upstream.
func (i *InvoiceRecord) TaxableBase() decimal.Decimal {
	return i.GrossValue.Sub(i.UnconditionalDiscount).Sub(i.Deduction)
}

// Paid reports whether the invoice was paid directly or through a previous assessment.
func (i *InvoiceRecord) Paid() bool {
	return i.PaymentStatus == PaymentDirect || i.PaymentStatus == PaymentAssessment
}

// Period returns the calendar month of issuance.
func (i *InvoiceRecord) Period() Period {
	return PeriodOf(i.IssueDate)
}

// Primary returns the first label, or nil when the invoice is compliant.
func (i *InvoiceRecord) Primary() Label {
	if len(i.Labels) == 0 {
		return nil
	}
	return i.Labels[0]
}

// Excluded reports whether the invoice must not contribute to any group.
func (i *InvoiceRecord) Excluded() bool {
	return i.ManualStatus == ManualIgnored ||
		i.ManualStatus == ManualBuyerLocation ||
		i.LegalStatus == LegalDecadent
}
