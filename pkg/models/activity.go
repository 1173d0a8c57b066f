package models

import "github.com/shopspring/decimal"

// LocationRule says where the tax is due for an activity code.
type LocationRule string

const (
	LocationProvider LocationRule = "provider"
	LocationBuyer    LocationRule = "buyer"
)

// ActivityCode is one row of the municipal service list.
type ActivityCode struct {
	Code               string
	Description        string
	Rate               decimal.Decimal // Statutory rate, percent
	DeductionAllowed   bool
	WithholdingAllowed bool
	LocationRule       LocationRule
	ExemptionAllowed   bool
	ImmunityAllowed    bool

	// Found is false for the zero row returned on a missing code.
	Found bool
}

// ActivityTable is an immutable code → row index.
type ActivityTable struct {
	byCode map[string]ActivityCode
}

// NewActivityTable indexes rows by code. Later rows win on repeated codes.
func NewActivityTable(rows []ActivityCode) *ActivityTable {
	m := make(map[string]ActivityCode, len(rows))
	for _, row := range rows {
		row.Found = true
		m[row.Code] = row
	}
	return &ActivityTable{byCode: m}
}

// Lookup returns the row for code, or a zero-rate, zero-eligibility row
// (Found=false) when the code is unknown.
func (t *ActivityTable) Lookup(code string) ActivityCode {
	if t != nil {
		if row, ok := t.byCode[code]; ok {
			return row
		}
	}
	return ActivityCode{Code: code, LocationRule: LocationProvider}
}

// Len returns the number of indexed codes.
func (t *ActivityTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}
