// Package dataset loads an audit dataset from a JSON file: invoices, the
// activity reference table, credit records, fines and the taxpayer profile.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"issaudit/internal/ledger"
	"issaudit/internal/logger"
	"issaudit/internal/reconciliation"
	"issaudit/internal/rules"
	"issaudit/pkg/models"
)

// ErrInvalidField is wrapped by every FieldError.
var ErrInvalidField = errors.New("invalid field")

// FieldError points at the record and field that failed to parse.
type FieldError struct {
	Section string // "invoices", "receipts", ...
	Index   int
	Field   string
	Value   string
	Err     error
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%s[%d].%s: invalid value %q", e.Section, e.Index, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Is(target error) bool { return target == ErrInvalidField }

// Dataset is everything one audit run needs.
type Dataset struct {
	Invoices     []*models.InvoiceRecord
	Activities   *models.ActivityTable
	Receipts     []ledger.Receipt
	Declarations []ledger.Declaration
	Fines        []reconciliation.Fine
	Taxpayer     *rules.Taxpayer
}

type fileInvoice struct {
	Number                string          `json:"number"`
	IssueDate             string          `json:"issue_date"`
	FirstRPS              bool            `json:"first_rps"`
	GrossValue            decimal.Decimal `json:"gross_value"`
	UnconditionalDiscount decimal.Decimal `json:"unconditional_discount"`
	Deduction             decimal.Decimal `json:"deduction"`
	DeclaredRate          decimal.Decimal `json:"declared_rate"`
	ActivityCode          string          `json:"activity_code"`
	PaymentStatus         string          `json:"payment_status"`
	Regime                string          `json:"regime"`
	Nature                string          `json:"nature"`
	Withheld              bool            `json:"withheld"`
	Description           string          `json:"description"`
	ManualStatus          string          `json:"manual_status"`
}

type fileActivity struct {
	Code               string          `json:"code"`
	Description        string          `json:"description"`
	Rate               decimal.Decimal `json:"rate"`
	DeductionAllowed   bool            `json:"deduction_allowed"`
	WithholdingAllowed bool            `json:"withholding_allowed"`
	LocationRule       string          `json:"location_rule"`
	ExemptionAllowed   bool            `json:"exemption_allowed"`
	ImmunityAllowed    bool            `json:"immunity_allowed"`
}

type fileReceipt struct {
	Period        models.Period   `json:"period"`
	Value         decimal.Decimal `json:"value"`
	Code          string          `json:"code"`
	TaxType       string          `json:"tax_type"`
	LinkedInvoice string          `json:"linked_invoice"`
}

type fileDeclaration struct {
	Period models.Period   `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Number string          `json:"number"`
}

type fileWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type fileTaxpayer struct {
	Name           string       `json:"name"`
	SimplifiedOpts []fileWindow `json:"simplified_opt_ins"`
}

type file struct {
	Invoices     []fileInvoice         `json:"invoices"`
	Activities   []fileActivity        `json:"activities"`
	Receipts     []fileReceipt         `json:"receipts"`
	Declarations []fileDeclaration     `json:"declarations"`
	Fines        []reconciliation.Fine `json:"fines"`
	Taxpayer     *fileTaxpayer         `json:"taxpayer"`
}

var (
	paymentStatuses = []models.PaymentStatus{models.PaymentUnpaid, models.PaymentDirect, models.PaymentAssessment}
	regimes         = []models.Regime{models.RegimeNormal, models.RegimeSimplified, models.RegimeMEI, models.RegimeFixed}
	natures         = []models.Nature{models.NatureLocal, models.NatureNonLocal, models.NatureExempt, models.NatureImmune}
	manualStatuses  = []models.ManualStatus{models.ManualNone, models.ManualBuyerLocation, models.ManualIgnored}
	locationRules   = []models.LocationRule{models.LocationProvider, models.LocationBuyer}
)

// LoadFile opens path and decodes it with Decode.
func LoadFile(path string) (*Dataset, error) {
	const op = "LoadFile"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open dataset: %w", op, err)
	}
	defer f.Close()

	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return ds, nil
}

// Decode reads a JSON dataset. Empty regime, nature and manual status default
// to normal, local and none.
func Decode(r io.Reader) (*Dataset, error) {
	var raw file
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	log := logger.WithComponent("dataset")
	ds := &Dataset{Fines: raw.Fines}

	for i, fi := range raw.Invoices {
		inv, err := fi.record(i)
		if err != nil {
			return nil, err
		}
		if clampBase(inv) {
			log.Warn().
				Str("invoice", inv.Number).
				Str("discount", inv.UnconditionalDiscount.String()).
				Str("deduction", inv.Deduction.String()).
				Msg("Discount and deduction exceed gross value, clamped to a zero base")
		}
		ds.Invoices = append(ds.Invoices, inv)
	}

	rows := make([]models.ActivityCode, 0, len(raw.Activities))
	for i, fa := range raw.Activities {
		rule := models.LocationRule(lower(fa.LocationRule, string(models.LocationProvider)))
		if !lo.Contains(locationRules, rule) {
			return nil, &FieldError{Section: "activities", Index: i, Field: "location_rule", Value: fa.LocationRule}
		}
		rows = append(rows, models.ActivityCode{
			Code:               strings.TrimSpace(fa.Code),
			Description:        fa.Description,
			Rate:               fa.Rate,
			DeductionAllowed:   fa.DeductionAllowed,
			WithholdingAllowed: fa.WithholdingAllowed,
			LocationRule:       rule,
			ExemptionAllowed:   fa.ExemptionAllowed,
			ImmunityAllowed:    fa.ImmunityAllowed,
		})
	}
	ds.Activities = models.NewActivityTable(rows)

	ds.Receipts = lo.Map(raw.Receipts, func(fr fileReceipt, _ int) ledger.Receipt {
		return ledger.Receipt{
			Period:        fr.Period,
			Value:         fr.Value,
			Code:          fr.Code,
			TaxType:       fr.TaxType,
			LinkedInvoice: fr.LinkedInvoice,
		}
	})
	ds.Declarations = lo.Map(raw.Declarations, func(fd fileDeclaration, _ int) ledger.Declaration {
		return ledger.Declaration{Period: fd.Period, Amount: fd.Amount, Number: fd.Number}
	})

	if raw.Taxpayer != nil {
		tp := &rules.Taxpayer{Name: raw.Taxpayer.Name}
		for i, w := range raw.Taxpayer.SimplifiedOpts {
			from, err := parseDate(w.From)
			if err != nil {
				return nil, &FieldError{Section: "taxpayer.simplified_opt_ins", Index: i, Field: "from", Value: w.From, Err: err}
			}
			var to time.Time
			if w.To != "" {
				if to, err = parseDate(w.To); err != nil {
					return nil, &FieldError{Section: "taxpayer.simplified_opt_ins", Index: i, Field: "to", Value: w.To, Err: err}
				}
			}
			tp.SimplifiedOpts = append(tp.SimplifiedOpts, rules.Window{From: from, To: to})
		}
		ds.Taxpayer = tp
	}

	log.Info().
		Int("invoices", len(ds.Invoices)).
		Int("activities", ds.Activities.Len()).
		Int("receipts", len(ds.Receipts)).
		Int("declarations", len(ds.Declarations)).
		Int("fines", len(ds.Fines)).
		Msg("Dataset loaded")

	return ds, nil
}

func (fi fileInvoice) record(i int) (*models.InvoiceRecord, error) {
	fieldErr := func(field, value string, err error) error {
		return &FieldError{Section: "invoices", Index: i, Field: field, Value: value, Err: err}
	}

	number := strings.TrimSpace(fi.Number)
	if number == "" {
		return nil, fieldErr("number", fi.Number, nil)
	}
	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"gross_value", fi.GrossValue},
		{"unconditional_discount", fi.UnconditionalDiscount},
		{"deduction", fi.Deduction},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return nil, fieldErr(a.field, a.value.String(), nil)
		}
	}
	issued, err := parseDate(fi.IssueDate)
	if err != nil {
		return nil, fieldErr("issue_date", fi.IssueDate, err)
	}

	payment := models.PaymentStatus(lower(fi.PaymentStatus, string(models.PaymentUnpaid)))
	if !lo.Contains(paymentStatuses, payment) {
		return nil, fieldErr("payment_status", fi.PaymentStatus, nil)
	}
	regime := models.Regime(lower(fi.Regime, string(models.RegimeNormal)))
	if !lo.Contains(regimes, regime) {
		return nil, fieldErr("regime", fi.Regime, nil)
	}
	nature := models.Nature(lower(fi.Nature, string(models.NatureLocal)))
	if !lo.Contains(natures, nature) {
		return nil, fieldErr("nature", fi.Nature, nil)
	}
	manual := models.ManualStatus(lower(fi.ManualStatus, string(models.ManualNone)))
	if !lo.Contains(manualStatuses, manual) {
		return nil, fieldErr("manual_status", fi.ManualStatus, nil)
	}

	return &models.InvoiceRecord{
		Number:                number,
		IssueDate:             issued,
		FirstRPS:              fi.FirstRPS,
		GrossValue:            fi.GrossValue,
		UnconditionalDiscount: fi.UnconditionalDiscount,
		Deduction:             fi.Deduction,
		DeclaredRate:          fi.DeclaredRate,
		ActivityCode:          strings.TrimSpace(fi.ActivityCode),
		PaymentStatus:         payment,
		Regime:                regime,
		Nature:                nature,
		Withheld:              fi.Withheld,
		Description:           fi.Description,
		ManualStatus:          manual,
		LegalStatus:           models.LegalNone,
	}, nil
}

// clampBase caps the discount at the gross value and the deduction at what the
// discount leaves, so the taxable base never goes negative.
func clampBase(inv *models.InvoiceRecord) bool {
	if !inv.TaxableBase().IsNegative() {
		return false
	}
	inv.UnconditionalDiscount = decimal.Min(inv.UnconditionalDiscount, inv.GrossValue)
	inv.Deduction = inv.GrossValue.Sub(inv.UnconditionalDiscount)
	return true
}

// parseDate accepts ISO dates and Brazilian dd/mm/yyyy.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("expected YYYY-MM-DD or DD/MM/YYYY")
}

func lower(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	return s
}
