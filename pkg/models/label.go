package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind names one infraction rule.
type Kind string

const (
	KindIncorrectRegime     Kind = "incorrect_regime"
	KindIncorrectRate       Kind = "incorrect_rate"
	KindUndueExemption      Kind = "undue_exemption"
	KindIncompatibleNature  Kind = "incompatible_nature"
	KindUndueDeduction      Kind = "undue_deduction"
	KindWithholdingToVerify Kind = "withholding_to_verify"
	KindUnpaidAssessment    Kind = "unpaid_assessment"
)

// KindOrder is the display and grouping order of label kinds.
var KindOrder = []Kind{
	KindIncorrectRegime,
	KindIncorrectRate,
	KindUndueExemption,
	KindIncompatibleNature,
	KindUndueDeduction,
	KindWithholdingToVerify,
	KindUnpaidAssessment,
}

// KindRank returns the position of k in KindOrder, or len(KindOrder) if unknown.
func KindRank(k Kind) int {
	for i, known := range KindOrder {
		if known == k {
			return i
		}
	}
	return len(KindOrder)
}

// Label is one broken rule attached to an invoice. The set of variants is
// closed: only the types in this file implement it.
type Label interface {
	Kind() Kind
	// Key identifies the assessment group the label belongs to.
	Key() string
	String() string
	label()
}

type IncorrectRegime struct {
	Declared Regime
}

type IncorrectRate struct {
	Declared decimal.Decimal
	Correct  decimal.Decimal
}

type UndueExemption struct {
	Nature Nature
}

type IncompatibleNature struct {
	LocationRule LocationRule
}

type UndueDeduction struct {
	Amount decimal.Decimal
}

type WithholdingToVerify struct{}

// UnpaidAssessment assesses unpaid tax at the declared rate.
type UnpaidAssessment struct {
	DeclaredRate decimal.Decimal
}

func (IncorrectRegime) label()     {}
func (IncorrectRate) label()       {}
func (UndueExemption) label()      {}
func (IncompatibleNature) label()  {}
func (UndueDeduction) label()      {}
func (WithholdingToVerify) label() {}
func (UnpaidAssessment) label()    {}

func (IncorrectRegime) Kind() Kind     { return KindIncorrectRegime }
func (IncorrectRate) Kind() Kind       { return KindIncorrectRate }
func (UndueExemption) Kind() Kind      { return KindUndueExemption }
func (IncompatibleNature) Kind() Kind  { return KindIncompatibleNature }
func (UndueDeduction) Kind() Kind      { return KindUndueDeduction }
func (WithholdingToVerify) Kind() Kind { return KindWithholdingToVerify }
func (UnpaidAssessment) Kind() Kind    { return KindUnpaidAssessment }

func (l IncorrectRegime) Key() string { return string(l.Kind()) + ":" + string(l.Declared) }

func (l IncorrectRate) Key() string {
	return fmt.Sprintf("%s:%s>%s", l.Kind(), l.Declared.StringFixed(2), l.Correct.StringFixed(2))
}

func (l UndueExemption) Key() string { return string(l.Kind()) + ":" + string(l.Nature) }

func (l IncompatibleNature) Key() string { return string(l.Kind()) }

// UndueDeduction groups regardless of amount.
func (l UndueDeduction) Key() string { return string(l.Kind()) }

func (l WithholdingToVerify) Key() string { return string(l.Kind()) }

// UnpaidAssessment groups regardless of rate; the rate is resolved per invoice.
func (l UnpaidAssessment) Key() string { return string(l.Kind()) }

func (l IncorrectRegime) String() string {
	return fmt.Sprintf("declared %s regime without opt-in", l.Declared)
}

func (l IncorrectRate) String() string {
	return fmt.Sprintf("declared rate %s%% below statutory %s%%", l.Declared.StringFixed(2), l.Correct.StringFixed(2))
}

func (l UndueExemption) String() string {
	return fmt.Sprintf("undue %s operation", l.Nature)
}

func (l IncompatibleNature) String() string {
	return "operation declared outside the municipality for a provider-location service"
}

func (l UndueDeduction) String() string {
	return fmt.Sprintf("undue base deduction of %s", l.Amount.StringFixed(2))
}

func (l WithholdingToVerify) String() string {
	return "withholding declared for a non-withholding service"
}

func (l UnpaidAssessment) String() string {
	return fmt.Sprintf("unpaid tax at declared rate %s%%", l.DeclaredRate.StringFixed(2))
}

// ErrUnknownKind is returned when decoding a label envelope with an unknown kind.
var ErrUnknownKind = errors.New("unknown label kind")

// LabelEnvelope is the serializable form of a Label.
type LabelEnvelope struct {
	Kind         Kind             `json:"kind"`
	Regime       Regime           `json:"regime,omitempty"`
	Nature       Nature           `json:"nature,omitempty"`
	LocationRule LocationRule     `json:"location_rule,omitempty"`
	Declared     *decimal.Decimal `json:"declared_rate,omitempty"`
	Correct      *decimal.Decimal `json:"correct_rate,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
}

// Envelope converts a label to its serializable form.
func Envelope(l Label) LabelEnvelope {
	env := LabelEnvelope{Kind: l.Kind()}
	switch v := l.(type) {
	case IncorrectRegime:
		env.Regime = v.Declared
	case IncorrectRate:
		env.Declared, env.Correct = &v.Declared, &v.Correct
	case UndueExemption:
		env.Nature = v.Nature
	case IncompatibleNature:
		env.LocationRule = v.LocationRule
	case UndueDeduction:
		env.Amount = &v.Amount
	case UnpaidAssessment:
		env.Declared = &v.DeclaredRate
	}
	return env
}

// Label rebuilds the typed label.
func (e LabelEnvelope) Label() (Label, error) {
	switch e.Kind {
	case KindIncorrectRegime:
		return IncorrectRegime{Declared: e.Regime}, nil
	case KindIncorrectRate:
		return IncorrectRate{Declared: orZero(e.Declared), Correct: orZero(e.Correct)}, nil
	case KindUndueExemption:
		return UndueExemption{Nature: e.Nature}, nil
	case KindIncompatibleNature:
		return IncompatibleNature{LocationRule: e.LocationRule}, nil
	case KindUndueDeduction:
		return UndueDeduction{Amount: orZero(e.Amount)}, nil
	case KindWithholdingToVerify:
		return WithholdingToVerify{}, nil
	case KindUnpaidAssessment:
		return UnpaidAssessment{DeclaredRate: orZero(e.Declared)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
