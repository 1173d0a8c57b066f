package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

// Rule keys, in evaluation order.
const (
	KeyIncorrectRegime    = "regime.incorrect"
	KeyIncorrectRate      = "rate.incorrect"
	KeyUndueExemption     = "nature.undue_exemption"
	KeyIncompatibleNature = "nature.incompatible"
	KeyUndueDeduction     = "deduction.undue"
	KeyWithholding        = "withholding.verify"
	KeyUnpaidAssessment   = "unpaid.assessment"
)

// rateDecimals is the precision rates are compared at.
const rateDecimals = 2

// Window is a period the taxpayer was opted into a non-normal regime.
// A zero To leaves the window open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	return w.To.IsZero() || !t.After(w.To)
}

// Taxpayer is the audited provider's profile.
type Taxpayer struct {
	Name           string
	SimplifiedOpts []Window
}

// OptedIn reports whether the taxpayer could declare a non-normal regime at t.
func (tp *Taxpayer) OptedIn(t time.Time) bool {
	if tp == nil {
		return false
	}
	for _, w := range tp.SimplifiedOpts {
		if w.contains(t) {
			return true
		}
	}
	return false
}

// Input is what a predicate sees for one invoice.
type Input struct {
	Invoice  *models.InvoiceRecord
	Activity models.ActivityCode
	Taxpayer *Taxpayer
}

// Rule is one pure infraction predicate.
type Rule struct {
	Key   string
	Name  string
	Check func(in Input) (models.Label, bool)
}

// Registry keeps rules in evaluation order.
type Registry struct {
	rules []Rule
	byKey map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]int)}
}

// Register appends a rule, replacing any rule with the same key in place.
func (r *Registry) Register(rule Rule) {
	if idx, ok := r.byKey[rule.Key]; ok {
		r.rules[idx] = rule
		return
	}
	r.byKey[rule.Key] = len(r.rules)
	r.rules = append(r.rules, rule)
}

// Get returns the rule for key.
func (r *Registry) Get(key string) (Rule, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return Rule{}, false
	}
	return r.rules[idx], true
}

// All returns the rules in evaluation order.
func (r *Registry) All() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Has reports whether key is registered, including the unpaid-assessment check.
func (r *Registry) Has(key string) bool {
	if key == KeyUnpaidAssessment {
		return true
	}
	_, ok := r.byKey[key]
	return ok
}

// DefaultRegistry returns the statutory rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range BuiltinRules() {
		r.Register(rule)
	}
	return r
}

// BuiltinRules returns the infraction predicates in evaluation order.
func BuiltinRules() []Rule {
	return []Rule{
		{Key: KeyIncorrectRegime, Name: "Regime declared without opt-in", Check: incorrectRegime},
		{Key: KeyIncorrectRate, Name: "Declared rate below statutory rate", Check: incorrectRate},
		{Key: KeyUndueExemption, Name: "Undue exemption or immunity", Check: undueExemption},
		{Key: KeyIncompatibleNature, Name: "Out-of-municipality claim for local service", Check: incompatibleNature},
		{Key: KeyUndueDeduction, Name: "Undue base deduction", Check: undueDeduction},
		{Key: KeyWithholding, Name: "Withholding to verify", Check: withholdingToVerify},
	}
}

func incorrectRegime(in Input) (models.Label, bool) {
	inv := in.Invoice
	if inv.Regime == models.RegimeNormal || inv.Regime == "" {
		return nil, false
	}
	if in.Taxpayer.OptedIn(inv.IssueDate) {
		return nil, false
	}
	return models.IncorrectRegime{Declared: inv.Regime}, true
}

func incorrectRate(in Input) (models.Label, bool) {
	inv := in.Invoice
	if !in.Activity.Found || inv.Regime != models.RegimeNormal || inv.Nature != models.NatureLocal {
		return nil, false
	}
	correct := in.Activity.Rate.Round(rateDecimals)
	declared := inv.DeclaredRate.Round(rateDecimals)
	if !correct.GreaterThan(declared) {
		return nil, false
	}
	return models.IncorrectRate{Declared: declared, Correct: correct}, true
}

func undueExemption(in Input) (models.Label, bool) {
	switch in.Invoice.Nature {
	case models.NatureExempt:
		if !in.Activity.ExemptionAllowed {
			return models.UndueExemption{Nature: models.NatureExempt}, true
		}
	case models.NatureImmune:
		if !in.Activity.ImmunityAllowed {
			return models.UndueExemption{Nature: models.NatureImmune}, true
		}
	}
	return nil, false
}

func incompatibleNature(in Input) (models.Label, bool) {
	if in.Invoice.Nature != models.NatureNonLocal || in.Activity.LocationRule == models.LocationBuyer {
		return nil, false
	}
	return models.IncompatibleNature{LocationRule: in.Activity.LocationRule}, true
}

func undueDeduction(in Input) (models.Label, bool) {
	if !in.Activity.Found || !in.Invoice.Deduction.IsPositive() || in.Activity.DeductionAllowed {
		return nil, false
	}
	return models.UndueDeduction{Amount: in.Invoice.Deduction}, true
}

func withholdingToVerify(in Input) (models.Label, bool) {
	if !in.Invoice.Withheld || in.Activity.WithholdingAllowed {
		return nil, false
	}
	return models.WithholdingToVerify{}, true
}

// unpaidAssessment is evaluated only for unpaid invoices with no other label.
func unpaidAssessment(inv *models.InvoiceRecord) (models.Label, bool) {
	if inv.DeclaredRate.Equal(decimal.Zero) ||
		inv.Nature != models.NatureLocal ||
		inv.Withheld ||
		inv.Regime != models.RegimeNormal {
		return nil, false
	}
	return models.UnpaidAssessment{DeclaredRate: inv.DeclaredRate}, true
}
