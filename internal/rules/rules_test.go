package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issaudit/internal/rules"
	"issaudit/pkg/models"
)

func findRule(t *testing.T, key string) rules.Rule {
	t.Helper()
	rule, ok := rules.DefaultRegistry().Get(key)
	require.True(t, ok, "rule %s not registered", key)
	return rule
}

func input(inv *models.InvoiceRecord) rules.Input {
	return rules.Input{
		Invoice:  inv,
		Activity: activities().Lookup(inv.ActivityCode),
		Taxpayer: &rules.Taxpayer{},
	}
}

func TestBuiltinRules_Order(t *testing.T) {
	keys := make([]string, 0)
	for _, r := range rules.DefaultRegistry().All() {
		assert.NotEmpty(t, r.Name)
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{
		rules.KeyIncorrectRegime,
		rules.KeyIncorrectRate,
		rules.KeyUndueExemption,
		rules.KeyIncompatibleNature,
		rules.KeyUndueDeduction,
		rules.KeyWithholding,
	}, keys)
}

func TestRule_IncorrectRegime(t *testing.T) {
	rule := findRule(t, rules.KeyIncorrectRegime)

	t.Run("normal_regime_passes", func(t *testing.T) {
		_, fired := rule.Check(input(compliantInvoice()))
		assert.False(t, fired)
	})

	t.Run("simplified_without_opt_in", func(t *testing.T) {
		inv := compliantInvoice()
		inv.Regime = models.RegimeSimplified
		label, fired := rule.Check(input(inv))
		require.True(t, fired)
		assert.Equal(t, models.IncorrectRegime{Declared: models.RegimeSimplified}, label)
	})

	t.Run("simplified_with_opt_in", func(t *testing.T) {
		inv := compliantInvoice()
		inv.Regime = models.RegimeSimplified
		in := input(inv)
		in.Taxpayer = &rules.Taxpayer{SimplifiedOpts: []rules.Window{{From: date(2020, time.January, 1)}}}
		_, fired := rule.Check(in)
		assert.False(t, fired)
	})

	t.Run("opt_in_window_closed_before_issue", func(t *testing.T) {
		inv := compliantInvoice()
		inv.Regime = models.RegimeMEI
		in := input(inv)
		in.Taxpayer = &rules.Taxpayer{SimplifiedOpts: []rules.Window{
			{From: date(2020, time.January, 1), To: date(2022, time.December, 31)},
		}}
		_, fired := rule.Check(in)
		assert.True(t, fired)
	})
}

func TestRule_IncorrectRate(t *testing.T) {
	rule := findRule(t, rules.KeyIncorrectRate)

	t.Run("declared_below_statutory", func(t *testing.T) {
		inv := compliantInvoice()
		inv.DeclaredRate = dec("2")
		label, fired := rule.Check(input(inv))
		require.True(t, fired)
		rate, ok := label.(models.IncorrectRate)
		require.True(t, ok)
		assert.True(t, rate.Declared.Equal(dec("2")))
		assert.True(t, rate.Correct.Equal(dec("5")))
	})

	t.Run("float_noise_within_two_decimals", func(t *testing.T) {
		inv := compliantInvoice()
		inv.DeclaredRate = dec("4.999")
		_, fired := rule.Check(input(inv))
		assert.False(t, fired)
	})

	t.Run("declared_above_statutory", func(t *testing.T) {
		inv := compliantInvoice()
		inv.DeclaredRate = dec("6")
		_, fired := rule.Check(input(inv))
		assert.False(t, fired)
	})

	t.Run("missing_reference_row", func(t *testing.T) {
		inv := compliantInvoice()
		inv.ActivityCode = "9999"
		inv.DeclaredRate = dec("0")
		_, fired := rule.Check(input(inv))
		assert.False(t, fired)
	})

	t.Run("non_local_ignored", func(t *testing.T) {
		inv := compliantInvoice()
		inv.DeclaredRate = dec("2")
		inv.Nature = models.NatureExempt
		_, fired := rule.Check(input(inv))
		assert.False(t, fired)
	})
}

func TestRule_UndueExemption(t *testing.T) {
	rule := findRule(t, rules.KeyUndueExemption)

	inv := compliantInvoice()
	inv.Nature = models.NatureImmune
	label, fired := rule.Check(input(inv))
	require.True(t, fired)
	assert.Equal(t, models.UndueExemption{Nature: models.NatureImmune}, label)

	inv.ActivityCode = "0303"
	_, fired = rule.Check(input(inv))
	assert.False(t, fired, "immunity-eligible code")
}

func TestRule_IncompatibleNature(t *testing.T) {
	rule := findRule(t, rules.KeyIncompatibleNature)

	inv := compliantInvoice()
	inv.Nature = models.NatureNonLocal
	_, fired := rule.Check(input(inv))
	assert.True(t, fired)

	inv.ActivityCode = "0202"
	_, fired = rule.Check(input(inv))
	assert.False(t, fired, "buyer-location code")
}

func TestRule_UndueDeduction(t *testing.T) {
	rule := findRule(t, rules.KeyUndueDeduction)

	inv := compliantInvoice()
	inv.Deduction = dec("100")
	label, fired := rule.Check(input(inv))
	require.True(t, fired)
	assert.True(t, label.(models.UndueDeduction).Amount.Equal(dec("100")))

	inv.ActivityCode = "9999"
	_, fired = rule.Check(input(inv))
	assert.False(t, fired, "missing reference row never reaches the deduction rule")
}

func TestRule_WithholdingToVerify(t *testing.T) {
	rule := findRule(t, rules.KeyWithholding)

	inv := compliantInvoice()
	inv.Withheld = true
	_, fired := rule.Check(input(inv))
	assert.True(t, fired)

	inv.ActivityCode = "0303"
	_, fired = rule.Check(input(inv))
	assert.False(t, fired)
}
