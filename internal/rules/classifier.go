// Package rules tags ISS invoices with infraction labels and groups them into
// assessment groups.
package rules

import (
	"fmt"

	"github.com/rs/zerolog"

	"issaudit/internal/logger"
	"issaudit/internal/statute"
	"issaudit/pkg/models"
)

// Options configures a Classifier.
type Options struct {
	Clock      statute.Clock
	Activities *models.ActivityTable
	Taxpayer   *Taxpayer

	// Simplified disables every rule except the unpaid-assessment check.
	Simplified bool

	// Disabled lists rule keys to skip.
	Disabled []string

	// Registry defaults to DefaultRegistry.
	Registry *Registry
}

// Classifier evaluates the enabled rules against invoices.
type Classifier struct {
	clock      statute.Clock
	activities *models.ActivityTable
	taxpayer   *Taxpayer
	simplified bool
	rules      []Rule
	unpaid     bool
	log        zerolog.Logger
}

// Report counts classification outcomes.
type Report struct {
	Total      int                 `json:"total"`
	Skipped    int                 `json:"skipped"`
	Compliant  int                 `json:"compliant"`
	Decadent   int                 `json:"decadent"`
	Prescribed int                 `json:"prescribed"`
	ByKind     map[models.Kind]int `json:"by_kind"` // primary labels only
}

// NewClassifier builds a Classifier; it fails on unknown disabled keys.
func NewClassifier(opts Options) (*Classifier, error) {
	const op = "NewClassifier"

	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, key := range opts.Disabled {
		if !registry.Has(key) {
			return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownRule, key)
		}
		disabled[key] = true
	}

	c := &Classifier{
		clock:      opts.Clock,
		activities: opts.Activities,
		taxpayer:   opts.Taxpayer,
		simplified: opts.Simplified,
		unpaid:     !disabled[KeyUnpaidAssessment],
		log:        logger.WithComponent("classifier"),
	}
	if !opts.Simplified {
		for _, rule := range registry.All() {
			if !disabled[rule.Key] {
				c.rules = append(c.rules, rule)
			}
		}
	}
	return c, nil
}

// Classify labels every invoice in place and returns the outcome counts.
func (c *Classifier) Classify(invoices []*models.InvoiceRecord) Report {
	report := Report{Total: len(invoices), ByKind: make(map[models.Kind]int)}

	c.log.Info().
		Int("invoices", len(invoices)).
		Int("rules", len(c.rules)).
		Bool("simplified", c.simplified).
		Time("today", c.clock.Today()).
		Msg("Classifying invoices")

	for _, inv := range invoices {
		if !c.classify(inv) {
			report.Skipped++
			continue
		}
		switch {
		case inv.LegalStatus == models.LegalDecadent:
			report.Decadent++
		case len(inv.Labels) > 0:
			report.ByKind[inv.Labels[0].Kind()]++
		case inv.LegalStatus == models.LegalPrescribed:
			report.Prescribed++
		default:
			report.Compliant++
		}
	}

	c.log.Info().
		Int("skipped", report.Skipped).
		Int("compliant", report.Compliant).
		Int("decadent", report.Decadent).
		Int("prescribed", report.Prescribed).
		Interface("by_kind", report.ByKind).
		Msg("Classification completed")

	return report
}

// classify returns false when the invoice was skipped.
func (c *Classifier) classify(inv *models.InvoiceRecord) bool {
	if inv.ManualStatus == models.ManualBuyerLocation || inv.LegalStatus == models.LegalDecadent {
		inv.Labels = nil
		return false
	}

	inv.Labels = nil
	inv.LegalStatus = models.LegalNone

	activity := c.activities.Lookup(inv.ActivityCode)
	inv.ReferenceRate = activity.Rate

	// Non-local services taxed where the buyer is are outside every rule.
	if inv.Nature == models.NatureNonLocal && activity.LocationRule == models.LocationBuyer {
		c.markPrescribed(inv)
		return true
	}

	in := Input{Invoice: inv, Activity: activity, Taxpayer: c.taxpayer}
	for _, rule := range c.rules {
		if label, ok := rule.Check(in); ok {
			inv.Labels = append(inv.Labels, label)
		}
	}

	if len(inv.Labels) > 0 {
		if inv.Paid() && c.clock.IsDecadent(inv.IssueDate) {
			c.log.Debug().
				Str("invoice", inv.Number).
				Time("cutoff", c.clock.DecadenceCutoff(inv.IssueDate)).
				Msg("Infraction suppressed by decadence")
			inv.Labels = nil
			inv.LegalStatus = models.LegalDecadent
		}
		return true
	}

	if c.markPrescribed(inv) || inv.Paid() || !c.unpaid {
		return true
	}
	if label, ok := unpaidAssessment(inv); ok {
		inv.Labels = append(inv.Labels, label)
	}
	return true
}

// markPrescribed flags an unpaid invoice past its prescription cutoff.
func (c *Classifier) markPrescribed(inv *models.InvoiceRecord) bool {
	if inv.Paid() || !c.clock.IsPrescribed(inv.IssueDate) {
		return false
	}
	inv.LegalStatus = models.LegalPrescribed
	return true
}
