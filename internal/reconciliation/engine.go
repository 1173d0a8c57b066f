// Package reconciliation turns assessment groups into monthly ledger lines and
// credits previously made payments against them.
package reconciliation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"issaudit/internal/ledger"
	"issaudit/internal/logger"
	"issaudit/internal/rules"
	"issaudit/pkg/models"
)

// Engine runs the aggregation and credit waterfall over every group.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a reconciliation engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Run resets credits to its start-of-run snapshot, then processes groups in
// slice order: each bucket consumes ad-hoc credit for its net due, then
// periodic credit for what is left. Earlier groups get first claim on a
// month's credit. Run is not safe for concurrent use of the same ledger.
func (e *Engine) Run(groups []*models.AssessmentGroup, invoices []*models.InvoiceRecord, credits *ledger.Ledger) (*Result, error) {
	const op = "Run"

	if credits == nil {
		return nil, &RunError{Op: op, Err: ErrNoLedger}
	}

	invoices, err := rules.CheckDuplicates(invoices)
	if err != nil {
		return nil, &RunError{Op: op, Err: err}
	}
	byNumber := make(map[string]*models.InvoiceRecord, len(invoices))
	for _, inv := range invoices {
		byNumber[inv.Number] = inv
	}

	owner := make(map[string]string)
	for _, g := range groups {
		for _, number := range g.InvoiceNumbers {
			if other, ok := owner[number]; ok && other != g.ID {
				return nil, &RunError{Op: op, GroupID: g.ID, Err: fmt.Errorf("%w: %s (also in %s)", ErrSharedInvoice, number, other)}
			}
			owner[number] = g.ID
		}
	}

	result := &Result{
		RunID:            uuid.NewString(),
		ComputedAt:       e.now().UTC(),
		AdHocConsumed:    decimal.Zero,
		PeriodicConsumed: decimal.Zero,
	}
	log := logger.WithRunID("reconciliation", result.RunID)

	credits.Reset()

	log.Info().
		Int("groups", len(groups)).
		Int("invoices", len(invoices)).
		Int("credit_periods", len(credits.Periods())).
		Msg("Starting reconciliation")

	for _, g := range groups {
		gr := e.reconcileGroup(g, byNumber, credits, log)
		result.Groups = append(result.Groups, gr)
		for _, line := range gr.Lines {
			result.AdHocConsumed = result.AdHocConsumed.Add(line.AdHocConsumed)
			result.PeriodicConsumed = result.PeriodicConsumed.Add(line.PeriodicConsumed)
		}
	}

	log.Info().
		Str("adhoc_consumed", result.AdHocConsumed.StringFixed(2)).
		Str("periodic_consumed", result.PeriodicConsumed.StringFixed(2)).
		Msg("Reconciliation completed")

	return result, nil
}

func (e *Engine) reconcileGroup(
	g *models.AssessmentGroup,
	byNumber map[string]*models.InvoiceRecord,
	credits *ledger.Ledger,
	log zerolog.Logger,
) GroupResult {
	gr := GroupResult{
		GroupID: g.ID,
		NetDue:  decimal.Zero,
		Owed:    decimal.Zero,
	}
	if g.Motive != nil {
		gr.MotiveKind = g.Motive.Kind()
		gr.Motive = g.Motive.String()
	}

	members := make([]*models.InvoiceRecord, 0, len(g.InvoiceNumbers))
	for _, number := range g.InvoiceNumbers {
		inv, ok := byNumber[number]
		if !ok {
			gr.Missing = append(gr.Missing, number)
			continue
		}
		members = append(members, inv)
	}
	if len(gr.Missing) > 0 {
		log.Warn().
			Str("group_id", g.ID).
			Strs("invoices", gr.Missing).
			Msg("Group references invoices missing from the dataset")
	}

	for _, b := range Aggregate(g, members) {
		line := MonthlyLedgerLine{
			GroupID:  g.ID,
			Period:   b.Period,
			Rate:     b.Rate,
			Base:     b.Base,
			GrossTax: b.GrossTax,
			PaidTax:  b.PaidTax,
			NetDue:   b.NetDue,
			Invoices: b.Invoices,
		}

		adhoc := credits.ConsumeAdHoc(b.Period, b.NetDue)
		periodic := credits.ConsumePeriodic(b.Period, b.NetDue.Sub(adhoc.Amount))

		line.AdHocConsumed = adhoc.Amount
		line.AdHocSources = adhoc.Sources
		line.PeriodicConsumed = periodic.Amount
		if len(periodic.Sources) > 0 {
			line.PeriodicSource = periodic.Sources[0]
		}
		line.Owed = decimal.Max(b.NetDue.Sub(adhoc.Amount).Sub(periodic.Amount), decimal.Zero)

		log.Debug().
			Str("group_id", g.ID).
			Str("period", b.Period.String()).
			Str("rate", b.Rate.String()).
			Str("net_due", b.NetDue.StringFixed(2)).
			Str("adhoc", adhoc.Amount.StringFixed(2)).
			Str("periodic", periodic.Amount.StringFixed(2)).
			Msg("Bucket reconciled")

		gr.Lines = append(gr.Lines, line)
		gr.NetDue = gr.NetDue.Add(line.NetDue)
		gr.Owed = gr.Owed.Add(line.Owed)
	}

	gr.Final = gr.Owed
	if g.FinalAmount != nil {
		gr.Final = *g.FinalAmount
		gr.Overridden = true
	}
	return gr
}
