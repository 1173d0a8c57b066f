// Package ledger holds the two credit pools a reconciliation run consumes:
// ad-hoc payment receipts and periodic simplified-regime declarations.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

// Pool names a credit pool.
type Pool string

const (
	PoolAdHoc    Pool = "adhoc"
	PoolPeriodic Pool = "periodic"
)

// CreditEntry is one payment record. Remaining never goes negative.
type CreditEntry struct {
	Pool      Pool
	Period    models.Period
	Remaining decimal.Decimal
	Source    string // receipt code or declaration number
}

// Consumption is what one Consume call took from a pool.
type Consumption struct {
	Amount  decimal.Decimal
	Sources []string
}

// Snapshot is the immutable start-of-run state of both pools.
type Snapshot struct {
	adhoc    map[models.Period][]CreditEntry
	periodic map[models.Period]CreditEntry
}

// NewSnapshot groups entries by pool and period. Ad-hoc entries keep their
// input order; periodic entries for the same period are summed and the first
// declaration number is retained.
func NewSnapshot(entries []CreditEntry) *Snapshot {
	s := &Snapshot{
		adhoc:    make(map[models.Period][]CreditEntry),
		periodic: make(map[models.Period]CreditEntry),
	}
	for _, e := range entries {
		if !e.Remaining.IsPositive() {
			continue
		}
		switch e.Pool {
		case PoolAdHoc:
			s.adhoc[e.Period] = append(s.adhoc[e.Period], e)
		case PoolPeriodic:
			if cur, ok := s.periodic[e.Period]; ok {
				cur.Remaining = cur.Remaining.Add(e.Remaining)
				s.periodic[e.Period] = cur
				continue
			}
			s.periodic[e.Period] = e
		}
	}
	return s
}

// Entries returns every entry of the snapshot, ad-hoc first, sorted by period.
func (s *Snapshot) Entries() []CreditEntry {
	var out []CreditEntry
	for _, p := range sortedPeriods(s.adhoc) {
		out = append(out, s.adhoc[p]...)
	}
	for _, p := range sortedPeriods(s.periodic) {
		out = append(out, s.periodic[p])
	}
	return out
}

// Ledger is the mutable credit state of one reconciliation run. It is not safe
// for concurrent use.
type Ledger struct {
	snapshot *Snapshot
	adhoc    map[models.Period][]*CreditEntry
	periodic map[models.Period]*CreditEntry
}

// New builds a ledger positioned at the snapshot.
func New(snapshot *Snapshot) *Ledger {
	if snapshot == nil {
		snapshot = NewSnapshot(nil)
	}
	l := &Ledger{snapshot: snapshot}
	l.Reset()
	return l
}

// Reset discards every consumption and restores the start-of-run state.
func (l *Ledger) Reset() {
	l.adhoc = make(map[models.Period][]*CreditEntry, len(l.snapshot.adhoc))
	for p, entries := range l.snapshot.adhoc {
		copies := make([]*CreditEntry, len(entries))
		for i := range entries {
			e := entries[i]
			copies[i] = &e
		}
		l.adhoc[p] = copies
	}
	l.periodic = make(map[models.Period]*CreditEntry, len(l.snapshot.periodic))
	for p, entry := range l.snapshot.periodic {
		e := entry
		l.periodic[p] = &e
	}
}

// Balance returns what remains in pool for period.
func (l *Ledger) Balance(pool Pool, period models.Period) decimal.Decimal {
	switch pool {
	case PoolAdHoc:
		total := decimal.Zero
		for _, e := range l.adhoc[period] {
			total = total.Add(e.Remaining)
		}
		return total
	case PoolPeriodic:
		if e, ok := l.periodic[period]; ok {
			return e.Remaining
		}
	}
	return decimal.Zero
}

// ConsumeAdHoc takes up to amount from the period's receipts, draining each
// receipt before moving to the next.
func (l *Ledger) ConsumeAdHoc(period models.Period, amount decimal.Decimal) Consumption {
	taken := Consumption{Amount: decimal.Zero}
	need := amount
	for _, e := range l.adhoc[period] {
		if !need.IsPositive() {
			break
		}
		if !e.Remaining.IsPositive() {
			continue
		}
		use := decimal.Min(need, e.Remaining)
		e.Remaining = e.Remaining.Sub(use)
		need = need.Sub(use)
		taken.Amount = taken.Amount.Add(use)
		taken.Sources = append(taken.Sources, e.Source)
	}
	return taken
}

// ConsumePeriodic takes up to amount from the period's declaration credit.
func (l *Ledger) ConsumePeriodic(period models.Period, amount decimal.Decimal) Consumption {
	e, ok := l.periodic[period]
	if !ok || !amount.IsPositive() || !e.Remaining.IsPositive() {
		return Consumption{Amount: decimal.Zero}
	}
	use := decimal.Min(amount, e.Remaining)
	e.Remaining = e.Remaining.Sub(use)
	return Consumption{Amount: use, Sources: []string{e.Source}}
}

// Periods returns every period holding credit at snapshot time, sorted.
func (l *Ledger) Periods() []models.Period {
	seen := make(map[models.Period]bool)
	for p := range l.snapshot.adhoc {
		seen[p] = true
	}
	for p := range l.snapshot.periodic {
		seen[p] = true
	}
	return sortedPeriods(seen)
}

func sortedPeriods[V any](m map[models.Period]V) []models.Period {
	out := make([]models.Period, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
