// Package session persists reviewer work (assessment groups and manual
// invoice statuses) between runs. Everything is keyed by invoice number so a
// snapshot survives re-ingestion of the dataset in a different order.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"issaudit/internal/logger"
	"issaudit/pkg/models"
)

// Version is written into every snapshot.
const Version = 1

var (
	// ErrUnknownMotive is returned when a saved group carries a motive kind this build does not know.
	ErrUnknownMotive = errors.New("unknown group motive")
	// ErrUnsupportedVersion is returned by Load for snapshots from a newer format.
	ErrUnsupportedVersion = errors.New("unsupported session version")
)

// GroupState is the saved form of one AssessmentGroup.
type GroupState struct {
	ID             string                            `json:"id"`
	Motive         models.LabelEnvelope              `json:"motive"`
	InvoiceNumbers []string                          `json:"invoice_numbers"`
	CorrectRate    *decimal.Decimal                  `json:"correct_rate,omitempty"`
	FinalAmount    *decimal.Decimal                  `json:"final_amount,omitempty"`
	MonthRates     map[models.Period]decimal.Decimal `json:"month_rates,omitempty"`
	FiscalYear     int                               `json:"fiscal_year,omitempty"`
	Text           string                            `json:"text,omitempty"`
}

// Snapshot is the serializable review state.
type Snapshot struct {
	Version  int                            `json:"version"`
	SavedAt  time.Time                      `json:"saved_at"`
	Groups   []GroupState                   `json:"groups"`
	Statuses map[string]models.ManualStatus `json:"manual_statuses,omitempty"`
}

// Capture builds a snapshot of groups and of every invoice whose manual status
// differs from none.
func Capture(groups []*models.AssessmentGroup, invoices []*models.InvoiceRecord) *Snapshot {
	s := &Snapshot{
		Version:  Version,
		SavedAt:  time.Now().UTC(),
		Groups:   make([]GroupState, 0, len(groups)),
		Statuses: make(map[string]models.ManualStatus),
	}
	for _, g := range groups {
		state := GroupState{
			ID:             g.ID,
			InvoiceNumbers: append([]string(nil), g.InvoiceNumbers...),
			CorrectRate:    g.CorrectRate,
			FinalAmount:    g.FinalAmount,
			MonthRates:     g.MonthRates,
			FiscalYear:     g.FiscalYear,
			Text:           g.Text,
		}
		if g.Motive != nil {
			state.Motive = models.Envelope(g.Motive)
		}
		s.Groups = append(s.Groups, state)
	}
	for _, inv := range invoices {
		if inv.ManualStatus != "" && inv.ManualStatus != models.ManualNone {
			s.Statuses[inv.Number] = inv.ManualStatus
		}
	}
	return s
}

// Restore rebuilds the groups of s against invoices. Invoice numbers absent
// from invoices are logged and dropped. Manual statuses are applied to the
// matching invoices, and every grouped invoice gets its GroupID set.
func Restore(s *Snapshot, invoices []*models.InvoiceRecord) ([]*models.AssessmentGroup, error) {
	const op = "Restore"
	log := logger.WithComponent("session")

	byNumber := make(map[string]*models.InvoiceRecord, len(invoices))
	for _, inv := range invoices {
		byNumber[inv.Number] = inv
	}

	for number, status := range s.Statuses {
		inv, ok := byNumber[number]
		if !ok {
			log.Warn().Str("invoice", number).Msg("Manual status for unknown invoice dropped")
			continue
		}
		inv.ManualStatus = status
	}

	groups := make([]*models.AssessmentGroup, 0, len(s.Groups))
	for _, state := range s.Groups {
		motive, err := state.Motive.Label()
		if err != nil {
			return nil, fmt.Errorf("%s: group %s: %w: %w", op, state.ID, ErrUnknownMotive, err)
		}

		g := &models.AssessmentGroup{
			ID:          state.ID,
			Motive:      motive,
			CorrectRate: state.CorrectRate,
			FinalAmount: state.FinalAmount,
			MonthRates:  state.MonthRates,
			FiscalYear:  state.FiscalYear,
			Text:        state.Text,
		}

		var dropped []string
		for _, number := range state.InvoiceNumbers {
			inv, ok := byNumber[number]
			if !ok {
				dropped = append(dropped, number)
				continue
			}
			inv.GroupID = g.ID
			g.InvoiceNumbers = append(g.InvoiceNumbers, number)
		}
		if len(dropped) > 0 {
			log.Warn().
				Str("group_id", g.ID).
				Strs("invoices", dropped).
				Msg("Dropped invoices missing from the dataset")
		}

		groups = append(groups, g)
	}

	log.Info().
		Int("groups", len(groups)).
		Int("manual_statuses", len(s.Statuses)).
		Msg("Session restored")

	return groups, nil
}

// Save writes s as indented JSON.
func Save(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("Save: failed to encode session: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(r io.Reader) (*Snapshot, error) {
	const op = "Load"

	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: failed to decode session: %w", op, err)
	}
	if s.Version > Version {
		return nil, fmt.Errorf("%s: %w: %d", op, ErrUnsupportedVersion, s.Version)
	}
	return &s, nil
}
