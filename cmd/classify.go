package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"issaudit/internal/logger"
	"issaudit/internal/rules"
	"issaudit/pkg/models"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <dataset.json>",
	Short: "Label invoices with ISS infractions and group them into assessments",
	Long: `Classify every invoice of a JSON dataset against the activity reference
table and the taxpayer profile, then group labelled invoices by their primary
motive.

Invoices marked buyer_location or ignored by the reviewer are left out of the
groups. Paid invoices past decadence lose their labels; unpaid invoices past
prescription are flagged and not assessed.`,
	Example: `  # Classify with today's statute clock
  issaudit classify audit.json

  # Freeze the clock and skip the withholding check
  issaudit classify audit.json --today 2024-06-01 --disable withholding.verify

  # Save the report to a file
  issaudit classify audit.json -o labels.json`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	addAuditFlags(classifyCmd)
	classifyCmd.Flags().String("save-session", "", "Write groups and manual statuses to this session file")
}

// ClassifyOutput is the JSON document printed by classify.
type ClassifyOutput struct {
	Report   rules.Report    `json:"report"`
	Invoices []InvoiceOutput `json:"invoices"`
	Groups   []GroupOutput   `json:"groups"`
}

// InvoiceOutput is one classified invoice.
type InvoiceOutput struct {
	Number        string                 `json:"number"`
	Period        models.Period          `json:"period"`
	ReferenceRate decimal.Decimal        `json:"reference_rate"`
	LegalStatus   models.LegalStatus     `json:"legal_status"`
	ManualStatus  models.ManualStatus    `json:"manual_status"`
	GroupID       string                 `json:"group_id,omitempty"`
	Labels        []models.LabelEnvelope `json:"labels"`
}

// GroupOutput is one assessment group.
type GroupOutput struct {
	ID       string      `json:"id"`
	Kind     models.Kind `json:"kind"`
	Motive   string      `json:"motive"`
	Invoices []string    `json:"invoices"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("classify")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	run, err := classifyDataset(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	out := ClassifyOutput{Report: run.report}
	for _, inv := range run.invoices {
		envs := make([]models.LabelEnvelope, 0, len(inv.Labels))
		for _, l := range inv.Labels {
			envs = append(envs, models.Envelope(l))
		}
		out.Invoices = append(out.Invoices, InvoiceOutput{
			Number:        inv.Number,
			Period:        inv.Period(),
			ReferenceRate: inv.ReferenceRate,
			LegalStatus:   inv.LegalStatus,
			ManualStatus:  inv.ManualStatus,
			GroupID:       inv.GroupID,
			Labels:        envs,
		})
	}
	for _, g := range run.groups {
		out.Groups = append(out.Groups, GroupOutput{
			ID:       g.ID,
			Kind:     g.Motive.Kind(),
			Motive:   g.Motive.String(),
			Invoices: g.InvoiceNumbers,
		})
	}

	if path, _ := cmd.Flags().GetString("save-session"); path != "" {
		if err := saveSession(path, run.groups, run.invoices); err != nil {
			return err
		}
		log.Info().Str("session", path).Msg("Session saved")
	}

	return writeJSON(cmd, out)
}
