package reconciliation_test

import (
	"fmt"
	"log"
	"time"

	"issaudit/internal/ledger"
	"issaudit/internal/reconciliation"
	"issaudit/pkg/models"
)

// Example reconciles one underpaid invoice against a March receipt.
func Example() {
	inv := &models.InvoiceRecord{
		Number:        "1001",
		IssueDate:     time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC),
		GrossValue:    dec("1000"),
		DeclaredRate:  dec("2"),
		ReferenceRate: dec("5"),
		PaymentStatus: models.PaymentUnpaid,
		Regime:        models.RegimeNormal,
		Nature:        models.NatureLocal,
	}
	group := &models.AssessmentGroup{
		ID:             "rate-2-5",
		Motive:         models.IncorrectRate{Declared: dec("2"), Correct: dec("5")},
		InvoiceNumbers: []string{"1001"},
	}

	// Receipts settle ad-hoc credit for their month only
	credits := ledger.New(ledger.BuildSnapshot([]ledger.Receipt{
		{Period: models.Period{Year: 2023, Month: time.March}, Value: dec("30"), Code: "R1", TaxType: ledger.TaxTypeNormalISS},
	}, nil))

	result, err := reconciliation.NewEngine().Run([]*models.AssessmentGroup{group}, []*models.InvoiceRecord{inv}, credits)
	if err != nil {
		log.Fatal(err)
	}

	for _, line := range result.Groups[0].Lines {
		fmt.Printf("%s at %s%%: due %s, credited %s, owed %s\n",
			line.Period, line.Rate, line.NetDue.StringFixed(2),
			line.AdHocConsumed.StringFixed(2), line.Owed.StringFixed(2))
	}

	summary := reconciliation.BuildSummary(result, nil)
	fmt.Printf("Total: %s\n", summary.Total.StringFixed(2))

	// Output:
	// 2023-03 at 5%: due 50.00, credited 30.00, owed 20.00
	// Total: 20.00
}
