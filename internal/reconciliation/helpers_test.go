package reconciliation_test

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"issaudit/internal/logger"
	"issaudit/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

var (
	march = models.Period{Year: 2023, Month: time.March}
	april = models.Period{Year: 2023, Month: time.April}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// unpaidInvoice is a local 1000.00 service issued in March 2023 declared at
// 2% against a 5% reference rate.
func unpaidInvoice(number string) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		Number:        number,
		IssueDate:     time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC),
		GrossValue:    dec("1000"),
		DeclaredRate:  dec("2"),
		ReferenceRate: dec("5"),
		ActivityCode:  "0101",
		PaymentStatus: models.PaymentUnpaid,
		Regime:        models.RegimeNormal,
		Nature:        models.NatureLocal,
		ManualStatus:  models.ManualNone,
		Labels:        []models.Label{models.IncorrectRate{Declared: dec("2"), Correct: dec("5")}},
	}
}

func rateGroup(id string, numbers ...string) *models.AssessmentGroup {
	return &models.AssessmentGroup{
		ID:             id,
		Motive:         models.IncorrectRate{Declared: dec("2"), Correct: dec("5")},
		InvoiceNumbers: numbers,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("want %s, got %s %v", want, got.String(), msgAndArgs)
	}
}
