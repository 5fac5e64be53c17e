package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/budget_backend/calculation"
	"bitbucket.org/mmdatafocus/budget_backend/models"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// every entry model gates its mutations on the owning budget's status
var (
	_ utils.ModelEditGuard = models.GrowthEntry{}
	_ utils.ModelEditGuard = models.CapacityEntry{}
	_ utils.ModelEditGuard = models.CollectionEntry{}
	_ utils.ModelEditGuard = models.ResultEntry{}
	_ utils.ModelEditGuard = models.PersonnelEntry{}
	_ utils.ModelEditGuard = models.ExpenseEntry{}
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestBudgetEditable(t *testing.T) {
	for _, status := range []models.BudgetStatus{models.BudgetStatusDraft, models.BudgetStatusInProgress} {
		budget := models.Budget{Status: status}
		if err := budget.Editable(); err != nil {
			t.Fatalf("%s budget should be editable: %v", status, err)
		}
	}

	finalized := models.Budget{Status: models.BudgetStatusFinalized}
	err := finalized.Editable()
	if err == nil {
		t.Fatal("finalized budget must not be editable")
	}
	if !utils.IsIllegalStateError(err) {
		t.Fatalf("expected IllegalStateError, got %T", err)
	}
}

func TestBudgetStatusScan(t *testing.T) {
	var status models.BudgetStatus
	if err := status.Scan("InProgress"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != models.BudgetStatusInProgress {
		t.Fatalf("expected InProgress, got %s", status)
	}
	if err := status.Scan("Archived"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestCapacityEntryDerivations(t *testing.T) {
	entry := models.CapacityEntry{
		LastYearAvailableHours: dec(1600),
		NextYearHeadcount:      dec(2),
		NextYearAvgHourlyPrice: decPtr(50),
		NextYearBillablePct:    decPtr(50),
		Hires: []*models.CapacityHire{
			{HireMonth: 7, HireCount: dec(1)},
		},
	}

	// 2 + 1*(13-7)/12 = 2.5
	weighted := entry.WeightedHeadcount()
	if !weighted.Equal(dec(2.5)) {
		t.Fatalf("expected weighted headcount 2.5, got %s", weighted.String())
	}

	income := entry.BudgetedIncome()
	if income == nil {
		t.Fatal("expected an income estimate")
	}
	if !income.Equal(dec(100000)) {
		t.Fatalf("expected income 100000, got %s", income.String())
	}

	entry.NextYearAvgHourlyPrice = nil
	if entry.BudgetedIncome() != nil {
		t.Fatal("missing hourly price must yield nil income, not zero")
	}
}

func TestCollectionEntryDerivations(t *testing.T) {
	entry := models.CollectionEntry{
		BeginningBalance:   dec(10000),
		EndBalance:         dec(24000),
		AvgBalance:         dec(12000),
		AvgPaymentPerMonth: dec(2000),
	}

	months := entry.LastYearCollectionMonths()
	if !months.Equal(dec(6)) {
		t.Fatalf("expected 6 collection months, got %s", months.String())
	}

	// no patterns: budgeted months pass through
	if got := entry.BudgetedCollectionMonths(); !got.Equal(dec(6)) {
		t.Fatalf("expected budgeted months 6, got %s", got.String())
	}

	income := entry.BudgetedIncome()
	if !income.Equal(dec(48000)) {
		t.Fatalf("expected income 48000, got %s", income.String())
	}

	// a month-3 pattern covering all contracts shortens the horizon
	monthly := make([]decimal.Decimal, 12)
	monthly[2] = dec(100)
	entry.Patterns = []*models.CollectionPattern{
		{Name: "upfront", ContractPercentage: dec(100), MonthlyPercentages: monthly},
	}
	if got := entry.BudgetedCollectionMonths(); !got.Equal(dec(3)) {
		t.Fatalf("expected budgeted months 3, got %s", got.String())
	}
}

func TestResultEntryFinalValue(t *testing.T) {
	growth := calculation.ResultMethodGrowth
	entry := models.ResultEntry{
		ProductName:    "Consulting",
		GrowthValue:    decPtr(250),
		CapacityValue:  decPtr(100000),
		SelectedMethod: &growth,
	}

	final, err := entry.FinalValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !final.Equal(dec(250)) {
		t.Fatalf("expected final 250, got %s", final.String())
	}

	// average is derived from present candidates only
	avg := entry.AverageValue()
	if !avg.Equal(dec((250 + 100000) / 2.0)) {
		t.Fatalf("unexpected average: %s", avg.String())
	}

	entry.SelectedMethod = nil
	if _, err := entry.FinalValue(); err == nil {
		t.Fatal("entry without a selection must have no final value")
	}
}
