package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Readiness section keys, stable for API consumers.
const (
	SectionGrowth     = "growth"
	SectionCapacity   = "capacity"
	SectionCollection = "collection"
	SectionResults    = "results"
	SectionPersonnel  = "personnel"
	SectionExpenses   = "expenses"
)

// allocationTolerance is how far personnel allocations may drift from summing
// to exactly 100 before finalization is blocked.
var allocationTolerance = decimal.NewFromFloat(0.01)

// BudgetSnapshot is the finalization view over every entry type. The caller
// assembles it from one consistent read of the budget.
type BudgetSnapshot struct {
	Growth     []GrowthCheck
	Capacity   []CapacityCheck
	Collection []CollectionCheck
	Results    []ResultCheck
	Personnel  []PersonnelCheck
	Expenses   []ExpenseCheck
}

type GrowthCheck struct {
	ProductName   string
	BudgetedValue *decimal.Decimal
}

type CapacityCheck struct {
	ProductName    string
	BudgetedIncome *decimal.Decimal
}

type CollectionCheck struct {
	ProductName        string
	AvgPaymentPerMonth decimal.Decimal
}

type ResultCheck struct {
	ProductName    string
	SelectedMethod *ResultMethod
	ManualOverride *decimal.Decimal
}

type PersonnelCheck struct {
	Name          string
	AllocationPct decimal.Decimal
}

type ExpenseCheck struct {
	Category string
	Amount   decimal.Decimal
}

// Readiness is the finalization gate result: a budget may only be finalized
// when the error map is empty.
type Readiness struct {
	IsReady bool                `json:"is_ready"`
	Errors  map[string][]string `json:"errors"`
}

// CheckReadiness collects every blocking error per section. It never mutates
// anything and never fails; an unfinishable budget simply reports why.
func CheckReadiness(s BudgetSnapshot) Readiness {
	errs := make(map[string][]string)
	add := func(section, msg string) {
		errs[section] = append(errs[section], msg)
	}

	for _, g := range s.Growth {
		if g.BudgetedValue == nil {
			add(SectionGrowth, fmt.Sprintf("product %s has no budgeted growth value", g.ProductName))
		}
	}

	for _, c := range s.Capacity {
		if c.BudgetedIncome == nil {
			add(SectionCapacity, fmt.Sprintf("product %s capacity income is not yet estimated", c.ProductName))
		}
	}

	for _, c := range s.Collection {
		if c.AvgPaymentPerMonth.IsZero() {
			add(SectionCollection, fmt.Sprintf("product %s has no average payment per month", c.ProductName))
		}
	}

	for _, r := range s.Results {
		if r.SelectedMethod == nil {
			add(SectionResults, fmt.Sprintf("product %s has no selected result method", r.ProductName))
			continue
		}
		if *r.SelectedMethod == ResultMethodManual && r.ManualOverride == nil {
			add(SectionResults, fmt.Sprintf("product %s selected manual without an override value", r.ProductName))
		}
	}

	if len(s.Personnel) > 0 {
		sum := decimal.Zero
		for _, p := range s.Personnel {
			sum = sum.Add(p.AllocationPct)
		}
		if sum.Sub(hundred).Abs().GreaterThan(allocationTolerance) {
			add(SectionPersonnel, fmt.Sprintf("personnel allocations sum to %s, expected 100", sum.String()))
		}
	}

	for _, e := range s.Expenses {
		if e.Amount.IsNegative() {
			add(SectionExpenses, fmt.Sprintf("expense category %s has a negative amount", e.Category))
		}
	}

	return Readiness{IsReady: len(errs) == 0, Errors: errs}
}
