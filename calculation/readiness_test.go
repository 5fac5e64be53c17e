package calculation

import (
	"strings"
	"testing"
)

func readySnapshot() BudgetSnapshot {
	method := ResultMethodAverage
	return BudgetSnapshot{
		Growth:     []GrowthCheck{{ProductName: "Consulting", BudgetedValue: decPtr(250)}},
		Capacity:   []CapacityCheck{{ProductName: "Consulting", BudgetedIncome: decPtr(100000)}},
		Collection: []CollectionCheck{{ProductName: "Consulting", AvgPaymentPerMonth: dec(2000)}},
		Results:    []ResultCheck{{ProductName: "Consulting", SelectedMethod: &method}},
		Personnel: []PersonnelCheck{
			{Name: "Engineering", AllocationPct: dec(70)},
			{Name: "Sales", AllocationPct: dec(30)},
		},
		Expenses: []ExpenseCheck{{Category: "Rent", Amount: dec(12000)}},
	}
}

func TestCheckReadiness_CompleteBudget(t *testing.T) {
	readiness := CheckReadiness(readySnapshot())
	if !readiness.IsReady {
		t.Fatalf("expected ready, got errors: %v", readiness.Errors)
	}
	if len(readiness.Errors) != 0 {
		t.Fatalf("expected empty error map, got %v", readiness.Errors)
	}
}

func TestCheckReadiness_MissingSelectedMethod(t *testing.T) {
	snapshot := readySnapshot()
	snapshot.Results = []ResultCheck{{ProductName: "Consulting", SelectedMethod: nil}}

	readiness := CheckReadiness(snapshot)
	if readiness.IsReady {
		t.Fatal("expected not ready")
	}
	msgs := readiness.Errors[SectionResults]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "no selected result method") {
		t.Fatalf("expected a results error, got %v", readiness.Errors)
	}
}

func TestCheckReadiness_ManualWithoutOverride(t *testing.T) {
	snapshot := readySnapshot()
	manual := ResultMethodManual
	snapshot.Results = []ResultCheck{{ProductName: "Consulting", SelectedMethod: &manual}}

	readiness := CheckReadiness(snapshot)
	if readiness.IsReady {
		t.Fatal("expected not ready")
	}
	if len(readiness.Errors[SectionResults]) != 1 {
		t.Fatalf("expected one results error, got %v", readiness.Errors)
	}
}

func TestCheckReadiness_GrowthAndCapacityIncomplete(t *testing.T) {
	snapshot := readySnapshot()
	snapshot.Growth = []GrowthCheck{{ProductName: "Consulting", BudgetedValue: nil}}
	snapshot.Capacity = []CapacityCheck{{ProductName: "Consulting", BudgetedIncome: nil}}

	readiness := CheckReadiness(snapshot)
	if readiness.IsReady {
		t.Fatal("expected not ready")
	}
	if len(readiness.Errors[SectionGrowth]) != 1 {
		t.Fatalf("expected growth error, got %v", readiness.Errors)
	}
	if len(readiness.Errors[SectionCapacity]) != 1 {
		t.Fatalf("expected capacity error, got %v", readiness.Errors)
	}
}

func TestCheckReadiness_PersonnelAllocations(t *testing.T) {
	snapshot := readySnapshot()
	snapshot.Personnel = []PersonnelCheck{
		{Name: "Engineering", AllocationPct: dec(70)},
		{Name: "Sales", AllocationPct: dec(29)},
	}

	readiness := CheckReadiness(snapshot)
	if readiness.IsReady {
		t.Fatal("expected not ready with allocations summing to 99")
	}
	if len(readiness.Errors[SectionPersonnel]) != 1 {
		t.Fatalf("expected personnel error, got %v", readiness.Errors)
	}

	// no personnel entries at all is not a blocker
	snapshot.Personnel = nil
	if readiness = CheckReadiness(snapshot); !readiness.IsReady {
		t.Fatalf("expected ready without personnel entries, got %v", readiness.Errors)
	}
}

func TestCheckReadiness_NegativeExpense(t *testing.T) {
	snapshot := readySnapshot()
	snapshot.Expenses = []ExpenseCheck{{Category: "Rent", Amount: dec(-100)}}

	readiness := CheckReadiness(snapshot)
	if readiness.IsReady {
		t.Fatal("expected not ready with a negative expense")
	}
	if len(readiness.Errors[SectionExpenses]) != 1 {
		t.Fatalf("expected expenses error, got %v", readiness.Errors)
	}
}
