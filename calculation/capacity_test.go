package calculation

import (
	"testing"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
)

func TestValidateHire(t *testing.T) {
	cases := []struct {
		name    string
		hire    Hire
		wantErr bool
	}{
		{"january ok", Hire{Month: 1, Count: dec(1)}, false},
		{"december ok", Hire{Month: 12, Count: dec(3)}, false},
		{"month zero", Hire{Month: 0, Count: dec(1)}, true},
		{"month thirteen", Hire{Month: 13, Count: dec(1)}, true},
		{"zero count", Hire{Month: 6, Count: dec(0)}, true},
		{"negative count", Hire{Month: 6, Count: dec(-2)}, true},
	}
	for _, tc := range cases {
		err := ValidateHire(tc.hire)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if tc.wantErr && !utils.IsValidationError(err) {
			t.Fatalf("%s: expected ValidationError, got %T", tc.name, err)
		}
	}
}

func TestWeightedHeadcount(t *testing.T) {
	cases := []struct {
		name      string
		headcount float64
		hires     []Hire
		expected  float64
	}{
		{"no hires", 5, nil, 5},
		{"january hire counts fully", 0, []Hire{{Month: 1, Count: dec(2)}}, 2},
		{"december hire counts one twelfth", 0, []Hire{{Month: 12, Count: dec(1)}}, 1.0 / 12},
		{"july hire counts half", 2, []Hire{{Month: 7, Count: dec(1)}}, 2.5},
		{"multiple hires", 3, []Hire{{Month: 4, Count: dec(2)}, {Month: 10, Count: dec(4)}}, 3 + 2*9.0/12 + 4*3.0/12},
	}
	for _, tc := range cases {
		got := WeightedHeadcount(dec(tc.headcount), tc.hires)
		if got.Sub(dec(tc.expected)).Abs().GreaterThan(dec(0.0001)) {
			t.Fatalf("%s: expected %v, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestCapacityIncome(t *testing.T) {
	weighted := WeightedHeadcount(dec(2), []Hire{{Month: 7, Count: dec(1)}})
	assertClose(t, weighted, 2.5)

	income := CapacityIncome(dec(1000), weighted, decPtr(50), decPtr(80))
	if income == nil {
		t.Fatal("expected an income value")
	}
	assertClose(t, *income, 100000)
}

func TestCapacityIncome_NotYetEstimated(t *testing.T) {
	if got := CapacityIncome(dec(1000), dec(2), nil, decPtr(80)); got != nil {
		t.Fatalf("expected nil income without hourly price, got %s", got.String())
	}
	if got := CapacityIncome(dec(1000), dec(2), decPtr(50), nil); got != nil {
		t.Fatalf("expected nil income without billable pct, got %s", got.String())
	}

	// estimated as zero is a real answer, not "missing"
	zero := CapacityIncome(dec(1000), dec(2), decPtr(0), decPtr(80))
	if zero == nil || !zero.IsZero() {
		t.Fatalf("expected zero income, got %v", zero)
	}
}
