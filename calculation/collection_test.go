package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func evenPattern(contractPct float64) PaymentPattern {
	monthly := make([]decimal.Decimal, 12)
	// 8.33 x 11 + 8.37 = 100
	for i := range monthly {
		monthly[i] = dec(8.33)
	}
	monthly[11] = dec(8.37)
	return PaymentPattern{Name: "even", ContractPercentage: dec(contractPct), MonthlyPercentages: monthly}
}

func singleMonthPattern(name string, contractPct float64, month int) PaymentPattern {
	monthly := make([]decimal.Decimal, 12)
	monthly[month-1] = dec(100)
	return PaymentPattern{Name: name, ContractPercentage: dec(contractPct), MonthlyPercentages: monthly}
}

func TestCollectionMonths(t *testing.T) {
	assertClose(t, CollectionMonths(dec(12000), dec(2000)), 6)
	assertClose(t, CollectionMonths(dec(0), dec(2000)), 0)

	if got := CollectionMonths(dec(12000), dec(0)); !got.IsZero() {
		t.Fatalf("expected 0 months with zero payment rate, got %s", got.String())
	}
}

func TestCollectionIncome(t *testing.T) {
	assertClose(t, CollectionIncome(dec(24000), dec(6)), 48000)

	if got := CollectionIncome(dec(24000), dec(0)); !got.IsZero() {
		t.Fatalf("expected 0 income with zero months, got %s", got.String())
	}

	// income scales linearly with end balance for fixed months
	base := CollectionIncome(dec(10000), dec(4))
	doubled := CollectionIncome(dec(20000), dec(4))
	if !doubled.Equal(base.Mul(dec(2))) {
		t.Fatalf("expected linear scaling, got %s vs %s", base.String(), doubled.String())
	}
}

func TestAverageBalance(t *testing.T) {
	assertClose(t, AverageBalance(dec(10000), dec(14000)), 12000)
}

func TestValidatePaymentPattern(t *testing.T) {
	cases := []struct {
		name    string
		pattern PaymentPattern
		wantErr bool
	}{
		{"exact hundred", singleMonthPattern("m6", 50, 6), false},
		{"even spread within tolerance", evenPattern(100), false},
		{"contract pct zero", singleMonthPattern("m1", 0, 1), false},
		{"contract pct above hundred", singleMonthPattern("m1", 101, 1), true},
		{"contract pct negative", singleMonthPattern("m1", -1, 1), true},
	}
	for _, tc := range cases {
		err := ValidatePaymentPattern(tc.pattern)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestValidatePaymentPattern_SumTolerance(t *testing.T) {
	within := singleMonthPattern("m6", 50, 6)
	within.MonthlyPercentages[0] = dec(0.9) // sum 100.9, inside ±1
	if err := ValidatePaymentPattern(within); err != nil {
		t.Fatalf("sum 100.9 should be accepted: %v", err)
	}

	outside := singleMonthPattern("m6", 50, 6)
	outside.MonthlyPercentages[0] = dec(1.5) // sum 101.5, outside ±1
	if err := ValidatePaymentPattern(outside); err == nil {
		t.Fatal("sum 101.5 should be rejected")
	}

	short := singleMonthPattern("m6", 50, 6)
	short.MonthlyPercentages[5] = dec(98.5) // sum 98.5, outside ±1
	if err := ValidatePaymentPattern(short); err == nil {
		t.Fatal("sum 98.5 should be rejected")
	}
}

func TestValidatePatternSet(t *testing.T) {
	ok := []PaymentPattern{singleMonthPattern("a", 60, 3), singleMonthPattern("b", 40, 9)}
	if err := ValidatePatternSet(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overlapping := []PaymentPattern{singleMonthPattern("a", 70, 3), singleMonthPattern("b", 40, 9)}
	if err := ValidatePatternSet(overlapping); err == nil {
		t.Fatal("contract percentages over 100 should be rejected")
	}
}

func TestPatternMonths(t *testing.T) {
	// everything collected in month 6
	assertClose(t, PatternMonths(singleMonthPattern("m6", 100, 6)), 6)

	// half in month 2, half in month 10
	monthly := make([]decimal.Decimal, 12)
	monthly[1] = dec(50)
	monthly[9] = dec(50)
	split := PaymentPattern{Name: "split", ContractPercentage: dec(100), MonthlyPercentages: monthly}
	assertClose(t, PatternMonths(split), 6)
}

func TestBudgetedCollectionMonths(t *testing.T) {
	lastYear := dec(4)

	// no patterns: pass-through
	assertClose(t, BudgetedCollectionMonths(lastYear, nil), 4)

	// full coverage: pattern horizon replaces history
	assertClose(t, BudgetedCollectionMonths(lastYear, []PaymentPattern{singleMonthPattern("m6", 100, 6)}), 6)

	// partial coverage: uncovered contracts keep last year's behavior
	blended := BudgetedCollectionMonths(lastYear, []PaymentPattern{singleMonthPattern("m6", 50, 6)})
	assertClose(t, blended, 6*0.5+4*0.5)
}

func TestCollectionScenario(t *testing.T) {
	// avg balance 12000, payments 2000/month, end balance 24000
	lastYearMonths := CollectionMonths(dec(12000), dec(2000))
	assertClose(t, lastYearMonths, 6)

	budgetedMonths := BudgetedCollectionMonths(lastYearMonths, nil)
	assertClose(t, CollectionIncome(dec(24000), budgetedMonths), 48000)
}
