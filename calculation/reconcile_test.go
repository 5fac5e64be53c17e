package calculation

import (
	"testing"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
)

func TestAverageValue(t *testing.T) {
	cases := []struct {
		name       string
		candidates Candidates
		expected   float64
	}{
		{"all present", Candidates{Growth: decPtr(100), Capacity: decPtr(200), Collection: decPtr(300)}, 200},
		{"two present", Candidates{Growth: decPtr(100), Collection: decPtr(300)}, 200},
		{"one present", Candidates{Capacity: decPtr(150)}, 150},
		{"none present", Candidates{}, 0},
	}
	for _, tc := range cases {
		got := AverageValue(tc.candidates)
		if got.Sub(dec(tc.expected)).Abs().GreaterThan(dec(0.0001)) {
			t.Fatalf("%s: expected %v, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestReconcile_MirrorsSelectedCandidate(t *testing.T) {
	candidates := Candidates{Growth: decPtr(250), Capacity: decPtr(100000), Collection: decPtr(48000)}

	cases := []struct {
		method   ResultMethod
		expected float64
	}{
		{ResultMethodGrowth, 250},
		{ResultMethodCapacity, 100000},
		{ResultMethodCollection, 48000},
		{ResultMethodAverage, (250 + 100000 + 48000) / 3.0},
	}
	for _, tc := range cases {
		average, final, err := Reconcile(candidates, tc.method, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.method, err)
		}
		assertClose(t, final, tc.expected)
		assertClose(t, average, (250+100000+48000)/3.0)
	}

	// candidates are never mutated by selection
	if !candidates.Growth.Equal(dec(250)) || !candidates.Capacity.Equal(dec(100000)) || !candidates.Collection.Equal(dec(48000)) {
		t.Fatal("candidates mutated by Reconcile")
	}
}

func TestReconcile_AbsentCandidateCountsAsZero(t *testing.T) {
	candidates := Candidates{Growth: decPtr(250)}
	_, final, err := Reconcile(candidates, ResultMethodCapacity, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !final.IsZero() {
		t.Fatalf("expected 0 for absent candidate, got %s", final.String())
	}
}

func TestReconcile_Manual(t *testing.T) {
	candidates := Candidates{Growth: decPtr(250)}

	_, final, err := Reconcile(candidates, ResultMethodManual, decPtr(999))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertClose(t, final, 999)

	_, _, err = Reconcile(candidates, ResultMethodManual, nil)
	if err == nil {
		t.Fatal("manual without override should be rejected")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestReconcile_InvalidMethod(t *testing.T) {
	_, _, err := Reconcile(Candidates{}, ResultMethod("Guesswork"), nil)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTotals(t *testing.T) {
	rows := []ReconciledRow{
		{
			Candidates: Candidates{Growth: decPtr(100), Capacity: decPtr(200), Collection: decPtr(300)},
			Method:     ResultMethodGrowth,
		},
		{
			Candidates: Candidates{Growth: decPtr(50), Collection: decPtr(150)},
			Method:     ResultMethodAverage,
		},
		{
			Candidates:     Candidates{Capacity: decPtr(400)},
			Method:         ResultMethodManual,
			ManualOverride: decPtr(500),
		},
	}

	totals := Totals(rows)
	assertClose(t, totals.Growth, 150)
	assertClose(t, totals.Capacity, 600)
	assertClose(t, totals.Collection, 450)
	assertClose(t, totals.Final, 100+100+500)
}

func TestTotals_SkipsUnselectedRows(t *testing.T) {
	rows := []ReconciledRow{
		{Candidates: Candidates{Growth: decPtr(100)}, Method: ResultMethodGrowth},
		{Candidates: Candidates{Growth: decPtr(900)}, Method: ResultMethod("")},
	}
	totals := Totals(rows)
	assertClose(t, totals.Growth, 1000)
	assertClose(t, totals.Final, 100)
}
