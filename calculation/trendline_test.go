package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func assertClose(t *testing.T, got decimal.Decimal, expected float64) {
	t.Helper()
	if got.Sub(dec(expected)).Abs().GreaterThan(dec(0.01)) {
		t.Fatalf("expected ~%v, got %s", expected, got.String())
	}
}

func TestProjectTrendline_InsufficientHistory(t *testing.T) {
	cases := []struct {
		name     string
		history  []*decimal.Decimal
		expected float64
	}{
		{"empty", nil, 0},
		{"all nil", []*decimal.Decimal{nil, nil, nil}, 0},
		{"zeros filtered", []*decimal.Decimal{decPtr(0), decPtr(0)}, 0},
		{"single value", []*decimal.Decimal{decPtr(120)}, 120},
		{"single among nils", []*decimal.Decimal{nil, decPtr(75), nil}, 75},
	}
	for _, tc := range cases {
		for _, ttype := range []TrendlineType{TrendlineTypeLinear, TrendlineTypeLogarithmic, TrendlineTypePolynomial} {
			got := ProjectTrendline(tc.history, ttype)
			if got.Sub(dec(tc.expected)).Abs().GreaterThan(dec(0.0001)) {
				t.Fatalf("%s/%s: expected %v, got %s", tc.name, ttype, tc.expected, got.String())
			}
		}
	}
}

func TestProjectTrendline_LinearGrowth(t *testing.T) {
	history := []*decimal.Decimal{decPtr(100), decPtr(150), decPtr(200)}

	assertClose(t, ProjectTrendline(history, TrendlineTypeLinear), 250)
	// quadratic through collinear points degenerates to the same line
	assertClose(t, ProjectTrendline(history, TrendlineTypePolynomial), 250)
}

func TestProjectTrendline_NeverNegative(t *testing.T) {
	declining := []*decimal.Decimal{decPtr(300), decPtr(150), decPtr(10)}
	for _, ttype := range []TrendlineType{TrendlineTypeLinear, TrendlineTypeLogarithmic, TrendlineTypePolynomial} {
		got := ProjectTrendline(declining, ttype)
		if got.IsNegative() {
			t.Fatalf("%s: projection went negative: %s", ttype, got.String())
		}
	}
}

func TestProjectTrendline_LogarithmicDamping(t *testing.T) {
	history := []*decimal.Decimal{decPtr(100), decPtr(150), decPtr(200)}
	got := ProjectTrendline(history, TrendlineTypeLogarithmic)

	// a log curve through growing data keeps growing but slower than the line
	if !got.GreaterThan(dec(200)) {
		t.Fatalf("expected log projection above last value, got %s", got.String())
	}
	if !got.LessThan(dec(250)) {
		t.Fatalf("expected log projection below linear projection, got %s", got.String())
	}
}

func TestProjectTrendline_PolynomialFallsBackToLinear(t *testing.T) {
	twoPoints := []*decimal.Decimal{decPtr(100), decPtr(150)}

	poly := ProjectTrendline(twoPoints, TrendlineTypePolynomial)
	linear := ProjectTrendline(twoPoints, TrendlineTypeLinear)
	if !poly.Equal(linear) {
		t.Fatalf("expected polynomial to fall back to linear (%s), got %s", linear.String(), poly.String())
	}
	assertClose(t, poly, 200)
}

func TestProjectTrendline_QuadraticCurvature(t *testing.T) {
	// y = x^2: 1, 4, 9 -> 16
	history := []*decimal.Decimal{decPtr(1), decPtr(4), decPtr(9)}
	assertClose(t, ProjectTrendline(history, TrendlineTypePolynomial), 16)
}

func TestProjectTrendline_FlatHistory(t *testing.T) {
	history := []*decimal.Decimal{decPtr(500), decPtr(500), decPtr(500)}
	for _, ttype := range []TrendlineType{TrendlineTypeLinear, TrendlineTypeLogarithmic, TrendlineTypePolynomial} {
		assertClose(t, ProjectTrendline(history, ttype), 500)
	}
}
