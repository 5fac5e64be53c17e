package calculation

import (
	"math"

	"github.com/shopspring/decimal"
)

// degenerateEpsilon guards least-squares denominators; below it the fit has no
// usable slope and the calculator falls back to the last observed value.
const degenerateEpsilon = 1e-9

// ProjectTrendline fits the requested curve over up to three historical yearly
// values and extrapolates one year forward. Nil and non-positive values are
// filtered out first. The result is never negative and the function never
// fails: with fewer than two usable points it returns the last usable value,
// or zero when there is none.
func ProjectTrendline(history []*decimal.Decimal, trendlineType TrendlineType) decimal.Decimal {
	points := make([]float64, 0, len(history))
	for _, v := range history {
		if v == nil || !v.IsPositive() {
			continue
		}
		f, _ := v.Float64()
		points = append(points, f)
	}

	if len(points) == 0 {
		return decimal.Zero
	}
	if len(points) < 2 {
		return decimal.NewFromFloat(points[len(points)-1])
	}

	var projected float64
	switch trendlineType {
	case TrendlineTypeLogarithmic:
		projected = projectLogarithmic(points)
	case TrendlineTypePolynomial:
		projected = projectPolynomial(points)
	default:
		projected = projectLinear(points)
	}

	if projected < 0 {
		projected = 0
	}
	return decimal.NewFromFloat(projected).Round(4)
}

// ordinary least squares of y = m*x + b over x = 1..n, evaluated at x = n+1
func projectLinear(points []float64) float64 {
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range points {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < degenerateEpsilon {
		return points[len(points)-1]
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return slope*(n+1) + intercept
}

// least squares of y = a*ln(x) + b over x = 1..n, evaluated at x = n+1
func projectLogarithmic(points []float64) float64 {
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range points {
		x := math.Log(float64(i + 1))
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < degenerateEpsilon {
		return points[len(points)-1]
	}
	a := (n*sumXY - sumX*sumY) / denom
	b := (sumY - a*sumX) / n
	return a*math.Log(n+1) + b
}

// quadratic through the first three points at x = 1,2,3, evaluated at x = 4.
// For equally spaced abscissae the Lagrange form collapses to
// y(4) = y1 - 3*y2 + 3*y3. Fewer than three points fall back to the linear fit.
func projectPolynomial(points []float64) float64 {
	if len(points) < 3 {
		return projectLinear(points)
	}
	return points[0] - 3*points[1] + 3*points[2]
}
