package calculation

import (
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// Candidates holds the per-product values produced by the three estimation
// methods. A nil value means that method has not produced an estimate yet.
type Candidates struct {
	Growth     *decimal.Decimal `json:"growth"`
	Capacity   *decimal.Decimal `json:"capacity"`
	Collection *decimal.Decimal `json:"collection"`
}

func (c Candidates) present() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, 3)
	for _, v := range []*decimal.Decimal{c.Growth, c.Capacity, c.Collection} {
		if v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// AverageValue is the arithmetic mean of the present candidates, zero when
// none are present.
func AverageValue(c Candidates) decimal.Decimal {
	values := c.present()
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// Reconcile resolves the committed value for one product. The read-only
// methods mirror their candidate (absent candidate counts as zero); Manual
// requires an override value. Candidates are never mutated.
func Reconcile(c Candidates, method ResultMethod, manualOverride *decimal.Decimal) (average, final decimal.Decimal, err error) {
	average = AverageValue(c)
	switch method {
	case ResultMethodGrowth:
		final = utils.DereferencePtr(c.Growth)
	case ResultMethodCapacity:
		final = utils.DereferencePtr(c.Capacity)
	case ResultMethodCollection:
		final = utils.DereferencePtr(c.Collection)
	case ResultMethodAverage:
		final = average
	case ResultMethodManual:
		if manualOverride == nil {
			return decimal.Zero, decimal.Zero, utils.NewValidationError("manual selection requires an override value")
		}
		final = *manualOverride
	default:
		return decimal.Zero, decimal.Zero, utils.NewValidationError("invalid result method: " + string(method))
	}
	return average, final, nil
}

// MethodTotals are budget-wide sums per estimation method plus the committed
// final total. Absent candidates count as zero.
type MethodTotals struct {
	Growth     decimal.Decimal `json:"growth"`
	Capacity   decimal.Decimal `json:"capacity"`
	Collection decimal.Decimal `json:"collection"`
	Average    decimal.Decimal `json:"average"`
	Final      decimal.Decimal `json:"final"`
}

// ReconciledRow is one product's candidates plus its committed selection.
type ReconciledRow struct {
	Candidates     Candidates
	Method         ResultMethod
	ManualOverride *decimal.Decimal
}

// Totals aggregates candidate and final values across a budget's products.
// Rows without a valid selection contribute to the method columns but not to
// the final total.
func Totals(rows []ReconciledRow) MethodTotals {
	var t MethodTotals
	for _, row := range rows {
		t.Growth = t.Growth.Add(utils.DereferencePtr(row.Candidates.Growth))
		t.Capacity = t.Capacity.Add(utils.DereferencePtr(row.Candidates.Capacity))
		t.Collection = t.Collection.Add(utils.DereferencePtr(row.Candidates.Collection))
		t.Average = t.Average.Add(AverageValue(row.Candidates))

		_, final, err := Reconcile(row.Candidates, row.Method, row.ManualOverride)
		if err != nil {
			continue
		}
		t.Final = t.Final.Add(final)
	}
	return t
}
