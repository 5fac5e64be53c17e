package calculation

// TrendlineType selects the curve fitted over historical yearly revenue.
type TrendlineType string

const (
	TrendlineTypeLinear      TrendlineType = "Linear"
	TrendlineTypeLogarithmic TrendlineType = "Logarithmic"
	TrendlineTypePolynomial  TrendlineType = "Polynomial"
)

func (t TrendlineType) Valid() bool {
	switch t {
	case TrendlineTypeLinear, TrendlineTypeLogarithmic, TrendlineTypePolynomial:
		return true
	}
	return false
}

// ResultMethod is the planner's committed choice per product. Only the Manual
// variant carries a payload (the override value).
type ResultMethod string

const (
	ResultMethodGrowth     ResultMethod = "Growth"
	ResultMethodCapacity   ResultMethod = "Capacity"
	ResultMethodCollection ResultMethod = "Collection"
	ResultMethodAverage    ResultMethod = "Average"
	ResultMethodManual     ResultMethod = "Manual"
)

func (m ResultMethod) Valid() bool {
	switch m {
	case ResultMethodGrowth, ResultMethodCapacity, ResultMethodCollection, ResultMethodAverage, ResultMethodManual:
		return true
	}
	return false
}
