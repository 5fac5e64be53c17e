package calculation

import (
	"fmt"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	twelve   = decimal.NewFromInt(12)
	thirteen = decimal.NewFromInt(13)
	hundred  = decimal.NewFromInt(100)
)

// Hire is a planned mid-year hire: count people joining in the given month.
type Hire struct {
	Month int             `json:"month"`
	Count decimal.Decimal `json:"count"`
}

func ValidateHire(h Hire) error {
	if h.Month < 1 || h.Month > 12 {
		return utils.NewValidationError(fmt.Sprintf("hire month must be between 1 and 12, got %d", h.Month))
	}
	if !h.Count.IsPositive() {
		return utils.NewValidationError("hire count must be positive")
	}
	return nil
}

// WeightedHeadcount prorates each hire by its employed share of the year:
// a month-1 hire contributes its full count (12/12), a month-12 hire 1/12.
func WeightedHeadcount(headcount decimal.Decimal, hires []Hire) decimal.Decimal {
	total := headcount
	for _, h := range hires {
		monthsEmployed := thirteen.Sub(decimal.NewFromInt(int64(h.Month)))
		total = total.Add(h.Count.Mul(monthsEmployed).Div(twelve))
	}
	return total
}

// CapacityIncome is availableHours x weightedHeadcount x hourlyPrice x pct/100.
// A nil hourlyPrice or billablePct yields nil, meaning "not yet estimated" —
// distinct from an estimate of zero.
func CapacityIncome(availableHours, weightedHeadcount decimal.Decimal, hourlyPrice, billablePct *decimal.Decimal) *decimal.Decimal {
	if hourlyPrice == nil || billablePct == nil {
		return nil
	}
	income := availableHours.
		Mul(weightedHeadcount).
		Mul(*hourlyPrice).
		Mul(billablePct.Div(hundred))
	return &income
}
