package calculation

import (
	"fmt"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// monthlyPctTolerance is how far a pattern's 12 monthly percentages may drift
// from summing to exactly 100 before the pattern is rejected.
var monthlyPctTolerance = decimal.NewFromInt(1)

// PaymentPattern is a payment-timing template: contractPercentage of the
// product's contracts pay according to the 12 monthly percentages.
type PaymentPattern struct {
	Name               string            `json:"name"`
	ContractPercentage decimal.Decimal   `json:"contract_percentage"`
	MonthlyPercentages []decimal.Decimal `json:"monthly_percentages"`
}

func ValidatePaymentPattern(p PaymentPattern) error {
	if p.ContractPercentage.IsNegative() || p.ContractPercentage.GreaterThan(hundred) {
		return utils.NewValidationError("contract percentage must be between 0 and 100")
	}
	if len(p.MonthlyPercentages) != 12 {
		return utils.NewValidationError(fmt.Sprintf("payment pattern needs 12 monthly percentages, got %d", len(p.MonthlyPercentages)))
	}
	sum := decimal.Zero
	for _, pct := range p.MonthlyPercentages {
		sum = sum.Add(pct)
	}
	if sum.Sub(hundred).Abs().GreaterThan(monthlyPctTolerance) {
		return utils.NewValidationError("monthly percentages must sum to 100, got " + sum.String())
	}
	return nil
}

// ValidatePatternSet rejects a set whose contract percentages overlap past
// 100%. They are NOT required to reach 100: the uncovered remainder keeps last
// year's collection behavior (see BudgetedCollectionMonths).
func ValidatePatternSet(patterns []PaymentPattern) error {
	covered := decimal.Zero
	for _, p := range patterns {
		if err := ValidatePaymentPattern(p); err != nil {
			return err
		}
		covered = covered.Add(p.ContractPercentage)
	}
	if covered.GreaterThan(hundred) {
		return utils.NewValidationError("contract percentages across patterns exceed 100, got " + covered.String())
	}
	return nil
}

// CollectionMonths is how many months the average balance takes to collect at
// the average monthly payment rate. Zero payment rate means zero months, not
// an error.
func CollectionMonths(avgBalance, avgPaymentPerMonth decimal.Decimal) decimal.Decimal {
	if avgPaymentPerMonth.IsZero() {
		return decimal.Zero
	}
	return avgBalance.Div(avgPaymentPerMonth)
}

// PatternMonths is the expected collection horizon implied by a pattern's
// monthly distribution: the percentage-weighted month index.
func PatternMonths(p PaymentPattern) decimal.Decimal {
	months := decimal.Zero
	for i, pct := range p.MonthlyPercentages {
		month := decimal.NewFromInt(int64(i + 1))
		months = months.Add(month.Mul(pct).Div(hundred))
	}
	return months
}

// BudgetedCollectionMonths blends last year's observed collection months with
// the declared payment patterns, weighted by each pattern's contract share.
// Contracts not covered by any pattern keep last year's behavior. With no
// patterns the figure passes through unchanged.
func BudgetedCollectionMonths(lastYearMonths decimal.Decimal, patterns []PaymentPattern) decimal.Decimal {
	if len(patterns) == 0 {
		return lastYearMonths
	}
	covered := decimal.Zero
	months := decimal.Zero
	for _, p := range patterns {
		weight := p.ContractPercentage.Div(hundred)
		months = months.Add(PatternMonths(p).Mul(weight))
		covered = covered.Add(weight)
	}
	remainder := decimal.NewFromInt(1).Sub(covered)
	if remainder.IsPositive() {
		months = months.Add(lastYearMonths.Mul(remainder))
	}
	return months
}

// CollectionIncome annualizes the end balance over the projected collection
// period. Zero months yields zero income.
func CollectionIncome(endBalance, projectedCollectionMonths decimal.Decimal) decimal.Decimal {
	if projectedCollectionMonths.IsZero() {
		return decimal.Zero
	}
	return endBalance.Div(projectedCollectionMonths).Mul(twelve)
}

// AverageBalance is the midpoint of the beginning and end receivable balances.
func AverageBalance(beginningBalance, endBalance decimal.Decimal) decimal.Decimal {
	return beginningBalance.Add(endBalance).Div(decimal.NewFromInt(2))
}
