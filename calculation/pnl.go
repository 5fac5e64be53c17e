package calculation

import "github.com/shopspring/decimal"

// PnL is the budgeted profit-and-loss summary. Capital expenditure is reported
// alongside but never deducted from net profit.
type PnL struct {
	Revenue            decimal.Decimal `json:"revenue"`
	PersonnelCost      decimal.Decimal `json:"personnel_cost"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	GrossMargin        decimal.Decimal `json:"gross_margin"`
	OperatingExpenses  decimal.Decimal `json:"operating_expenses"`
	OperatingProfit    decimal.Decimal `json:"operating_profit"`
	OperatingMargin    decimal.Decimal `json:"operating_margin"`
	Taxes              decimal.Decimal `json:"taxes"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	NetMargin          decimal.Decimal `json:"net_margin"`
	CapitalExpenditure decimal.Decimal `json:"capital_expenditure"`
}

// ComputePnL rolls reconciled revenue and cost totals into the P&L summary.
// All margins are percentages of revenue and fall back to zero when revenue is
// zero instead of dividing by it.
func ComputePnL(revenue, personnelCost, operatingExpenses, taxes, capitalExpenditure decimal.Decimal) PnL {
	grossProfit := revenue.Sub(personnelCost)
	operatingProfit := grossProfit.Sub(operatingExpenses)
	netProfit := operatingProfit.Sub(taxes)

	margin := func(profit decimal.Decimal) decimal.Decimal {
		if revenue.IsZero() {
			return decimal.Zero
		}
		return profit.Div(revenue).Mul(hundred)
	}

	return PnL{
		Revenue:            revenue,
		PersonnelCost:      personnelCost,
		GrossProfit:        grossProfit,
		GrossMargin:        margin(grossProfit),
		OperatingExpenses:  operatingExpenses,
		OperatingProfit:    operatingProfit,
		OperatingMargin:    margin(operatingProfit),
		Taxes:              taxes,
		NetProfit:          netProfit,
		NetMargin:          margin(netProfit),
		CapitalExpenditure: capitalExpenditure,
	}
}
