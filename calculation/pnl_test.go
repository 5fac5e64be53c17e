package calculation

import "testing"

func TestComputePnL(t *testing.T) {
	pnl := ComputePnL(dec(500000), dec(200000), dec(100000), dec(20000), dec(75000))

	assertClose(t, pnl.GrossProfit, 300000)
	assertClose(t, pnl.GrossMargin, 60)
	assertClose(t, pnl.OperatingProfit, 200000)
	assertClose(t, pnl.OperatingMargin, 40)
	assertClose(t, pnl.NetProfit, 180000)
	assertClose(t, pnl.NetMargin, 36)

	// capex is reported separately and never deducted from net profit
	assertClose(t, pnl.CapitalExpenditure, 75000)
	assertClose(t, pnl.NetProfit, 180000)
}

func TestComputePnL_ZeroRevenue(t *testing.T) {
	pnl := ComputePnL(dec(0), dec(200000), dec(100000), dec(20000), dec(0))

	assertClose(t, pnl.GrossProfit, -200000)
	if !pnl.GrossMargin.IsZero() || !pnl.OperatingMargin.IsZero() || !pnl.NetMargin.IsZero() {
		t.Fatalf("margins must be 0 when revenue is 0, got %s/%s/%s",
			pnl.GrossMargin.String(), pnl.OperatingMargin.String(), pnl.NetMargin.String())
	}
}

func TestComputePnL_LossMakingBudget(t *testing.T) {
	pnl := ComputePnL(dec(100000), dec(80000), dec(50000), dec(0), dec(0))

	assertClose(t, pnl.OperatingProfit, -30000)
	assertClose(t, pnl.OperatingMargin, -30)
	assertClose(t, pnl.NetProfit, -30000)
}
