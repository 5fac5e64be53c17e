package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportBudgetWorkbook renders the reconciliation table and the P&L summary
// into an xlsx workbook. The caller streams it to the response.
func ExportBudgetWorkbook(ctx context.Context, budgetId string) (*excelize.File, error) {
	budget, err := GetBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	summary, err := GetResultSummary(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	pnl, err := GetBudgetPnL(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	resultsSheet := "Results"
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue(resultsSheet, "A1", fmt.Sprintf("Budget %d", budget.Year))
	f.SetCellValue(resultsSheet, "A2", "Product")
	f.SetCellValue(resultsSheet, "B2", "Growth")
	f.SetCellValue(resultsSheet, "C2", "Capacity")
	f.SetCellValue(resultsSheet, "D2", "Collection")
	f.SetCellValue(resultsSheet, "E2", "Average")
	f.SetCellValue(resultsSheet, "F2", "Selected Method")
	f.SetCellValue(resultsSheet, "G2", "Final")

	// Add data
	row := 3
	for _, e := range summary.Entries {
		f.SetCellValue(resultsSheet, "A"+fmt.Sprint(row), e.ProductName)
		f.SetCellValue(resultsSheet, "B"+fmt.Sprint(row), decimalCell(e.GrowthValue))
		f.SetCellValue(resultsSheet, "C"+fmt.Sprint(row), decimalCell(e.CapacityValue))
		f.SetCellValue(resultsSheet, "D"+fmt.Sprint(row), decimalCell(e.CollectionValue))
		f.SetCellValue(resultsSheet, "E"+fmt.Sprint(row), e.AverageValue().String())
		if e.SelectedMethod != nil {
			f.SetCellValue(resultsSheet, "F"+fmt.Sprint(row), string(*e.SelectedMethod))
			if final, err := e.FinalValue(); err == nil {
				f.SetCellValue(resultsSheet, "G"+fmt.Sprint(row), final.String())
			}
		}
		row++
	}

	f.SetCellValue(resultsSheet, "A"+fmt.Sprint(row), "Total")
	f.SetCellValue(resultsSheet, "B"+fmt.Sprint(row), summary.Totals.Growth.String())
	f.SetCellValue(resultsSheet, "C"+fmt.Sprint(row), summary.Totals.Capacity.String())
	f.SetCellValue(resultsSheet, "D"+fmt.Sprint(row), summary.Totals.Collection.String())
	f.SetCellValue(resultsSheet, "E"+fmt.Sprint(row), summary.Totals.Average.String())
	f.SetCellValue(resultsSheet, "G"+fmt.Sprint(row), summary.Totals.Final.String())

	pnlSheet := "PnL"
	if _, err := f.NewSheet(pnlSheet); err != nil {
		return nil, err
	}
	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{"Revenue", pnl.Revenue},
		{"Personnel Cost", pnl.PersonnelCost},
		{"Gross Profit", pnl.GrossProfit},
		{"Gross Margin %", pnl.GrossMargin},
		{"Operating Expenses", pnl.OperatingExpenses},
		{"Operating Profit", pnl.OperatingProfit},
		{"Operating Margin %", pnl.OperatingMargin},
		{"Taxes", pnl.Taxes},
		{"Net Profit", pnl.NetProfit},
		{"Net Margin %", pnl.NetMargin},
		{"Capital Expenditure", pnl.CapitalExpenditure},
	}
	for i, line := range lines {
		f.SetCellValue(pnlSheet, "A"+fmt.Sprint(i+1), line.label)
		f.SetCellValue(pnlSheet, "B"+fmt.Sprint(i+1), line.value.String())
	}

	return f, nil
}

func decimalCell(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return utils.DereferencePtr(v).String()
}
