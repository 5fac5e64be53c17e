package models

import (
	"database/sql/driver"
	"errors"
)

type BudgetStatus string

const (
	BudgetStatusDraft      BudgetStatus = "Draft"
	BudgetStatusInProgress BudgetStatus = "InProgress"
	BudgetStatusFinalized  BudgetStatus = "Finalized"
)

func (s BudgetStatus) Valid() bool {
	switch s {
	case BudgetStatusDraft, BudgetStatusInProgress, BudgetStatusFinalized:
		return true
	}
	return false
}

func (s BudgetStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, errors.New("invalid budget status")
	}
	return string(s), nil
}

func (s *BudgetStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = BudgetStatus(v)
	case []byte:
		*s = BudgetStatus(v)
	default:
		return errors.New("budget status must be string")
	}
	if !s.Valid() {
		return errors.New("invalid budget status")
	}
	return nil
}

// ExpenseKind splits operating-expense entries from the tax and capex lines
// that the P&L treats differently.
type ExpenseKind string

const (
	ExpenseKindOperating ExpenseKind = "Operating"
	ExpenseKindTax       ExpenseKind = "Tax"
	ExpenseKindCapex     ExpenseKind = "Capex"
)

func (k ExpenseKind) Valid() bool {
	switch k {
	case ExpenseKindOperating, ExpenseKindTax, ExpenseKindCapex:
		return true
	}
	return false
}
