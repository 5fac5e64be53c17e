package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// ExpenseEntry is one budgeted cost line. Kind controls where the amount lands
// on the P&L: operating expenses reduce operating profit, taxes reduce net
// profit, capex is reported alongside without being deducted.
type ExpenseEntry struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	BudgetId    string          `gorm:"index;not null;size:36" json:"budget_id"`
	Category    string          `gorm:"size:255;not null" json:"category"`
	Kind        ExpenseKind     `gorm:"type:enum('Operating','Tax','Capex');not null;default:'Operating'" json:"kind"`
	AmountTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpenseEntry struct {
	Category    string          `json:"category" binding:"required"`
	Kind        ExpenseKind     `json:"kind"`
	AmountTotal decimal.Decimal `json:"amount_total"`
}

func (e ExpenseEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (input *NewExpenseEntry) validate() error {
	if input.Kind == "" {
		input.Kind = ExpenseKindOperating
	}
	if !input.Kind.Valid() {
		return utils.NewValidationError("invalid expense kind: " + string(input.Kind))
	}
	if input.AmountTotal.IsNegative() {
		return utils.NewValidationError("expense amount cannot be negative")
	}
	return nil
}

// ReplaceExpenseEntries swaps the whole expense plan in one transaction
// (PUT semantics: the request body is the new truth).
func ReplaceExpenseEntries(ctx context.Context, budgetId string, inputs []*NewExpenseEntry) ([]*ExpenseEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	for _, input := range inputs {
		if err := input.validate(); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Delete(&ExpenseEntry{}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	entries := make([]*ExpenseEntry, 0, len(inputs))
	for _, input := range inputs {
		entry := ExpenseEntry{
			BusinessId:  businessId,
			BudgetId:    budgetId,
			Category:    input.Category,
			Kind:        input.Kind,
			AmountTotal: input.AmountTotal,
		}
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := markBudgetInProgress(ctx, tx, budget); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[ExpenseEntry](budgetId)
	return entries, nil
}

// DeleteExpenseEntry removes one line from the expense plan.
func DeleteExpenseEntry(ctx context.Context, budgetId string, entryId int) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return err
	}

	entry, err := utils.FetchModelForChange[ExpenseEntry](ctx, businessId, entryId)
	if err != nil {
		return err
	}
	if entry.BudgetId != budgetId {
		return utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&ExpenseEntry{}, entry.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := markBudgetInProgress(ctx, tx, budget); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	_ = utils.RemoveRedisList[ExpenseEntry](budgetId)
	return nil
}

func ListExpenseEntries(ctx context.Context, budgetId string) ([]*ExpenseEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}
	return utils.FetchModelsWhere[ExpenseEntry](ctx, businessId, "budget_id = ?", budgetId)
}
