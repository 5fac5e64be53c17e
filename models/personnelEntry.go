package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// PersonnelEntry is one cost-center line of the budgeted personnel plan. The
// allocation percentages across a budget must sum to 100 before finalization;
// that check lives in the readiness gate, not here, so planners can save
// partial allocations while working.
type PersonnelEntry struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	BudgetId      string          `gorm:"index;not null;size:36" json:"budget_id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	CostTotal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_total"`
	AllocationPct decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"allocation_pct"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPersonnelEntry struct {
	Name          string          `json:"name" binding:"required"`
	CostTotal     decimal.Decimal `json:"cost_total"`
	AllocationPct decimal.Decimal `json:"allocation_pct"`
}

func (e PersonnelEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (input *NewPersonnelEntry) validate() error {
	if input.CostTotal.IsNegative() {
		return utils.NewValidationError("personnel cost cannot be negative")
	}
	if input.AllocationPct.IsNegative() || input.AllocationPct.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("allocation percentage must be between 0 and 100")
	}
	return nil
}

// ReplacePersonnelEntries swaps the whole personnel plan in one transaction
// (PUT semantics: the request body is the new truth).
func ReplacePersonnelEntries(ctx context.Context, budgetId string, inputs []*NewPersonnelEntry) ([]*PersonnelEntry, error) {
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
		Delete(&PersonnelEntry{}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	entries := make([]*PersonnelEntry, 0, len(inputs))
	for _, input := range inputs {
		entry := PersonnelEntry{
			BusinessId:    businessId,
			BudgetId:      budgetId,
			Name:          input.Name,
			CostTotal:     input.CostTotal,
			AllocationPct: input.AllocationPct,
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

	_ = utils.RemoveRedisList[PersonnelEntry](budgetId)
	return entries, nil
}

// DeletePersonnelEntry removes one line from the personnel plan.
func DeletePersonnelEntry(ctx context.Context, budgetId string, entryId int) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return err
	}

	entry, err := utils.FetchModelForChange[PersonnelEntry](ctx, businessId, entryId)
	if err != nil {
		return err
	}
	if entry.BudgetId != budgetId {
		return utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&PersonnelEntry{}, entry.ID).Error; err != nil {
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

	_ = utils.RemoveRedisList[PersonnelEntry](budgetId)
	return nil
}

func ListPersonnelEntries(ctx context.Context, budgetId string) ([]*PersonnelEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}
	return utils.FetchModelsWhere[PersonnelEntry](ctx, businessId, "budget_id = ?", budgetId)
}
