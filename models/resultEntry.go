package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/calculation"
	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// candidate columns refreshed by the estimation worksheets
const (
	candidateColumnGrowth     = "growth_value"
	candidateColumnCapacity   = "capacity_value"
	candidateColumnCollection = "collection_value"
)

// ResultEntry is the reconciliation row per product: the three candidate
// values mirrored from the estimation worksheets plus the planner's committed
// selection. Candidates are server-maintained; only the selection and the
// manual override are client-writable.
type ResultEntry struct {
	ID              int                        `gorm:"primary_key" json:"id"`
	BusinessId      string                     `gorm:"index;not null" json:"business_id"`
	BudgetId        string                     `gorm:"index;not null;size:36" json:"budget_id"`
	ProductId       int                        `gorm:"index;not null" json:"product_id"`
	ProductName     string                     `gorm:"size:255;not null" json:"product_name"`
	GrowthValue     *decimal.Decimal           `gorm:"type:decimal(20,4)" json:"growth_value"`
	CapacityValue   *decimal.Decimal           `gorm:"type:decimal(20,4)" json:"capacity_value"`
	CollectionValue *decimal.Decimal           `gorm:"type:decimal(20,4)" json:"collection_value"`
	SelectedMethod  *calculation.ResultMethod  `gorm:"type:enum('Growth','Capacity','Collection','Average','Manual');default:null" json:"selected_method"`
	ManualOverride  *decimal.Decimal           `gorm:"type:decimal(20,4)" json:"manual_override"`
	CreatedAt       time.Time                  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewResultSelection struct {
	SelectedMethod calculation.ResultMethod `json:"selected_method" binding:"required"`
	ManualOverride *decimal.Decimal         `json:"manual_override"`
}

func (e ResultEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (e *ResultEntry) Candidates() calculation.Candidates {
	return calculation.Candidates{
		Growth:     e.GrowthValue,
		Capacity:   e.CapacityValue,
		Collection: e.CollectionValue,
	}
}

// AverageValue is always derived from the current candidates, never stored.
func (e *ResultEntry) AverageValue() decimal.Decimal {
	return calculation.AverageValue(e.Candidates())
}

// FinalValue resolves the committed value per the selected method. An entry
// without a selection has no final value yet.
func (e *ResultEntry) FinalValue() (decimal.Decimal, error) {
	if e.SelectedMethod == nil {
		return decimal.Zero, utils.NewValidationError("no result method selected for product " + e.ProductName)
	}
	_, final, err := calculation.Reconcile(e.Candidates(), *e.SelectedMethod, e.ManualOverride)
	return final, err
}

// refreshResultCandidate upserts the reconciliation row for a product and
// writes one candidate column. Called inside the worksheet's own transaction
// so the result view never lags the estimate that produced it.
func refreshResultCandidate(ctx context.Context, tx *gorm.DB, businessId, budgetId string, productId int, productName, column string, value *decimal.Decimal) error {
	var entry ResultEntry
	err := tx.WithContext(ctx).
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&entry).Error
	if err != nil {
		entry = ResultEntry{
			BusinessId:  businessId,
			BudgetId:    budgetId,
			ProductId:   productId,
			ProductName: productName,
		}
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
	}

	err = tx.WithContext(ctx).Model(&entry).
		Updates(map[string]interface{}{column: value, "product_name": productName}).Error
	if err != nil {
		return err
	}

	_ = utils.RemoveRedisList[ResultEntry](budgetId)
	return nil
}

// UpdateResultSelection commits the planner's method choice for one product.
// Selecting a read-only method clears any stale manual override.
func UpdateResultSelection(ctx context.Context, budgetId string, productId int, input *NewResultSelection) (*ResultEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	if !input.SelectedMethod.Valid() {
		return nil, utils.NewValidationError("invalid result method: " + string(input.SelectedMethod))
	}
	if input.SelectedMethod == calculation.ResultMethodManual && input.ManualOverride == nil {
		return nil, utils.NewValidationError("manual selection requires an override value")
	}

	db := config.GetDB()
	var entry ResultEntry
	err = db.WithContext(ctx).
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&entry).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	entry.SelectedMethod = &input.SelectedMethod
	if input.SelectedMethod == calculation.ResultMethodManual {
		entry.ManualOverride = input.ManualOverride
	} else {
		entry.ManualOverride = nil
	}

	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&entry).
		Updates(map[string]interface{}{
			"selected_method": entry.SelectedMethod,
			"manual_override": entry.ManualOverride,
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := markBudgetInProgress(ctx, tx, budget); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[ResultEntry](budgetId)
	return &entry, nil
}

// ClearResultSelection puts one product back to "no method chosen": the
// selected method and any manual override are nulled out, the candidates stay.
func ClearResultSelection(ctx context.Context, budgetId string, productId int) (*ResultEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var row struct{ ID int }
	err = db.WithContext(ctx).Model(&ResultEntry{}).Select("id").
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&row).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	entry, err := utils.FetchModelForChange[ResultEntry](ctx, businessId, row.ID)
	if err != nil {
		return nil, err
	}

	entry.SelectedMethod = nil
	entry.ManualOverride = nil

	tx := db.Begin()
	err = tx.WithContext(ctx).Model(entry).
		Updates(map[string]interface{}{"selected_method": nil, "manual_override": nil}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := markBudgetInProgress(ctx, tx, budget); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[ResultEntry](budgetId)
	return entry, nil
}

// SelectAllResults applies one read-only method across every product row.
// Manual cannot be bulk-applied: it needs a per-product override value.
func SelectAllResults(ctx context.Context, budgetId string, method calculation.ResultMethod) ([]*ResultEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, utils.NewValidationError("invalid result method: " + string(method))
	}
	if method == calculation.ResultMethodManual {
		return nil, utils.NewValidationError("manual cannot be selected for all products at once")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&ResultEntry{}).
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Updates(map[string]interface{}{"selected_method": method, "manual_override": nil}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := markBudgetInProgress(ctx, tx, budget); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[ResultEntry](budgetId)
	return ListResultEntries(ctx, budgetId)
}

func ListResultEntries(ctx context.Context, budgetId string) ([]*ResultEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	if cached, err := utils.RetrieveRedisList[ResultEntry](budgetId); err == nil && cached != nil {
		return cached, nil
	}

	entries, err := utils.FetchModelsWhere[ResultEntry](ctx, businessId, "budget_id = ?", budgetId)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[ResultEntry](entries, budgetId)
	return entries, nil
}

// ResultSummary is the reconciliation screen payload: every product row plus
// the budget-wide totals per method.
type ResultSummary struct {
	Entries []*ResultEntry           `json:"entries"`
	Totals  calculation.MethodTotals `json:"totals"`
}

func GetResultSummary(ctx context.Context, budgetId string) (*ResultSummary, error) {
	entries, err := ListResultEntries(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	rows := make([]calculation.ReconciledRow, 0, len(entries))
	for _, e := range entries {
		row := calculation.ReconciledRow{
			Candidates:     e.Candidates(),
			ManualOverride: e.ManualOverride,
		}
		if e.SelectedMethod != nil {
			row.Method = *e.SelectedMethod
		}
		rows = append(rows, row)
	}

	return &ResultSummary{
		Entries: entries,
		Totals:  calculation.Totals(rows),
	}, nil
}
