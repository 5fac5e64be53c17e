package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/calculation"
	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/shopspring/decimal"
)

// GrowthEntry is one product's trendline worksheet: up to three historical
// yearly values, the fitted projection and the planner's budgeted value. The
// budgeted value doubles as the growth candidate on the result row.
type GrowthEntry struct {
	ID              int                       `gorm:"primary_key" json:"id"`
	BusinessId      string                    `gorm:"index;not null" json:"business_id"`
	BudgetId        string                    `gorm:"index;not null;size:36" json:"budget_id"`
	ProductId       int                       `gorm:"index;not null" json:"product_id"`
	ProductName     string                    `gorm:"size:255;not null" json:"product_name"`
	YearMinus3      *decimal.Decimal          `gorm:"type:decimal(20,4)" json:"year_minus_3"`
	YearMinus2      *decimal.Decimal          `gorm:"type:decimal(20,4)" json:"year_minus_2"`
	YearMinus1      *decimal.Decimal          `gorm:"type:decimal(20,4)" json:"year_minus_1"`
	TrendlineType   calculation.TrendlineType `gorm:"type:enum('Linear','Logarithmic','Polynomial');not null;default:'Linear'" json:"trendline_type"`
	PolynomialOrder int                       `gorm:"not null;default:2" json:"polynomial_order"`
	ProjectedValue  decimal.Decimal           `gorm:"type:decimal(20,4);default:0" json:"projected_value"`
	BudgetedValue   *decimal.Decimal          `gorm:"type:decimal(20,4)" json:"budgeted_value"`
	CreatedAt       time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGrowthEntry struct {
	ProductName     string                    `json:"product_name" binding:"required"`
	YearMinus3      *decimal.Decimal          `json:"year_minus_3"`
	YearMinus2      *decimal.Decimal          `json:"year_minus_2"`
	YearMinus1      *decimal.Decimal          `json:"year_minus_1"`
	TrendlineType   calculation.TrendlineType `json:"trendline_type"`
	PolynomialOrder int                       `json:"polynomial_order"`
	BudgetedValue   *decimal.Decimal          `json:"budgeted_value"`
}

func (e GrowthEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (e *GrowthEntry) history() []*decimal.Decimal {
	return []*decimal.Decimal{e.YearMinus3, e.YearMinus2, e.YearMinus1}
}

func (input *NewGrowthEntry) validate() error {
	if input.TrendlineType == "" {
		input.TrendlineType = calculation.TrendlineTypeLinear
	}
	if !input.TrendlineType.Valid() {
		return utils.NewValidationError("invalid trendline type: " + string(input.TrendlineType))
	}
	if input.PolynomialOrder == 0 {
		input.PolynomialOrder = 2
	}
	if input.PolynomialOrder != 2 {
		return utils.NewValidationError("only polynomial order 2 is supported")
	}
	for _, v := range []*decimal.Decimal{input.YearMinus3, input.YearMinus2, input.YearMinus1} {
		if v != nil && v.IsNegative() {
			return utils.NewValidationError("historical values cannot be negative")
		}
	}
	return nil
}

// UpsertGrowthEntry creates or replaces the growth worksheet for one product
// and refreshes its projection and result-row candidate in the same
// transaction.
func UpsertGrowthEntry(ctx context.Context, budgetId string, productId int, input *NewGrowthEntry) (*GrowthEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	entry := GrowthEntry{
		BusinessId:      businessId,
		BudgetId:        budgetId,
		ProductId:       productId,
		ProductName:     input.ProductName,
		YearMinus3:      input.YearMinus3,
		YearMinus2:      input.YearMinus2,
		YearMinus1:      input.YearMinus1,
		TrendlineType:   input.TrendlineType,
		PolynomialOrder: input.PolynomialOrder,
		BudgetedValue:   input.BudgetedValue,
	}
	entry.ProjectedValue = calculation.ProjectTrendline(entry.history(), entry.TrendlineType)

	db := config.GetDB()

	var existing GrowthEntry
	err = db.WithContext(ctx).
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&existing).Error
	if err == nil {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Save(&entry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnGrowth, entry.BudgetedValue); err != nil {
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

	_ = utils.RemoveRedisList[GrowthEntry](budgetId)
	return &entry, nil
}

// UseGrowthProjection copies the fitted projection into the budgeted value, so
// planners can accept the trendline with one call instead of retyping it.
func UseGrowthProjection(ctx context.Context, budgetId string, productId int) (*GrowthEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entry GrowthEntry
	err = db.WithContext(ctx).
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&entry).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	projected := entry.ProjectedValue
	entry.BudgetedValue = &projected

	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&entry).Update("budgeted_value", projected).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnGrowth, entry.BudgetedValue); err != nil {
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

	_ = utils.RemoveRedisList[GrowthEntry](budgetId)
	return &entry, nil
}

// DeleteGrowthEntry removes the growth worksheet for a product (the product
// dropped out of the plan) and clears its candidate from the result row.
func DeleteGrowthEntry(ctx context.Context, budgetId string, productId int) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	budget, err := fetchEditableBudget(ctx, budgetId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	var row struct{ ID int }
	err = db.WithContext(ctx).Model(&GrowthEntry{}).Select("id").
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&row).Error
	if err != nil {
		return utils.ErrorRecordNotFound
	}

	entry, err := utils.FetchModelForChange[GrowthEntry](ctx, businessId, row.ID)
	if err != nil {
		return err
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&GrowthEntry{}, entry.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnGrowth, nil); err != nil {
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

	_ = utils.RemoveRedisList[GrowthEntry](budgetId)
	return nil
}

func ListGrowthEntries(ctx context.Context, budgetId string) ([]*GrowthEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	if cached, err := utils.RetrieveRedisList[GrowthEntry](budgetId); err == nil && cached != nil {
		return cached, nil
	}

	entries, err := utils.FetchModelsWhere[GrowthEntry](ctx, businessId, "budget_id = ?", budgetId)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[GrowthEntry](entries, budgetId)
	return entries, nil
}
