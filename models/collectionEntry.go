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

// CollectionEntry estimates a product's income from receivables turnover. The
// average balance auto-derives from beginning and end balances unless the
// planner overrides it; once overridden it stays fixed until the override is
// cleared. Payment patterns are child rows replaced wholesale on upsert.
type CollectionEntry struct {
	ID                   int                    `gorm:"primary_key" json:"id"`
	BusinessId           string                 `gorm:"index;not null" json:"business_id"`
	BudgetId             string                 `gorm:"index;not null;size:36" json:"budget_id"`
	ProductId            int                    `gorm:"index;not null" json:"product_id"`
	ProductName          string                 `gorm:"size:255;not null" json:"product_name"`
	BeginningBalance     decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"beginning_balance"`
	EndBalance           decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"end_balance"`
	AvgBalance           decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"avg_balance"`
	AvgBalanceOverridden *bool                  `gorm:"not null;default:false" json:"avg_balance_overridden"`
	AvgPaymentPerMonth   decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"avg_payment_per_month"`
	Patterns             []*CollectionPattern   `gorm:"foreignKey:CollectionEntryId" json:"patterns"`
	CreatedAt            time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

// CollectionPattern is a payment-timing template row: contractPercentage of
// the product's contracts pay out according to the 12 monthly percentages.
type CollectionPattern struct {
	ID                 int               `gorm:"primary_key" json:"id"`
	BusinessId         string            `gorm:"index;not null" json:"business_id"`
	CollectionEntryId  int               `gorm:"index;not null" json:"collection_entry_id"`
	Name               string            `gorm:"size:255;not null" json:"name"`
	ContractPercentage decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"contract_percentage"`
	MonthlyPercentages []decimal.Decimal `gorm:"serializer:json;type:text" json:"monthly_percentages"`
}

type NewCollectionEntry struct {
	ProductName        string                  `json:"product_name" binding:"required"`
	BeginningBalance   decimal.Decimal         `json:"beginning_balance"`
	EndBalance         decimal.Decimal         `json:"end_balance"`
	AvgBalance         *decimal.Decimal        `json:"avg_balance"`
	AvgPaymentPerMonth decimal.Decimal         `json:"avg_payment_per_month"`
	Patterns           []*NewCollectionPattern `json:"patterns"`
}

type NewCollectionPattern struct {
	Name               string            `json:"name" binding:"required"`
	ContractPercentage decimal.Decimal   `json:"contract_percentage"`
	MonthlyPercentages []decimal.Decimal `json:"monthly_percentages"`
}

func (e CollectionEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (e *CollectionEntry) patterns() []calculation.PaymentPattern {
	patterns := make([]calculation.PaymentPattern, 0, len(e.Patterns))
	for _, p := range e.Patterns {
		patterns = append(patterns, calculation.PaymentPattern{
			Name:               p.Name,
			ContractPercentage: p.ContractPercentage,
			MonthlyPercentages: p.MonthlyPercentages,
		})
	}
	return patterns
}

// LastYearCollectionMonths is how long the average balance took to collect at
// the observed monthly payment rate.
func (e *CollectionEntry) LastYearCollectionMonths() decimal.Decimal {
	return calculation.CollectionMonths(e.AvgBalance, e.AvgPaymentPerMonth)
}

// BudgetedCollectionMonths blends last year's months with the declared
// payment patterns.
func (e *CollectionEntry) BudgetedCollectionMonths() decimal.Decimal {
	return calculation.BudgetedCollectionMonths(e.LastYearCollectionMonths(), e.patterns())
}

// BudgetedIncome is the collection candidate: the end balance annualized over
// the budgeted collection period.
func (e *CollectionEntry) BudgetedIncome() decimal.Decimal {
	return calculation.CollectionIncome(e.EndBalance, e.BudgetedCollectionMonths())
}

func (input *NewCollectionEntry) validate() error {
	if input.BeginningBalance.IsNegative() || input.EndBalance.IsNegative() {
		return utils.NewValidationError("receivable balances cannot be negative")
	}
	if input.AvgBalance != nil && input.AvgBalance.IsNegative() {
		return utils.NewValidationError("average balance cannot be negative")
	}
	if input.AvgPaymentPerMonth.IsNegative() {
		return utils.NewValidationError("average payment per month cannot be negative")
	}
	patterns := make([]calculation.PaymentPattern, 0, len(input.Patterns))
	for _, p := range input.Patterns {
		patterns = append(patterns, calculation.PaymentPattern{
			Name:               p.Name,
			ContractPercentage: p.ContractPercentage,
			MonthlyPercentages: p.MonthlyPercentages,
		})
	}
	return calculation.ValidatePatternSet(patterns)
}

// UpsertCollectionEntry creates or replaces the collection worksheet for one
// product, replaces its pattern rows and refreshes the result-row candidate in
// the same transaction.
func UpsertCollectionEntry(ctx context.Context, budgetId string, productId int, input *NewCollectionEntry) (*CollectionEntry, error) {
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

	entry := CollectionEntry{
		BusinessId:         businessId,
		BudgetId:           budgetId,
		ProductId:          productId,
		ProductName:        input.ProductName,
		BeginningBalance:   input.BeginningBalance,
		EndBalance:         input.EndBalance,
		AvgPaymentPerMonth: input.AvgPaymentPerMonth,
	}
	if input.AvgBalance != nil {
		entry.AvgBalance = *input.AvgBalance
		entry.AvgBalanceOverridden = utils.NewTrue()
	} else {
		entry.AvgBalance = calculation.AverageBalance(input.BeginningBalance, input.EndBalance)
		entry.AvgBalanceOverridden = utils.NewFalse()
	}

	db := config.GetDB()

	var existing CollectionEntry
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

	// replace pattern rows wholesale
	if err := tx.WithContext(ctx).Where("collection_entry_id = ?", entry.ID).Delete(&CollectionPattern{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, p := range input.Patterns {
		pattern := CollectionPattern{
			BusinessId:         businessId,
			CollectionEntryId:  entry.ID,
			Name:               p.Name,
			ContractPercentage: p.ContractPercentage,
			MonthlyPercentages: p.MonthlyPercentages,
		}
		if err := tx.WithContext(ctx).Create(&pattern).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		entry.Patterns = append(entry.Patterns, &pattern)
	}

	income := entry.BudgetedIncome()
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnCollection, &income); err != nil {
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

	_ = utils.RemoveRedisList[CollectionEntry](budgetId)
	return &entry, nil
}

// DeleteCollectionEntry removes the collection worksheet for a product along
// with its pattern rows and clears the collection candidate from the result
// row.
func DeleteCollectionEntry(ctx context.Context, budgetId string, productId int) error {
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
	err = db.WithContext(ctx).Model(&CollectionEntry{}).Select("id").
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&row).Error
	if err != nil {
		return utils.ErrorRecordNotFound
	}

	entry, err := utils.FetchModelForChange[CollectionEntry](ctx, businessId, row.ID)
	if err != nil {
		return err
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("collection_entry_id = ?", entry.ID).Delete(&CollectionPattern{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&CollectionEntry{}, entry.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnCollection, nil); err != nil {
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

	_ = utils.RemoveRedisList[CollectionEntry](budgetId)
	return nil
}

func ListCollectionEntries(ctx context.Context, budgetId string) ([]*CollectionEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entries []*CollectionEntry
	err := db.WithContext(ctx).Preload("Patterns").
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
