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

// CapacityEntry estimates a product's income from billable headcount. Hires
// are child rows, replaced wholesale on every upsert. Hourly price and
// billable percentage stay nullable: nil means "not yet estimated", which the
// readiness gate treats differently from an estimate of zero.
type CapacityEntry struct {
	ID                     int              `gorm:"primary_key" json:"id"`
	BusinessId             string           `gorm:"index;not null" json:"business_id"`
	BudgetId               string           `gorm:"index;not null;size:36" json:"budget_id"`
	ProductId              int              `gorm:"index;not null" json:"product_id"`
	ProductName            string           `gorm:"size:255;not null" json:"product_name"`
	LastYearAvailableHours decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"last_year_available_hours"`
	NextYearHeadcount      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"next_year_headcount"`
	NextYearAvgHourlyPrice *decimal.Decimal `gorm:"column:next_year_avg_hourly_price;type:decimal(20,4)" json:"next_year_avg_hourly_price"`
	NextYearBillablePct    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"next_year_billable_pct"`
	Hires                  []*CapacityHire  `gorm:"foreignKey:CapacityEntryId" json:"hires"`
	CreatedAt              time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// CapacityHire is one planned hire batch: count people joining in a month.
type CapacityHire struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	CapacityEntryId int             `gorm:"index;not null" json:"capacity_entry_id"`
	HireMonth       int             `gorm:"not null" json:"hire_month"`
	HireCount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"hire_count"`
}

type NewCapacityEntry struct {
	ProductName            string             `json:"product_name" binding:"required"`
	LastYearAvailableHours decimal.Decimal    `json:"last_year_available_hours"`
	NextYearHeadcount      decimal.Decimal    `json:"next_year_headcount"`
	NextYearAvgHourlyPrice *decimal.Decimal   `json:"next_year_avg_hourly_price"`
	NextYearBillablePct    *decimal.Decimal   `json:"next_year_billable_pct"`
	Hires                  []*NewCapacityHire `json:"hires"`
}

type NewCapacityHire struct {
	HireMonth int             `json:"hire_month" binding:"required"`
	HireCount decimal.Decimal `json:"hire_count" binding:"required"`
}

func (e CapacityEntry) CheckBudgetEditable(ctx context.Context) error {
	_, err := fetchEditableBudget(ctx, e.BudgetId)
	return err
}

func (e *CapacityEntry) hires() []calculation.Hire {
	hires := make([]calculation.Hire, 0, len(e.Hires))
	for _, h := range e.Hires {
		hires = append(hires, calculation.Hire{Month: h.HireMonth, Count: h.HireCount})
	}
	return hires
}

// WeightedHeadcount prorates planned hires by their employed share of the year.
func (e *CapacityEntry) WeightedHeadcount() decimal.Decimal {
	return calculation.WeightedHeadcount(e.NextYearHeadcount, e.hires())
}

// BudgetedIncome is the capacity candidate, nil while price or billable
// percentage is missing.
func (e *CapacityEntry) BudgetedIncome() *decimal.Decimal {
	return calculation.CapacityIncome(e.LastYearAvailableHours, e.WeightedHeadcount(), e.NextYearAvgHourlyPrice, e.NextYearBillablePct)
}

func (input *NewCapacityEntry) validate() error {
	if input.LastYearAvailableHours.IsNegative() {
		return utils.NewValidationError("available hours cannot be negative")
	}
	if input.NextYearHeadcount.IsNegative() {
		return utils.NewValidationError("headcount cannot be negative")
	}
	if input.NextYearBillablePct != nil &&
		(input.NextYearBillablePct.IsNegative() || input.NextYearBillablePct.GreaterThan(decimal.NewFromInt(100))) {
		return utils.NewValidationError("billable percentage must be between 0 and 100")
	}
	for _, h := range input.Hires {
		if err := calculation.ValidateHire(calculation.Hire{Month: h.HireMonth, Count: h.HireCount}); err != nil {
			return err
		}
	}
	return nil
}

// UpsertCapacityEntry creates or replaces the capacity worksheet for one
// product, replaces its hire rows and refreshes the result-row candidate in
// the same transaction.
func UpsertCapacityEntry(ctx context.Context, budgetId string, productId int, input *NewCapacityEntry) (*CapacityEntry, error) {
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

	entry := CapacityEntry{
		BusinessId:             businessId,
		BudgetId:               budgetId,
		ProductId:              productId,
		ProductName:            input.ProductName,
		LastYearAvailableHours: input.LastYearAvailableHours,
		NextYearHeadcount:      input.NextYearHeadcount,
		NextYearAvgHourlyPrice: input.NextYearAvgHourlyPrice,
		NextYearBillablePct:    input.NextYearBillablePct,
	}

	db := config.GetDB()

	var existing CapacityEntry
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

	// replace hire rows wholesale
	if err := tx.WithContext(ctx).Where("capacity_entry_id = ?", entry.ID).Delete(&CapacityHire{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, h := range input.Hires {
		hire := CapacityHire{
			BusinessId:      businessId,
			CapacityEntryId: entry.ID,
			HireMonth:       h.HireMonth,
			HireCount:       h.HireCount,
		}
		if err := tx.WithContext(ctx).Create(&hire).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		entry.Hires = append(entry.Hires, &hire)
	}

	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnCapacity, entry.BudgetedIncome()); err != nil {
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

	_ = utils.RemoveRedisList[CapacityEntry](budgetId)
	return &entry, nil
}

// DeleteCapacityEntry removes the capacity worksheet for a product along with
// its hire rows and clears the capacity candidate from the result row.
func DeleteCapacityEntry(ctx context.Context, budgetId string, productId int) error {
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
	err = db.WithContext(ctx).Model(&CapacityEntry{}).Select("id").
		Where("business_id = ? AND budget_id = ? AND product_id = ?", businessId, budgetId, productId).
		First(&row).Error
	if err != nil {
		return utils.ErrorRecordNotFound
	}

	entry, err := utils.FetchModelForChange[CapacityEntry](ctx, businessId, row.ID)
	if err != nil {
		return err
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("capacity_entry_id = ?", entry.ID).Delete(&CapacityHire{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&CapacityEntry{}, entry.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := refreshResultCandidate(ctx, tx, businessId, budgetId, productId, entry.ProductName, candidateColumnCapacity, nil); err != nil {
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

	_ = utils.RemoveRedisList[CapacityEntry](budgetId)
	return nil
}

func ListCapacityEntries(ctx context.Context, budgetId string) ([]*CapacityEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entries []*CapacityEntry
	err := db.WithContext(ctx).Preload("Hires").
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
