package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/calculation"
	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget is the yearly planning document. One per business per year; every
// entry row hangs off it. Status gates all edits: a Finalized budget is
// read-only until reverted.
type Budget struct {
	ID         string       `gorm:"primary_key;size:36" json:"id"`
	BusinessId string       `gorm:"index;not null" json:"business_id"`
	Year       int          `gorm:"not null" json:"year"`
	Status     BudgetStatus `gorm:"type:enum('Draft','InProgress','Finalized');not null;default:'Draft'" json:"status"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBudget struct {
	Year int `json:"year" binding:"required,min=2000,max=2200"`
}

func (b *Budget) Editable() error {
	if b.Status == BudgetStatusFinalized {
		return utils.NewIllegalStateError("budget is finalized and cannot be modified")
	}
	return nil
}

func CreateBudget(ctx context.Context, input *NewBudget) (*Budget, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[Budget](ctx, businessId, "year", input.Year, nil); err != nil {
		return nil, utils.NewValidationError(fmt.Sprintf("a budget for year %d already exists", input.Year))
	}

	budget := Budget{
		ID:         uuid.NewString(),
		BusinessId: businessId,
		Year:       input.Year,
		Status:     BudgetStatusDraft,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func GetBudget(ctx context.Context, id string) (*Budget, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if cached, err := utils.RetrieveRedis[Budget](id); err == nil && cached != nil && cached.BusinessId == businessId {
		return cached, nil
	}

	db := config.GetDB()
	var budget Budget
	err := db.WithContext(ctx).Where("business_id = ?", businessId).First(&budget, "id = ?", id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	_ = utils.StoreRedis[Budget](budget, budget.ID)
	return &budget, nil
}

func ListBudgets(ctx context.Context) ([]*Budget, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var budgets []*Budget
	err := db.WithContext(ctx).Where("business_id = ?", businessId).Order("year DESC").Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// fetchEditableBudget loads the budget and rejects edits on a finalized one.
// Every entry mutation goes through here first.
func fetchEditableBudget(ctx context.Context, budgetId string) (*Budget, error) {
	budget, err := GetBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	if err := budget.Editable(); err != nil {
		return nil, err
	}
	return budget, nil
}

// markBudgetInProgress flips a Draft budget to InProgress on its first entry
// write. Must run inside the same transaction as the write itself.
func markBudgetInProgress(ctx context.Context, tx *gorm.DB, budget *Budget) error {
	if budget.Status != BudgetStatusDraft {
		return nil
	}
	err := tx.WithContext(ctx).Model(&Budget{}).
		Where("id = ? AND status = ?", budget.ID, BudgetStatusDraft).
		Update("status", BudgetStatusInProgress).Error
	if err != nil {
		return err
	}
	budget.Status = BudgetStatusInProgress
	_ = utils.RemoveRedisItem[Budget](budget.ID)
	return nil
}

// AcquireBudgetPostingLock serializes finalization per business across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that runs the finalization transaction.
func AcquireBudgetPostingLock(tx *gorm.DB, businessId string) error {
	lockName := fmt.Sprintf("budget_posting:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}
	return nil
}

func ReleaseBudgetPostingLock(tx *gorm.DB, businessId string) {
	lockName := fmt.Sprintf("budget_posting:%s", businessId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// buildBudgetSnapshot reads every entry type through the given handle so the
// readiness view comes from one consistent transaction.
func buildBudgetSnapshot(ctx context.Context, tx *gorm.DB, businessId, budgetId string) (calculation.BudgetSnapshot, error) {
	var snapshot calculation.BudgetSnapshot

	var growthEntries []*GrowthEntry
	if err := tx.WithContext(ctx).Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&growthEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range growthEntries {
		snapshot.Growth = append(snapshot.Growth, calculation.GrowthCheck{
			ProductName:   e.ProductName,
			BudgetedValue: e.BudgetedValue,
		})
	}

	var capacityEntries []*CapacityEntry
	if err := tx.WithContext(ctx).Preload("Hires").
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&capacityEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range capacityEntries {
		snapshot.Capacity = append(snapshot.Capacity, calculation.CapacityCheck{
			ProductName:    e.ProductName,
			BudgetedIncome: e.BudgetedIncome(),
		})
	}

	var collectionEntries []*CollectionEntry
	if err := tx.WithContext(ctx).Preload("Patterns").
		Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&collectionEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range collectionEntries {
		snapshot.Collection = append(snapshot.Collection, calculation.CollectionCheck{
			ProductName:        e.ProductName,
			AvgPaymentPerMonth: e.AvgPaymentPerMonth,
		})
	}

	var resultEntries []*ResultEntry
	if err := tx.WithContext(ctx).Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&resultEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range resultEntries {
		snapshot.Results = append(snapshot.Results, calculation.ResultCheck{
			ProductName:    e.ProductName,
			SelectedMethod: e.SelectedMethod,
			ManualOverride: e.ManualOverride,
		})
	}

	var personnelEntries []*PersonnelEntry
	if err := tx.WithContext(ctx).Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&personnelEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range personnelEntries {
		snapshot.Personnel = append(snapshot.Personnel, calculation.PersonnelCheck{
			Name:          e.Name,
			AllocationPct: e.AllocationPct,
		})
	}

	var expenseEntries []*ExpenseEntry
	if err := tx.WithContext(ctx).Where("business_id = ? AND budget_id = ?", businessId, budgetId).
		Find(&expenseEntries).Error; err != nil {
		return snapshot, err
	}
	for _, e := range expenseEntries {
		snapshot.Expenses = append(snapshot.Expenses, calculation.ExpenseCheck{
			Category: e.Category,
			Amount:   e.AmountTotal,
		})
	}

	return snapshot, nil
}

// CheckBudgetReadiness reports every blocker without changing anything. The
// same gate runs again inside FinalizeBudget.
func CheckBudgetReadiness(ctx context.Context, budgetId string) (*calculation.Readiness, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	snapshot, err := buildBudgetSnapshot(ctx, db, businessId, budgetId)
	if err != nil {
		return nil, err
	}
	readiness := calculation.CheckReadiness(snapshot)
	return &readiness, nil
}

// FinalizeBudget re-runs the readiness gate on a consistent snapshot and flips
// the budget to Finalized, all under the business posting lock. When the gate
// fails, the returned Readiness carries the blockers alongside the error.
func FinalizeBudget(ctx context.Context, budgetId string) (*Budget, *calculation.Readiness, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}

	release, err := utils.BusinessLock(ctx, businessId, "budget_finalize", "models", "FinalizeBudget")
	if err != nil {
		return nil, nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBudgetPostingLock(tx.WithContext(ctx), businessId); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	defer ReleaseBudgetPostingLock(tx.WithContext(ctx), businessId)

	var budget Budget
	err = tx.WithContext(ctx).Where("business_id = ?", businessId).First(&budget, "id = ?", budgetId).Error
	if err != nil {
		tx.Rollback()
		return nil, nil, utils.ErrorRecordNotFound
	}
	if budget.Status == BudgetStatusFinalized {
		tx.Rollback()
		return nil, nil, utils.NewIllegalStateError("budget is already finalized")
	}

	snapshot, err := buildBudgetSnapshot(ctx, tx, businessId, budgetId)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	readiness := calculation.CheckReadiness(snapshot)
	if !readiness.IsReady {
		tx.Rollback()
		return nil, &readiness, utils.NewIllegalStateError("budget is not ready to finalize")
	}

	err = tx.WithContext(ctx).Model(&Budget{}).Where("id = ?", budget.ID).
		Update("status", BudgetStatusFinalized).Error
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	budget.Status = BudgetStatusFinalized
	_ = utils.RemoveRedisItem[Budget](budget.ID)
	logger.WithFields(utils.LogFieldsFromContext(ctx)).
		WithField("budget_id", budget.ID).WithField("business_id", businessId).
		Info("budget finalized")

	return &budget, &readiness, nil
}

// RevertBudget reopens a finalized budget for editing. Entry rows are kept as
// they were; the budget simply drops back to Draft.
func RevertBudget(ctx context.Context, budgetId string) (*Budget, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	budget, err := GetBudget(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	if budget.Status != BudgetStatusFinalized {
		return nil, utils.NewIllegalStateError("only a finalized budget can be reverted")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Budget{}).
		Where("id = ? AND status = ?", budget.ID, BudgetStatusFinalized).
		Update("status", BudgetStatusDraft).Error
	if err != nil {
		return nil, err
	}

	budget.Status = BudgetStatusDraft
	_ = utils.RemoveRedisItem[Budget](budget.ID)
	config.GetLogger().WithFields(utils.LogFieldsFromContext(ctx)).
		WithField("budget_id", budget.ID).WithField("business_id", businessId).
		Info("budget reverted to draft")
	return budget, nil
}

// GetBudgetPnL rolls the reconciled revenue total and the cost entries into
// the budgeted profit-and-loss summary.
func GetBudgetPnL(ctx context.Context, budgetId string) (*calculation.PnL, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := GetBudget(ctx, budgetId); err != nil {
		return nil, err
	}

	summary, err := GetResultSummary(ctx, budgetId)
	if err != nil {
		return nil, err
	}

	personnelEntries, err := utils.FetchModelsWhere[PersonnelEntry](ctx, businessId, "budget_id = ?", budgetId)
	if err != nil {
		return nil, err
	}
	personnelCost := decimal.Zero
	for _, e := range personnelEntries {
		personnelCost = personnelCost.Add(e.CostTotal)
	}

	expenseEntries, err := utils.FetchModelsWhere[ExpenseEntry](ctx, businessId, "budget_id = ?", budgetId)
	if err != nil {
		return nil, err
	}
	opex := decimal.Zero
	taxes := decimal.Zero
	capex := decimal.Zero
	for _, e := range expenseEntries {
		switch e.Kind {
		case ExpenseKindTax:
			taxes = taxes.Add(e.AmountTotal)
		case ExpenseKindCapex:
			capex = capex.Add(e.AmountTotal)
		default:
			opex = opex.Add(e.AmountTotal)
		}
	}

	pnl := calculation.ComputePnL(summary.Totals.Final, personnelCost, opex, taxes, capex)
	return &pnl, nil
}
