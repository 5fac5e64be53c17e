package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/budget_backend/config"
)

// ModelEditGuard is implemented by entry models whose edits are gated on the
// owning budget's status.
type ModelEditGuard interface {
	CheckBudgetEditable(ctx context.Context) error
}

/* DB fetching */

// fetch model from db
// (ctx's business_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, businessId string, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model and reject when the owning budget is finalized
func FetchModelForChange[T ModelEditGuard](ctx context.Context, businessId string, id int, associations ...string) (*T, error) {
	result, err := FetchModel[T](ctx, businessId, id, associations...)
	if err != nil {
		return nil, err
	}
	if err := (*result).CheckBudgetEditable(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// fetch all models matching the condition
// (ctx's business_id is used in query's WHERE)
func FetchModelsWhere[T any](ctx context.Context, businessId string, condition string, values ...interface{}) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Where(condition, values...)
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
