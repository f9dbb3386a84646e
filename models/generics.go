package models

import (
	"context"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

// ToggleActiveModel flips is_active of the row and returns the stored result.
// T must have an is_active column.
func ToggleActiveModel[T any](ctx context.Context, id int) (*T, error) {
	result, err := utils.FetchModel[T](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(result).
		UpdateColumn("is_active", gorm.Expr("NOT is_active")).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// clear cache
	if err := utils.RemoveRedisItem[T](id); err != nil {
		return nil, err
	}
	return utils.FetchModel[T](ctx, id)
}
