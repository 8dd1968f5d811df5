package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db with the given associations preloaded
// (returns ErrorRecordNotFound when missing)
func FetchSingleModel[T any](ctx context.Context, db *gorm.DB, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FetchModelsByIds loads rows of T whose id is in ids, keyed by id.
func FetchModelsByIds[T any](ctx context.Context, db *gorm.DB, ids []int, idOf func(*T) int) (map[int]*T, error) {
	result := make(map[int]*T, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []T
	if err := db.WithContext(ctx).Where("id IN ?", UniqueSlice(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[idOf(&rows[i])] = &rows[i]
	}
	return result, nil
}
