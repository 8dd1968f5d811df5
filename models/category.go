package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

type Category struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:191;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created"`
}

type NewCategory struct {
	Name string `json:"name" binding:"required,max=191"`
}

func (input *NewCategory) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	return nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	category := Category{Name: input.Name}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	category, err := utils.FetchSingleModel[Category](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrCategoryNotFound)
	}
	if err := db.WithContext(ctx).Model(category).Update("name", input.Name).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	category.Name = input.Name
	invalidateReports(ctx)
	return category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	db := config.GetDB()
	category, err := utils.FetchSingleModel[Category](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrCategoryNotFound)
	}

	// don't delete if category is used by product
	count, err := utils.ResourceCountWhere[Product](ctx, db, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: used by product", ErrReferenceProtected)
	}

	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	category, err := utils.FetchSingleModel[Category](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrCategoryNotFound)
	}
	return category, nil
}

func ListCategories(ctx context.Context, name *string) ([]*Category, error) {
	var results []*Category
	dbCtx := config.GetDB().WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", likePrefix(*name))
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
