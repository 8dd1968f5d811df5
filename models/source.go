package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

type Source struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:191;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created"`
}

type NewSource struct {
	Name string `json:"name" binding:"required,max=191"`
}

func (input *NewSource) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	return nil
}

func CreateSource(ctx context.Context, input *NewSource) (*Source, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	source := Source{Name: input.Name}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&source).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	return &source, nil
}

func UpdateSource(ctx context.Context, id int, input *NewSource) (*Source, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	source, err := utils.FetchSingleModel[Source](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrSourceNotFound)
	}
	if err := db.WithContext(ctx).Model(source).Update("name", input.Name).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	source.Name = input.Name
	invalidateReports(ctx)
	return source, nil
}

func DeleteSource(ctx context.Context, id int) (*Source, error) {
	db := config.GetDB()
	source, err := utils.FetchSingleModel[Source](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrSourceNotFound)
	}

	// don't delete if source is used by product
	count, err := utils.ResourceCountWhere[Product](ctx, db, "source_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: used by product", ErrReferenceProtected)
	}

	if err := db.WithContext(ctx).Delete(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func GetSource(ctx context.Context, id int) (*Source, error) {
	source, err := utils.FetchSingleModel[Source](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrSourceNotFound)
	}
	return source, nil
}

func ListSources(ctx context.Context, name *string) ([]*Source, error) {
	var results []*Source
	dbCtx := config.GetDB().WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", likePrefix(*name))
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
