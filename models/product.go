package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:191;not null;uniqueIndex:idx_product_identity" json:"name"`
	Description  *string         `gorm:"size:191;uniqueIndex:idx_product_identity" json:"description"`
	Size         *string         `gorm:"size:100;uniqueIndex:idx_product_identity" json:"size"`
	SupplierId   int             `gorm:"not null;index;uniqueIndex:idx_product_identity" json:"supplier_id"`
	CategoryId   int             `gorm:"not null;index" json:"category_id"`
	SourceId     int             `gorm:"not null;index" json:"source_id"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"cost_price"`
	SellPrice    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"sell_price"`
	Stock        int             `gorm:"not null;default:0" json:"stock"`
	HideProduct  bool            `gorm:"not null;default:false" json:"hide_product"`
	ImageKey     *string         `gorm:"size:255" json:"image_key"`
	ThumbnailKey *string         `gorm:"size:255" json:"thumbnail_key"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created"`
}

type NewProduct struct {
	Name        string          `json:"name" binding:"required,max=191"`
	Description *string         `json:"description"`
	Size        *string         `json:"size"`
	SupplierId  int             `json:"supplier_id" binding:"required"`
	CategoryId  int             `json:"category_id" binding:"required"`
	SourceId    int             `json:"source_id" binding:"required"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SellPrice   decimal.Decimal `json:"sell_price"`
	Stock       int             `json:"stock"`
	HideProduct bool            `json:"hide_product"`
}

type ProductFilter struct {
	Name        *string
	HideProduct *bool
	SupplierId  *int
}

func (input *NewProduct) validate(ctx context.Context, db *gorm.DB, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	input.Description = blankToNil(input.Description)
	input.Size = blankToNil(input.Size)
	if input.CostPrice.IsNegative() || input.SellPrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidField)
	}
	if err := utils.ValidateResourceId[Supplier](ctx, db, input.SupplierId); err != nil {
		return fmt.Errorf("%w: supplier %d: %v", ErrInvalidReference, input.SupplierId, err)
	}
	if err := utils.ValidateResourceId[Category](ctx, db, input.CategoryId); err != nil {
		return fmt.Errorf("%w: category %d: %v", ErrInvalidReference, input.CategoryId, err)
	}
	if err := utils.ValidateResourceId[Source](ctx, db, input.SourceId); err != nil {
		return fmt.Errorf("%w: source %d: %v", ErrInvalidReference, input.SourceId, err)
	}

	// NULL description or size never collide in a unique index, so check here too
	q := db.WithContext(ctx).Model(&Product{}).Where("name = ? AND supplier_id = ?", input.Name, input.SupplierId)
	q = whereNullable(q, "description", input.Description)
	q = whereNullable(q, "size", input.Size)
	if id > 0 {
		q = q.Where("id <> ?", id)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: product %q from supplier %d", ErrConflict, input.Name, input.SupplierId)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// whereNullable matches column = value, or column IS NULL for a nil value.
func whereNullable(q *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()
	if err := input.validate(ctx, db, 0); err != nil {
		return nil, err
	}
	product := Product{
		Name:        input.Name,
		Description: input.Description,
		Size:        input.Size,
		SupplierId:  input.SupplierId,
		CategoryId:  input.CategoryId,
		SourceId:    input.SourceId,
		CostPrice:   input.CostPrice,
		SellPrice:   input.SellPrice,
		Stock:       input.Stock,
		HideProduct: input.HideProduct,
	}
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.Create(&product).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	// opening stock is an adjustment so movements always sum to stock
	if product.Stock != 0 {
		opening := StockMovement{ProductId: product.ID, Quantity: product.Stock, Reason: MovementReasonAdjustment}
		if err := tx.Create(&opening).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct rewrites the catalog fields. A changed stock value is recorded
// as an adjustment movement in the same transaction.
func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	db := config.GetDB()
	if err := input.validate(ctx, db, id); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	product, err := lockProduct(tx, id)
	if err != nil {
		return nil, err
	}
	delta := input.Stock - product.Stock

	product.Name = input.Name
	product.Description = input.Description
	product.Size = input.Size
	product.SupplierId = input.SupplierId
	product.CategoryId = input.CategoryId
	product.SourceId = input.SourceId
	product.CostPrice = input.CostPrice
	product.SellPrice = input.SellPrice
	product.HideProduct = input.HideProduct
	if err := tx.Omit("stock").Save(product).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	if delta != 0 {
		if err := applyStockDelta(tx, product.ID, nil, delta, MovementReasonAdjustment); err != nil {
			return nil, err
		}
		product.Stock = input.Stock
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invalidateReports(ctx)
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	product, err := utils.FetchSingleModel[Product](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrProductNotFound)
	}
	count, err := utils.ResourceCountWhere[InvoiceLine](ctx, db, "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: product is on invoices", ErrReferenceProtected)
	}

	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()
	if err := tx.Where("product_id = ?", id).Delete(&StockMovement{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(product).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	product, err := utils.FetchSingleModel[Product](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrProductNotFound)
	}
	return product, nil
}

func ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	var results []*Product
	dbCtx := config.GetDB().WithContext(ctx)
	if filter.Name != nil && len(*filter.Name) > 0 {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", likePrefix(*filter.Name))
	}
	if filter.HideProduct != nil {
		dbCtx = dbCtx.Where("hide_product = ?", *filter.HideProduct)
	}
	if filter.SupplierId != nil {
		dbCtx = dbCtx.Where("supplier_id = ?", *filter.SupplierId)
	}
	if err := dbCtx.Order("name").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SetProductImage stores the object keys of an uploaded image and its thumbnail.
func SetProductImage(ctx context.Context, id int, imageKey string, thumbnailKey string) (*Product, error) {
	db := config.GetDB()
	product, err := utils.FetchSingleModel[Product](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrProductNotFound)
	}
	err = db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"image_key":     imageKey,
		"thumbnail_key": thumbnailKey,
	}).Error
	if err != nil {
		return nil, err
	}
	product.ImageKey = &imageKey
	product.ThumbnailKey = &thumbnailKey
	return product, nil
}
