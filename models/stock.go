package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockMovement is the audit trail of every change to Product.Stock.
type StockMovement struct {
	ID        int            `gorm:"primary_key" json:"id"`
	ProductId int            `gorm:"not null;index" json:"product_id"`
	InvoiceId *int           `gorm:"index" json:"invoice_id"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	Reason    MovementReason `gorm:"size:20;not null" json:"reason"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created"`
}

// Reserve takes quantity units out of stock for an invoice line.
// Stock has no floor and may go negative.
func Reserve(tx *gorm.DB, productId int, invoiceId int, quantity int) error {
	return applyStockDelta(tx, productId, &invoiceId, -quantity, MovementReasonSale)
}

// AdjustOnReturn puts delta units back (delta = new returned - old returned).
func AdjustOnReturn(tx *gorm.DB, productId int, invoiceId int, delta int) error {
	if delta == 0 {
		return nil
	}
	return applyStockDelta(tx, productId, &invoiceId, delta, MovementReasonReturn)
}

func applyStockDelta(tx *gorm.DB, productId int, invoiceId *int, delta int, reason MovementReason) error {
	res := tx.Model(&Product{}).Where("id = ?", productId).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, productId)
	}
	movement := StockMovement{
		ProductId: productId,
		InvoiceId: invoiceId,
		Quantity:  delta,
		Reason:    reason,
	}
	return tx.Create(&movement).Error
}

// lockProduct reads a product row FOR UPDATE inside tx.
func lockProduct(tx *gorm.DB, id int) (*Product, error) {
	var product Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, err
	}
	return &product, nil
}

func ListStockMovements(ctx context.Context, productId int) ([]*StockMovement, error) {
	var results []*StockMovement
	err := config.GetDB().WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
