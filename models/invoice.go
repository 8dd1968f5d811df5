package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID         int             `gorm:"primary_key" json:"id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created"`
	DateOfSale time.Time       `gorm:"not null;index" json:"date_of_sale"`
	Credit     bool            `gorm:"not null;default:false;index" json:"credit"`
	CustomerId int             `gorm:"not null;index" json:"customer_id"`
	Lines      []InvoiceLine   `gorm:"foreignKey:InvoiceId;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"lines"`
	Payments   []CreditPayment `gorm:"foreignKey:InvoiceId;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"credit_payments"`
}

// InvoiceLine is one product on an invoice. Prices are snapshots taken at sale time.
type InvoiceLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InvoiceId        int             `gorm:"not null;uniqueIndex:idx_invoice_line_product" json:"invoice_id"`
	ProductId        int             `gorm:"not null;index;uniqueIndex:idx_invoice_line_product" json:"product_id"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	SellPrice        decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"sell_price"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"cost_price"`
	ReturnedQuantity int             `gorm:"not null;default:0" json:"returned_quantity"`
}

// InvoiceWithTotals is an invoice plus its derived figures. The fields shadow
// the Invoice methods of the same name.
type InvoiceWithTotals struct {
	Invoice
	InvoiceTotal     decimal.Decimal `json:"invoice_total"`
	ProfitTotal      decimal.Decimal `json:"profit_total"`
	PaymentsTotal    decimal.Decimal `json:"payments_total"`
	CollectionRatio  decimal.Decimal `json:"collection_ratio"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

func NewInvoiceWithTotals(inv *Invoice) *InvoiceWithTotals {
	return withTotals(inv, inv.Totals())
}

func withTotals(inv *Invoice, t InvoiceTotals) *InvoiceWithTotals {
	return &InvoiceWithTotals{
		Invoice:          *inv,
		InvoiceTotal:     t.InvoiceTotal,
		ProfitTotal:      t.ProfitTotal,
		PaymentsTotal:    t.PaymentsTotal,
		CollectionRatio:  t.CollectionRatio,
		RemainingBalance: t.RemainingBalance,
	}
}

// NewInvoiceLine is checked by NewInvoice.validate so bad lines surface as InvalidLine.
type NewInvoiceLine struct {
	ProductId int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	SellPrice decimal.Decimal `json:"sell_price"`
}

type NewInvoice struct {
	CustomerId int              `json:"customer_id" binding:"required"`
	Credit     bool             `json:"credit"`
	DateOfSale *time.Time       `json:"date_of_sale"`
	Lines      []NewInvoiceLine `json:"lines"`
}

type ReturnLine struct {
	ProductId        int `json:"product_id" binding:"required"`
	ReturnedQuantity int `json:"returned_quantity"`
}

type InvoiceFilter struct {
	Id           *int
	Credit       *bool
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	SaleFrom     *time.Time
	SaleTo       *time.Time
	CustomerName *string
	ProductName  *string
	UnpaidOnly   bool
	LastOnly     bool
}

func (input *NewInvoice) validate() error {
	if len(input.Lines) == 0 {
		return ErrEmptyInvoice
	}
	seen := make(map[int]bool, len(input.Lines))
	for i, line := range input.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: quantity must be greater than zero", ErrInvalidLine, i)
		}
		if !line.SellPrice.IsPositive() {
			return fmt.Errorf("%w: line %d: sell price must be greater than zero", ErrInvalidLine, i)
		}
		if seen[line.ProductId] {
			return fmt.Errorf("%w: line %d: product %d repeated", ErrInvalidLine, i, line.ProductId)
		}
		seen[line.ProductId] = true
	}
	return nil
}

// productLockOrder returns the line product ids ascending. Rows are locked in
// this order so concurrent invoices cannot deadlock.
func productLockOrder(lines []NewInvoiceLine) []int {
	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductId)
	}
	sort.Ints(ids)
	return ids
}

// CreateInvoice persists the invoice and its lines, snapshotting cost prices and
// reserving stock, in one transaction.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := utils.ValidateResourceId[Customer](ctx, db, input.CustomerId); err != nil {
		return nil, translateDbError(err, ErrCustomerNotFound)
	}

	dateOfSale := time.Now().UTC()
	if input.DateOfSale != nil && !input.DateOfSale.IsZero() {
		dateOfSale = input.DateOfSale.UTC()
	}
	invoice := Invoice{
		DateOfSale: dateOfSale,
		Credit:     input.Credit,
		CustomerId: input.CustomerId,
	}

	tx := db.WithContext(ctx).Begin()
	// always rollback on early-return or panic to avoid leaking DB locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.Omit(clause.Associations).Create(&invoice).Error; err != nil {
		return nil, err
	}

	products := make(map[int]*Product, len(input.Lines))
	for _, id := range productLockOrder(input.Lines) {
		product, err := lockProduct(tx, id)
		if err != nil {
			return nil, err
		}
		products[id] = product
	}

	lines := make([]InvoiceLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		product := products[in.ProductId]
		line := InvoiceLine{
			InvoiceId: invoice.ID,
			ProductId: product.ID,
			Quantity:  in.Quantity,
			SellPrice: in.SellPrice,
			CostPrice: product.CostPrice,
		}
		if err := tx.Create(&line).Error; err != nil {
			return nil, translateDbError(err, nil)
		}
		if err := Reserve(tx, product.ID, invoice.ID, in.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invoice.Lines = lines
	invoice.Payments = []CreditPayment{}
	afterLedgerWrite(ctx, LedgerEventInvoiceCreated, invoice.ID, nil, &invoice)
	return &invoice, nil
}

// UpdateInvoiceReturns sets returned quantities per product and moves stock by
// the difference. Every line is validated before anything is written.
func UpdateInvoiceReturns(ctx context.Context, invoiceId int, returns []ReturnLine) (*Invoice, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: no lines given", ErrInvalidReturn)
	}
	seen := make(map[int]bool, len(returns))
	for _, r := range returns {
		if r.ReturnedQuantity < 0 {
			return nil, fmt.Errorf("%w: product %d: returned quantity must not be negative", ErrInvalidReturn, r.ProductId)
		}
		if seen[r.ProductId] {
			return nil, fmt.Errorf("%w: product %d repeated", ErrInvalidReturn, r.ProductId)
		}
		seen[r.ProductId] = true
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := lockInvoice(tx, invoiceId)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int]int, len(invoice.Lines))
	for i, line := range invoice.Lines {
		byProduct[line.ProductId] = i
	}
	for _, r := range returns {
		idx, ok := byProduct[r.ProductId]
		if !ok {
			return nil, fmt.Errorf("%w: invoice %d product %d", ErrInvoiceLineNotFound, invoiceId, r.ProductId)
		}
		if r.ReturnedQuantity > invoice.Lines[idx].Quantity {
			return nil, fmt.Errorf("%w: product %d: returned %d of %d", ErrInvalidReturn, r.ProductId, r.ReturnedQuantity, invoice.Lines[idx].Quantity)
		}
	}

	for _, r := range returns {
		line := &invoice.Lines[byProduct[r.ProductId]]
		delta := r.ReturnedQuantity - line.ReturnedQuantity
		if delta == 0 {
			continue
		}
		err := tx.Model(&InvoiceLine{}).Where("id = ?", line.ID).
			UpdateColumn("returned_quantity", r.ReturnedQuantity).Error
		if err != nil {
			return nil, err
		}
		if err := AdjustOnReturn(tx, line.ProductId, invoiceId, delta); err != nil {
			return nil, err
		}
		line.ReturnedQuantity = r.ReturnedQuantity
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	afterLedgerWrite(ctx, LedgerEventInvoiceReturnsUpdated, invoice.ID, nil, invoice)
	return invoice, nil
}

// lockInvoice reads the invoice FOR UPDATE and loads its lines and payments
// through the same transaction.
func lockInvoice(tx *gorm.DB, id int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrInvoiceNotFound, id)
		}
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Order("id").Find(&invoice.Lines).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Order("id").Find(&invoice.Payments).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DeleteInvoice only succeeds for an invoice with no lines and no payments.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()
	invoice, err := utils.FetchSingleModel[Invoice](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrInvoiceNotFound)
	}
	lineCount, err := utils.ResourceCountWhere[InvoiceLine](ctx, db, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	paymentCount, err := utils.ResourceCountWhere[CreditPayment](ctx, db, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	if lineCount > 0 || paymentCount > 0 {
		return nil, fmt.Errorf("%w: %d lines, %d payments", ErrInvoiceProtected, lineCount, paymentCount)
	}
	if err := db.WithContext(ctx).Delete(invoice).Error; err != nil {
		return nil, err
	}
	afterLedgerWrite(ctx, LedgerEventInvoiceDeleted, id, nil, nil)
	return invoice, nil
}

// GetInvoice returns the stored invoice with lines and payments and no derived figures.
func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	invoice, err := utils.FetchSingleModel[Invoice](ctx, config.GetDB(), id, "Lines", "Payments")
	if err != nil {
		return nil, translateDbError(err, ErrInvoiceNotFound)
	}
	return invoice, nil
}

func GetInvoiceWithTotals(ctx context.Context, id int) (*InvoiceWithTotals, error) {
	invoice, err := GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewInvoiceWithTotals(invoice), nil
}

func ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*InvoiceWithTotals, error) {
	dbCtx := config.GetDB().WithContext(ctx).Preload("Lines").Preload("Payments")

	if filter.Id != nil {
		dbCtx = dbCtx.Where("id = ?", *filter.Id)
	}
	if filter.Credit != nil {
		dbCtx = dbCtx.Where("credit = ?", *filter.Credit)
	}
	if filter.CreatedFrom != nil {
		dbCtx = dbCtx.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		dbCtx = dbCtx.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	if filter.SaleFrom != nil {
		dbCtx = dbCtx.Where("date_of_sale >= ?", filter.SaleFrom.UTC())
	}
	if filter.SaleTo != nil {
		dbCtx = dbCtx.Where("date_of_sale <= ?", filter.SaleTo.UTC())
	}
	if filter.CustomerName != nil && len(*filter.CustomerName) > 0 {
		dbCtx = dbCtx.Where("customer_id IN (SELECT id FROM customers WHERE LOWER(name) LIKE ?)", likePrefix(*filter.CustomerName))
	}
	if filter.ProductName != nil && len(*filter.ProductName) > 0 {
		dbCtx = dbCtx.Where(`id IN (SELECT invoice_lines.invoice_id FROM invoice_lines
			JOIN products ON products.id = invoice_lines.product_id
			WHERE LOWER(products.name) LIKE ?)`, likePrefix(*filter.ProductName))
	}

	var invoices []*Invoice
	if err := dbCtx.Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}

	results := make([]*InvoiceWithTotals, 0, len(invoices))
	for _, inv := range invoices {
		totals := inv.Totals()
		if filter.UnpaidOnly && totals.InvoiceTotal.LessThanOrEqual(totals.PaymentsTotal) {
			continue
		}
		results = append(results, withTotals(inv, totals))
	}
	if filter.LastOnly && len(results) > 0 {
		sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
		results = results[len(results)-1:]
	}
	return results, nil
}
