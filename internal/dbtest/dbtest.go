// Package dbtest opens throwaway SQLite databases wired into config for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open creates a migrated in-memory database and installs it as config's DB.
// Redis is disabled. Tests using it must not run in parallel.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, seq.Add(1))
	db, err := config.OpenDialector(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	prev := config.GetDB()
	config.SetDB(db)
	config.SetRedisDB(nil)
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})

	if err := models.MigrateTable(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date is midnight UTC of the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DatePtr(y int, m time.Month, d int) *time.Time {
	v := Date(y, m, d)
	return &v
}

// Catalog is a minimal set of reference rows products can hang off.
type Catalog struct {
	Supplier *models.Supplier
	Category *models.Category
	Source   *models.Source
	Customer *models.Customer
}

func NewCatalog(t *testing.T, ctx context.Context) *Catalog {
	t.Helper()
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Company: "Acme Traders"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	category, err := models.CreateCategory(ctx, &models.NewCategory{Name: "Perfume"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	source, err := models.CreateSource(ctx, &models.NewSource{Name: "Dubai"})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	return &Catalog{Supplier: supplier, Category: category, Source: source, Customer: customer}
}

func (c *Catalog) Product(t *testing.T, ctx context.Context, name string, cost string, sell string, stock int) *models.Product {
	t.Helper()
	p, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:       name,
		SupplierId: c.Supplier.ID,
		CategoryId: c.Category.ID,
		SourceId:   c.Source.ID,
		CostPrice:  Dec(cost),
		SellPrice:  Dec(sell),
		Stock:      stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct %s: %v", name, err)
	}
	return p
}

func (c *Catalog) NewCustomer(t *testing.T, ctx context.Context, name string) *models.Customer {
	t.Helper()
	cust, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: name})
	if err != nil {
		t.Fatalf("CreateCustomer %s: %v", name, err)
	}
	return cust
}

// Invoice creates an invoice of (product, quantity, sell price) lines.
func Invoice(t *testing.T, ctx context.Context, customerId int, credit bool, at time.Time, lines ...models.NewInvoiceLine) *models.Invoice {
	t.Helper()
	inv, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId: customerId,
		Credit:     credit,
		DateOfSale: &at,
		Lines:      lines,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func Line(productId int, quantity int, sell string) models.NewInvoiceLine {
	return models.NewInvoiceLine{ProductId: productId, Quantity: quantity, SellPrice: Dec(sell)}
}

func Pay(t *testing.T, ctx context.Context, invoiceId int, amount string, at time.Time) *models.CreditPayment {
	t.Helper()
	p, err := models.RecordCreditPayment(ctx, &models.NewCreditPayment{
		InvoiceId:     invoiceId,
		Payment:       Dec(amount),
		DateOfPayment: &at,
	})
	if err != nil {
		t.Fatalf("RecordCreditPayment %s: %v", amount, err)
	}
	return p
}
