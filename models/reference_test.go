package models_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/internal/dbtest"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
)

func TestReferenceUniqueness(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	cat := dbtest.NewCatalog(t, ctx)
	cat.Product(t, ctx, "Oud", "6", "10", 1)

	agent := "Rahim"
	desc := "50ml"
	cases := []struct {
		name string
		fn   func() error
	}{
		{"category", func() error { _, err := models.CreateCategory(ctx, &models.NewCategory{Name: "Perfume"}); return err }},
		{"source", func() error { _, err := models.CreateSource(ctx, &models.NewSource{Name: "Dubai"}); return err }},
		{"customer", func() error { _, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in"}); return err }},
		{"supplier", func() error {
			if _, err := models.CreateSupplier(ctx, &models.NewSupplier{Company: "Acme", Agent: &agent}); err != nil {
				t.Fatalf("first supplier: %v", err)
			}
			_, err := models.CreateSupplier(ctx, &models.NewSupplier{Company: "Acme", Agent: &agent})
			return err
		}},
		{"product identity", func() error {
			in := models.NewProduct{Name: "Amber", Description: &desc, SupplierId: cat.Supplier.ID, CategoryId: cat.Category.ID, SourceId: cat.Source.ID, SellPrice: dbtest.Dec("1")}
			if _, err := models.CreateProduct(ctx, &in); err != nil {
				t.Fatalf("first product: %v", err)
			}
			dup := in
			_, err := models.CreateProduct(ctx, &dup)
			return err
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.fn()
			if !errors.Is(err, models.ErrConflict) {
				t.Fatalf("got %v, want conflict", err)
			}
			if models.KindOf(err) != models.KindConflict {
				t.Fatalf("kind %q", models.KindOf(err))
			}
		})
	}
}

func TestReferenceDeleteProtection(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	cat := dbtest.NewCatalog(t, ctx)
	p := cat.Product(t, ctx, "Oud", "6", "10", 5)
	dbtest.Invoice(t, ctx, cat.Customer.ID, false, dbtest.Date(2024, time.January, 1), dbtest.Line(p.ID, 1, "10"))

	cases := []struct {
		name string
		fn   func() error
	}{
		{"category", func() error { _, err := models.DeleteCategory(ctx, cat.Category.ID); return err }},
		{"source", func() error { _, err := models.DeleteSource(ctx, cat.Source.ID); return err }},
		{"supplier", func() error { _, err := models.DeleteSupplier(ctx, cat.Supplier.ID); return err }},
		{"customer", func() error { _, err := models.DeleteCustomer(ctx, cat.Customer.ID); return err }},
		{"product", func() error { _, err := models.DeleteProduct(ctx, p.ID); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.fn(); !errors.Is(err, models.ErrReferenceProtected) {
				t.Fatalf("got %v, want ReferenceProtected", err)
			}
		})
	}

	spare, err := models.CreateCategory(ctx, &models.NewCategory{Name: "Spare"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := models.DeleteCategory(ctx, spare.ID); err != nil {
		t.Fatalf("DeleteCategory unused: %v", err)
	}
	if _, err := models.GetCategory(ctx, spare.ID); !errors.Is(err, models.ErrCategoryNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestCustomerPhoneValidation(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	t.Setenv("PHONE_COUNTRY_CODE", "PK")

	bad := "12"
	if _, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "A", PrimaryPhone: &bad}); !errors.Is(err, models.ErrInvalidField) {
		t.Fatalf("got %v, want InvalidField", err)
	}

	good := "+92 300 1234567"
	blank := "  "
	c, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "B", PrimaryPhone: &good, SecondaryPhone: &blank})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if c.PrimaryPhone == nil || *c.PrimaryPhone != "+923001234567" {
		t.Fatalf("primary phone %v", c.PrimaryPhone)
	}
	if c.SecondaryPhone != nil {
		t.Fatalf("blank secondary phone kept: %q", *c.SecondaryPhone)
	}
}

func TestProductValidationAndFilters(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	cat := dbtest.NewCatalog(t, ctx)

	_, err := models.CreateProduct(ctx, &models.NewProduct{Name: "X", SupplierId: 999, CategoryId: cat.Category.ID, SourceId: cat.Source.ID})
	if !errors.Is(err, models.ErrInvalidReference) {
		t.Fatalf("got %v, want InvalidReference", err)
	}

	other, err := models.CreateSupplier(ctx, &models.NewSupplier{Company: "Other"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	cat.Product(t, ctx, "Oud Royal", "1", "2", 0)
	cat.Product(t, ctx, "oud light", "1", "2", 0)
	hidden, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Musk", SupplierId: other.ID, CategoryId: cat.Category.ID, SourceId: cat.Source.ID, HideProduct: true})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	name := "OUD"
	hide := true
	tests := []struct {
		name   string
		filter models.ProductFilter
		want   int
	}{
		{"all", models.ProductFilter{}, 3},
		{"name prefix", models.ProductFilter{Name: &name}, 2},
		{"hidden", models.ProductFilter{HideProduct: &hide}, 1},
		{"supplier", models.ProductFilter{SupplierId: &other.ID}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := models.ListProducts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListProducts: %v", err)
			}
			if len(rows) != tt.want {
				t.Fatalf("got %d rows, want %d", len(rows), tt.want)
			}
		})
	}

	updated, err := models.SetProductImage(ctx, hidden.ID, "products/1.jpg", "products/1_thumb.jpg")
	if err != nil {
		t.Fatalf("SetProductImage: %v", err)
	}
	if *updated.ThumbnailKey != "products/1_thumb.jpg" {
		t.Fatalf("thumbnail key %q", *updated.ThumbnailKey)
	}
}

func TestProductStockEditRecordsAdjustment(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	cat := dbtest.NewCatalog(t, ctx)
	p := cat.Product(t, ctx, "Oud", "6", "10", 5)

	in := models.NewProduct{Name: p.Name, SupplierId: p.SupplierId, CategoryId: p.CategoryId, SourceId: p.SourceId, CostPrice: p.CostPrice, SellPrice: p.SellPrice, Stock: 12}
	if _, err := models.UpdateProduct(ctx, p.ID, &in); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	movements, err := models.ListStockMovements(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListStockMovements: %v", err)
	}
	if len(movements) != 2 || movements[1].Quantity != 7 || movements[1].Reason != models.MovementReasonAdjustment {
		t.Fatalf("movements %+v", movements)
	}
	got, _ := models.GetProduct(ctx, p.ID)
	if got.Stock != 12 {
		t.Fatalf("stock %d", got.Stock)
	}
}

func TestStockMovementsSumToStock(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	cat := dbtest.NewCatalog(t, ctx)
	p := cat.Product(t, ctx, "Oud", "6", "10", 7)
	empty := cat.Product(t, ctx, "Musk", "6", "10", 0)

	inv := dbtest.Invoice(t, ctx, cat.Customer.ID, false, dbtest.Date(2024, time.March, 5), dbtest.Line(p.ID, 3, "10"))
	if _, err := models.UpdateInvoiceReturns(ctx, inv.ID, []models.ReturnLine{{ProductId: p.ID, ReturnedQuantity: 1}}); err != nil {
		t.Fatalf("UpdateInvoiceReturns: %v", err)
	}

	tests := []struct {
		name      string
		productId int
		stock     int
		count     int
	}{
		{"opening stock recorded", p.ID, 5, 3},
		{"zero opening stock", empty.ID, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movements, err := models.ListStockMovements(ctx, tt.productId)
			if err != nil {
				t.Fatalf("ListStockMovements: %v", err)
			}
			sum := 0
			for _, m := range movements {
				sum += m.Quantity
			}
			got, _ := models.GetProduct(ctx, tt.productId)
			if len(movements) != tt.count || sum != tt.stock || got.Stock != tt.stock {
				t.Fatalf("count %d sum %d stock %d, want %d/%d", len(movements), sum, got.Stock, tt.count, tt.stock)
			}
		})
	}
}
