package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/internal/dbtest"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/models/reports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func year(y int) reports.DateFilterInput {
	return reports.DateFilterInput{Year: intp(y)}
}

func yearMonth(y, m int) reports.DateFilterInput {
	return reports.DateFilterInput{Year: intp(y), Month: intp(m)}
}

func sumRows(rows []*reports.SalesRow) (decimal.Decimal, decimal.Decimal, int) {
	sales, profit, units := decimal.Zero, decimal.Zero, 0
	for _, r := range rows {
		sales = sales.Add(r.Sales)
		profit = profit.Add(r.Profit)
		units += r.Units
	}
	return sales, profit, units
}

func TestSalesTotalsAgreeAcrossGranularity(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	p := c.Product(t, ctx, "Musk", "4", "10", 100)

	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 3, 10), dbtest.Line(p.ID, 2, "10"))
	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 3, 20), dbtest.Line(p.ID, 3, "10"))
	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 4, 2), dbtest.Line(p.ID, 1, "12"))
	// outside the window
	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2025, 1, 1), dbtest.Line(p.ID, 9, "10"))

	for _, groupBy := range [][]string{{"year"}, {"year", "month"}, {"month", "day"}} {
		report, err := reports.GetSalesTotals(ctx, year(2024), groupBy)
		require.NoError(t, err, "group by %v", groupBy)
		sales, profit, units := sumRows(report.Rows)
		assertDec(t, "62", sales, "sales")
		assertDec(t, "38", profit, "profit")
		assert.Equal(t, 6, units)
	}

	byDay, err := reports.GetSalesTotals(ctx, yearMonth(2024, 3), nil)
	require.NoError(t, err)
	require.Len(t, byDay.Rows, 2)
	assert.Equal(t, []reports.Dimension{reports.DimDay}, byDay.GroupBy)
	assert.Equal(t, 10, *byDay.Rows[0].Day)
	assert.Equal(t, 20, *byDay.Rows[1].Day)
	assert.Nil(t, byDay.Rows[0].Month)
	assertDec(t, "20", byDay.Rows[0].Sales, "day 10 sales")
	assertDec(t, "30", byDay.Rows[1].Sales, "day 20 sales")

	byYear, err := reports.GetSalesTotals(ctx, year(2024), []string{"year"})
	require.NoError(t, err)
	require.Len(t, byYear.Rows, 1)
	assert.Equal(t, 2024, *byYear.Rows[0].Year)
}

func TestSalesTotalsCreditIsRetroactive(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	a := c.Product(t, ctx, "A", "6", "10", 10)
	b := c.Product(t, ctx, "B", "12", "20", 10)

	inv := dbtest.Invoice(t, ctx, c.Customer.ID, true, dbtest.Date(2024, 3, 10),
		dbtest.Line(a.ID, 3, "10"), dbtest.Line(b.ID, 1, "20"))

	before, err := reports.GetSalesTotals(ctx, year(2024), nil)
	require.NoError(t, err)
	require.Len(t, before.Rows, 1)
	assertDec(t, "0", before.Rows[0].Sales, "unpaid sales")
	assertDec(t, "0", before.Rows[0].Profit, "unpaid profit")
	assert.Equal(t, 4, before.Rows[0].Units)

	// paid in May, realized against March
	dbtest.Pay(t, ctx, inv.ID, "20", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	after, err := reports.GetSalesTotals(ctx, year(2024), nil)
	require.NoError(t, err)
	require.Len(t, after.Rows, 1)
	assert.Equal(t, 3, *after.Rows[0].Month)
	assertDec(t, "20", after.Rows[0].Sales, "paid sales")
	assertDec(t, "8", after.Rows[0].Profit, "paid profit")
}

func TestSalesByCategoryProratesLines(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	oud, err := models.CreateCategory(ctx, &models.NewCategory{Name: "Oud"})
	require.NoError(t, err)
	a := c.Product(t, ctx, "A", "6", "10", 10)
	other, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "C", SupplierId: c.Supplier.ID, CategoryId: oud.ID, SourceId: c.Source.ID,
		CostPrice: dbtest.Dec("12"), SellPrice: dbtest.Dec("20"), Stock: 10,
	})
	require.NoError(t, err)

	inv := dbtest.Invoice(t, ctx, c.Customer.ID, true, dbtest.Date(2024, 3, 10),
		dbtest.Line(a.ID, 3, "10"), dbtest.Line(other.ID, 1, "20"))
	dbtest.Pay(t, ctx, inv.ID, "20", dbtest.Date(2024, 3, 12))

	report, err := reports.GetSalesByDimension(ctx, "category", nil, year(2024), []string{"year"})
	require.NoError(t, err)
	assert.Equal(t, []reports.Dimension{reports.DimYear, reports.DimCategory}, report.GroupBy)
	require.Len(t, report.Rows, 2)

	perfume, oudRow := report.Rows[0], report.Rows[1]
	assert.Equal(t, c.Category.ID, *perfume.CategoryId)
	assert.Equal(t, "Perfume", *perfume.CategoryName)
	assertDec(t, "12", perfume.Sales, "perfume sales")
	assertDec(t, "4.8", perfume.Profit, "perfume profit")
	assert.Equal(t, 3, perfume.Units)
	assert.Equal(t, oud.ID, *oudRow.CategoryId)
	assertDec(t, "8", oudRow.Sales, "oud sales")
	assertDec(t, "3.2", oudRow.Profit, "oud profit")

	only, err := reports.GetSalesByDimension(ctx, "category", []int{oud.ID}, year(2024), nil)
	require.NoError(t, err)
	require.Len(t, only.Rows, 1)
	assert.Equal(t, oud.ID, *only.Rows[0].CategoryId)
	assert.Equal(t, 3, *only.Rows[0].Month)
}

func TestSalesBySupplierAndSource(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	zenith, err := models.CreateSupplier(ctx, &models.NewSupplier{Company: "Zenith"})
	require.NoError(t, err)
	paris, err := models.CreateSource(ctx, &models.NewSource{Name: "Paris"})
	require.NoError(t, err)
	a := c.Product(t, ctx, "A", "6", "10", 10)
	b, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "B", SupplierId: zenith.ID, CategoryId: c.Category.ID, SourceId: paris.ID,
		CostPrice: dbtest.Dec("12"), SellPrice: dbtest.Dec("20"), Stock: 10,
	})
	require.NoError(t, err)

	inv := dbtest.Invoice(t, ctx, c.Customer.ID, true, dbtest.Date(2024, 3, 10),
		dbtest.Line(a.ID, 3, "10"), dbtest.Line(b.ID, 1, "20"))
	dbtest.Pay(t, ctx, inv.ID, "20", dbtest.Date(2024, 3, 12))

	supplierOf := func(r *reports.SalesRow) (*int, *string) { return r.SupplierId, r.SupplierName }
	sourceOf := func(r *reports.SalesRow) (*int, *string) { return r.SourceId, r.SourceName }

	type want struct {
		id     int
		name   string
		sales  string
		profit string
		units  int
	}
	tests := []struct {
		dimension string
		ids       []int
		entity    func(*reports.SalesRow) (*int, *string)
		want      []want
	}{
		{"supplier", nil, supplierOf, []want{
			{c.Supplier.ID, "Acme Traders", "12", "4.8", 3},
			{zenith.ID, "Zenith", "8", "3.2", 1},
		}},
		{"supplier", []int{zenith.ID}, supplierOf, []want{
			{zenith.ID, "Zenith", "8", "3.2", 1},
		}},
		{"source", nil, sourceOf, []want{
			{c.Source.ID, "Dubai", "12", "4.8", 3},
			{paris.ID, "Paris", "8", "3.2", 1},
		}},
		{"source", []int{c.Source.ID}, sourceOf, []want{
			{c.Source.ID, "Dubai", "12", "4.8", 3},
		}},
	}
	for _, tt := range tests {
		report, err := reports.GetSalesByDimension(ctx, tt.dimension, tt.ids, year(2024), []string{"year"})
		if err != nil {
			t.Fatalf("%s %v: %v", tt.dimension, tt.ids, err)
		}
		if len(report.Rows) != len(tt.want) {
			t.Fatalf("%s %v: got %d rows, want %d", tt.dimension, tt.ids, len(report.Rows), len(tt.want))
		}
		for i, w := range tt.want {
			row := report.Rows[i]
			id, name := tt.entity(row)
			if id == nil || *id != w.id || name == nil || *name != w.name {
				t.Fatalf("%s %v row %d: entity %v %v, want %d %s", tt.dimension, tt.ids, i, id, name, w.id, w.name)
			}
			assertDec(t, w.sales, row.Sales, tt.dimension+" sales "+w.name)
			assertDec(t, w.profit, row.Profit, tt.dimension+" profit "+w.name)
			if row.Units != w.units {
				t.Fatalf("%s %v row %d: units %d, want %d", tt.dimension, tt.ids, i, row.Units, w.units)
			}
		}
	}
}

func TestSalesByProductIdsDropOtherLines(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	a := c.Product(t, ctx, "A", "6", "10", 10)
	b := c.Product(t, ctx, "B", "12", "20", 10)

	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 3, 10),
		dbtest.Line(a.ID, 3, "10"), dbtest.Line(b.ID, 1, "20"))
	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 4, 2), dbtest.Line(b.ID, 2, "20"))

	onlyA, err := reports.GetSalesByDimension(ctx, "product", []int{a.ID}, year(2024), []string{"year"})
	require.NoError(t, err)
	require.Len(t, onlyA.Rows, 1)
	assert.Equal(t, a.ID, *onlyA.Rows[0].ProductId)
	assert.Equal(t, "A", *onlyA.Rows[0].ProductName)
	assertDec(t, "30", onlyA.Rows[0].Sales, "sales of A")
	assertDec(t, "12", onlyA.Rows[0].Profit, "profit of A")
	assert.Equal(t, 3, onlyA.Rows[0].Units)

	onlyB, err := reports.GetSalesByDimension(ctx, "product", []int{b.ID}, year(2024), []string{"year"})
	require.NoError(t, err)
	require.Len(t, onlyB.Rows, 1)
	assert.Equal(t, b.ID, *onlyB.Rows[0].ProductId)
	assertDec(t, "60", onlyB.Rows[0].Sales, "sales of B")
	assertDec(t, "24", onlyB.Rows[0].Profit, "profit of B")
	assert.Equal(t, 3, onlyB.Rows[0].Units)
}

func TestSalesByCustomerFiltersIds(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	p := c.Product(t, ctx, "Musk", "4", "10", 100)
	regular := c.NewCustomer(t, ctx, "Regular")

	dbtest.Invoice(t, ctx, c.Customer.ID, false, dbtest.Date(2024, 6, 1), dbtest.Line(p.ID, 1, "10"))
	dbtest.Invoice(t, ctx, regular.ID, false, dbtest.Date(2024, 6, 2), dbtest.Line(p.ID, 2, "10"))

	report, err := reports.GetSalesByDimension(ctx, "customer", []int{regular.ID}, year(2024), []string{"product"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, regular.ID, *row.CustomerId)
	assert.Equal(t, "Regular", *row.CustomerName)
	assert.Equal(t, p.ID, *row.ProductId)
	assert.Equal(t, "Musk", *row.ProductName)
	assert.Nil(t, row.Year)
	assertDec(t, "20", row.Sales, "sales")
}

func TestSalesReportRejectsBadQueries(t *testing.T) {
	ctx := context.Background()
	rangeWithMonth := reports.DateFilterInput{
		Month:     intp(3),
		DateStart: datep(2024, 3, 1),
		DateEnd:   datep(2024, 3, 31),
	}

	_, err := reports.GetSalesTotals(ctx, rangeWithMonth, nil)
	if !errors.Is(err, reports.ErrAmbiguousOrMissingDateFilter) {
		t.Fatalf("month with range: got %v", err)
	}
	_, err = reports.GetSalesByDimension(ctx, "customer", []int{}, year(2024), nil)
	if !errors.Is(err, reports.ErrInvalidGroupBy) {
		t.Fatalf("customer without ids: got %v", err)
	}
	_, err = reports.GetSalesByDimension(ctx, "total", nil, year(2024), nil)
	if !errors.Is(err, reports.ErrInvalidGroupBy) {
		t.Fatalf("total as dimension: got %v", err)
	}
	if models.KindOf(err) != models.KindQuery {
		t.Fatalf("kind %v, want query", models.KindOf(err))
	}
}
