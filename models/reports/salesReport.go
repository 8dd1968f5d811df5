package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/retail_ledger/models/reports")

type SalesRow struct {
	Year         *int            `json:"year,omitempty"`
	Month        *int            `json:"month,omitempty"`
	Day          *int            `json:"day,omitempty"`
	ProductId    *int            `json:"product_id,omitempty"`
	ProductName  *string         `json:"product_name,omitempty"`
	CustomerId   *int            `json:"customer_id,omitempty"`
	CustomerName *string         `json:"customer_name,omitempty"`
	CategoryId   *int            `json:"category_id,omitempty"`
	CategoryName *string         `json:"category_name,omitempty"`
	SourceId     *int            `json:"source_id,omitempty"`
	SourceName   *string         `json:"source_name,omitempty"`
	SupplierId   *int            `json:"supplier_id,omitempty"`
	SupplierName *string         `json:"supplier_name,omitempty"`
	Sales        decimal.Decimal `json:"sales"`
	Profit       decimal.Decimal `json:"profit"`
	Units        int             `json:"units"`
}

type SalesReport struct {
	Endpoint Endpoint    `json:"endpoint"`
	GroupBy  []Dimension `json:"group_by"`
	Rows     []*SalesRow `json:"rows"`
}

// GetSalesTotals groups realized sales and profit of whole invoices by time dimensions.
func GetSalesTotals(ctx context.Context, filter DateFilterInput, groupBy []string) (*SalesReport, error) {
	return salesReport(ctx, EndpointTotal, nil, filter, groupBy)
}

// GetSalesByDimension groups prorated line figures by an entity dimension plus
// the requested extra dimensions. ids restricts the endpoint's own dimension.
func GetSalesByDimension(ctx context.Context, dimension string, ids []int, filter DateFilterInput, groupBy []string) (*SalesReport, error) {
	endpoint, err := ParseEndpoint(dimension)
	if err != nil {
		return nil, err
	}
	return salesReport(ctx, endpoint, ids, filter, groupBy)
}

// groupKey holds one value per dimension; unused dimensions stay zero.
type groupKey struct {
	year, month, day                              int
	product, customer, category, source, supplier int
}

func (k groupKey) value(d Dimension) int {
	switch d {
	case DimYear:
		return k.year
	case DimMonth:
		return k.month
	case DimDay:
		return k.day
	case DimProduct:
		return k.product
	case DimCustomer:
		return k.customer
	case DimCategory:
		return k.category
	case DimSource:
		return k.source
	case DimSupplier:
		return k.supplier
	}
	return 0
}

type salesAcc struct {
	realized Realized
	units    int
}

func salesReport(ctx context.Context, endpoint Endpoint, ids []int, filter DateFilterInput, groupBy []string) (*SalesReport, error) {
	started := time.Now()

	window, err := ResolveDateFilter(filter, config.ReportLocation())
	if err != nil {
		return nil, err
	}
	ids = utils.UniqueSlice(ids)
	sort.Ints(ids)
	dims, err := ResolveGroupBy(endpoint, groupBy, window.Kind, ids)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "reports.sales", trace.WithAttributes(
		attribute.String("report.endpoint", string(endpoint)),
		attribute.String("report.group_by", dimsKey(dims)),
		attribute.String("report.filter", window.Kind.String()),
	))
	defer span.End()
	defer logSlowReport(ctx, "salesReport", started, map[string]any{"endpoint": endpoint, "group_by": dimsKey(dims)})

	cacheKey := reportCacheKey(ctx, "sales", endpoint, window.CacheKey(), dimsKey(dims), intsKey(ids))
	var cached SalesReport
	if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
		span.SetAttributes(attribute.Bool("report.cache_hit", true))
		return &cached, nil
	}

	db := config.GetDB().WithContext(ctx)
	invoices, err := loadInvoices(db, window, endpoint, ids)
	if err != nil {
		return nil, err
	}
	lk, err := loadLookups(db, invoices, dims, endpoint)
	if err != nil {
		return nil, err
	}

	idSet := make(map[int]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	groups := make(map[groupKey]*salesAcc)
	add := func(k groupKey, r Realized, units int) {
		acc, ok := groups[k]
		if !ok {
			acc = &salesAcc{realized: Realized{Sales: decimal.Zero, Profit: decimal.Zero}}
			groups[k] = acc
		}
		acc.realized = acc.realized.Add(r)
		acc.units += units
	}

	for _, inv := range invoices {
		base := timeKey(inv.DateOfSale.In(window.Location), dims)
		if endpoint == EndpointTotal {
			units := 0
			for _, line := range inv.Lines {
				units += line.NetQuantity()
			}
			add(base, RealizeInvoice(inv), units)
			continue
		}

		ratio := inv.CollectionRatio()
		for _, line := range inv.Lines {
			k, ok := lk.lineKey(base, inv, line)
			if !ok {
				continue
			}
			if len(idSet) > 0 && !idSet[k.value(Dimension(endpoint))] {
				continue
			}
			add(k, realizeLine(inv.Credit, ratio, line), line.NetQuantity())
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		for _, d := range dims {
			a, b := keys[i].value(d), keys[j].value(d)
			if a != b {
				return a < b
			}
		}
		return false
	})

	report := &SalesReport{Endpoint: endpoint, GroupBy: dims, Rows: make([]*SalesRow, 0, len(keys))}
	for _, k := range keys {
		acc := groups[k]
		row := lk.row(k, dims)
		row.Sales = acc.realized.Sales.Round(3)
		row.Profit = acc.realized.Profit.Round(3)
		row.Units = acc.units
		report.Rows = append(report.Rows, row)
	}

	cacheSet(cacheKey, report)
	return report, nil
}

// loadInvoices reads invoices sold inside the window with all their lines and
// payments; every line is needed for the collection ratio.
func loadInvoices(db *gorm.DB, window DateWindow, endpoint Endpoint, ids []int) ([]*models.Invoice, error) {
	q := db.Preload("Lines").Preload("Payments").
		Where("date_of_sale >= ? AND date_of_sale < ?", window.From, window.To)
	if len(ids) > 0 {
		switch endpoint {
		case EndpointCustomer:
			q = q.Where("customer_id IN ?", ids)
		case EndpointProduct:
			q = q.Where("id IN (SELECT invoice_id FROM invoice_lines WHERE product_id IN ?)", ids)
		}
	}
	var invoices []*models.Invoice
	if err := q.Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func timeKey(local time.Time, dims []Dimension) groupKey {
	var k groupKey
	for _, d := range dims {
		switch d {
		case DimYear:
			k.year = local.Year()
		case DimMonth:
			k.month = int(local.Month())
		case DimDay:
			k.day = local.Day()
		}
	}
	return k
}

// lookups resolves entity ids and display names for dimension rows.
type lookups struct {
	products   map[int]*models.Product
	customers  map[int]string
	categories map[int]string
	sources    map[int]string
	suppliers  map[int]string
	grouped    map[Dimension]bool
}

func loadLookups(db *gorm.DB, invoices []*models.Invoice, dims []Dimension, endpoint Endpoint) (*lookups, error) {
	lk := &lookups{
		products:   map[int]*models.Product{},
		customers:  map[int]string{},
		categories: map[int]string{},
		sources:    map[int]string{},
		suppliers:  map[int]string{},
		grouped:    make(map[Dimension]bool, len(dims)),
	}
	for _, d := range dims {
		lk.grouped[d] = true
	}
	if endpoint == EndpointTotal {
		return lk, nil
	}
	want := lk.grouped

	var productIds, customerIds []int
	for _, inv := range invoices {
		customerIds = append(customerIds, inv.CustomerId)
		for _, line := range inv.Lines {
			productIds = append(productIds, line.ProductId)
		}
	}
	productIds = utils.UniqueSlice(productIds)
	if len(productIds) > 0 {
		var products []*models.Product
		if err := db.Where("id IN ?", productIds).Find(&products).Error; err != nil {
			return nil, err
		}
		for _, p := range products {
			lk.products[p.ID] = p
		}
	}

	if want[DimCustomer] {
		if err := loadNames(db, &models.Customer{}, "name", utils.UniqueSlice(customerIds), lk.customers); err != nil {
			return nil, err
		}
	}
	var categoryIds, sourceIds, supplierIds []int
	for _, p := range lk.products {
		categoryIds = append(categoryIds, p.CategoryId)
		sourceIds = append(sourceIds, p.SourceId)
		supplierIds = append(supplierIds, p.SupplierId)
	}
	if want[DimCategory] {
		if err := loadNames(db, &models.Category{}, "name", utils.UniqueSlice(categoryIds), lk.categories); err != nil {
			return nil, err
		}
	}
	if want[DimSource] {
		if err := loadNames(db, &models.Source{}, "name", utils.UniqueSlice(sourceIds), lk.sources); err != nil {
			return nil, err
		}
	}
	if want[DimSupplier] {
		if err := loadNames(db, &models.Supplier{}, "company", utils.UniqueSlice(supplierIds), lk.suppliers); err != nil {
			return nil, err
		}
	}
	return lk, nil
}

func loadNames(db *gorm.DB, model any, column string, ids []int, dest map[int]string) error {
	if len(ids) == 0 {
		return nil
	}
	var rows []struct {
		ID   int
		Name string
	}
	err := db.Model(model).Select(fmt.Sprintf("id, %s AS name", column)).Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		dest[r.ID] = r.Name
	}
	return nil
}

// lineKey extends the time key with the entity dimensions of one line.
// Lines whose product no longer exists are skipped.
func (lk *lookups) lineKey(base groupKey, inv *models.Invoice, line models.InvoiceLine) (groupKey, bool) {
	product, ok := lk.products[line.ProductId]
	if !ok {
		return base, false
	}
	// entity fields that are not grouped stay zero so their lines merge
	k := base
	if lk.grouped[DimProduct] {
		k.product = product.ID
	}
	if lk.grouped[DimCustomer] {
		k.customer = inv.CustomerId
	}
	if lk.grouped[DimCategory] {
		k.category = product.CategoryId
	}
	if lk.grouped[DimSource] {
		k.source = product.SourceId
	}
	if lk.grouped[DimSupplier] {
		k.supplier = product.SupplierId
	}
	return k, true
}

func (lk *lookups) row(k groupKey, dims []Dimension) *SalesRow {
	row := &SalesRow{}
	for _, d := range dims {
		v := k.value(d)
		switch d {
		case DimYear:
			row.Year = &v
		case DimMonth:
			row.Month = &v
		case DimDay:
			row.Day = &v
		case DimProduct:
			row.ProductId = &v
			if p, ok := lk.products[v]; ok {
				row.ProductName = &p.Name
			}
		case DimCustomer:
			row.CustomerId = &v
			row.CustomerName = nameOf(lk.customers, v)
		case DimCategory:
			row.CategoryId = &v
			row.CategoryName = nameOf(lk.categories, v)
		case DimSource:
			row.SourceId = &v
			row.SourceName = nameOf(lk.sources, v)
		case DimSupplier:
			row.SupplierId = &v
			row.SupplierName = nameOf(lk.suppliers, v)
		}
	}
	return row
}

func nameOf(names map[int]string, id int) *string {
	if n, ok := names[id]; ok {
		return &n
	}
	return nil
}

func intsKey(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
