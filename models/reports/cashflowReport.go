package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type CashflowType string

const (
	CashflowInvoice       CashflowType = "invoice"
	CashflowCreditPayment CashflowType = "credit_payment"
)

func (t CashflowType) order() int {
	if t == CashflowInvoice {
		return 0
	}
	return 1
}

type CashflowRow struct {
	Bucket string          `json:"bucket"`
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Day    *int            `json:"day,omitempty"`
	Type   CashflowType    `json:"type"`
	Cash   decimal.Decimal `json:"cash"`
}

type cashflowKey struct {
	bucket string
	typ    CashflowType
}

// GetCashflow unions cash-invoice revenue by sale date with credit payments by
// payment date. Buckets are days for a single-month filter and months otherwise.
// The two streams are never netted against each other.
func GetCashflow(ctx context.Context, filter DateFilterInput) ([]*CashflowRow, error) {
	started := time.Now()
	window, err := ResolveDateFilter(filter, config.ReportLocation())
	if err != nil {
		return nil, err
	}
	byDay := window.Kind == FilterYearMonth

	ctx, span := tracer.Start(ctx, "reports.cashflow", trace.WithAttributes(
		attribute.String("report.filter", window.Kind.String()),
	))
	defer span.End()
	defer logSlowReport(ctx, "GetCashflow", started, map[string]any{"filter": window.Kind.String()})

	cacheKey := reportCacheKey(ctx, "cashflow", window.CacheKey())
	var cached []*CashflowRow
	if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
		span.SetAttributes(attribute.Bool("report.cache_hit", true))
		return cached, nil
	}

	db := config.GetDB().WithContext(ctx)

	var invoices []*models.Invoice
	err = db.Preload("Lines").
		Where("credit = ? AND date_of_sale >= ? AND date_of_sale < ?", false, window.From, window.To).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	var payments []*models.CreditPayment
	err = db.Where("date_of_payment >= ? AND date_of_payment < ?", window.From, window.To).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[cashflowKey]decimal.Decimal)
	rows := make(map[cashflowKey]*CashflowRow)
	add := func(at time.Time, typ CashflowType, amount decimal.Decimal) {
		local := at.In(window.Location)
		row := bucketRow(local, byDay, typ)
		k := cashflowKey{bucket: row.Bucket, typ: typ}
		if _, ok := rows[k]; !ok {
			rows[k] = row
			sums[k] = decimal.Zero
		}
		sums[k] = sums[k].Add(amount)
	}
	for _, inv := range invoices {
		add(inv.DateOfSale, CashflowInvoice, inv.InvoiceTotal())
	}
	for _, p := range payments {
		add(p.DateOfPayment, CashflowCreditPayment, p.Payment)
	}

	result := make([]*CashflowRow, 0, len(rows))
	for k, row := range rows {
		row.Cash = sums[k].Round(3)
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Bucket != result[j].Bucket {
			return result[i].Bucket < result[j].Bucket
		}
		return result[i].Type.order() < result[j].Type.order()
	})

	cacheSet(cacheKey, result)
	return result, nil
}

func bucketRow(local time.Time, byDay bool, typ CashflowType) *CashflowRow {
	row := &CashflowRow{Year: local.Year(), Month: int(local.Month()), Type: typ}
	if byDay {
		d := local.Day()
		row.Day = &d
		row.Bucket = fmt.Sprintf("%04d-%02d-%02d", row.Year, row.Month, d)
	} else {
		row.Bucket = fmt.Sprintf("%04d-%02d", row.Year, row.Month)
	}
	return row
}
