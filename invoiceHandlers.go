package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/middlewares"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/gin-gonic/gin"
)

// invoiceView is an invoice with its derived totals and display names.
type invoiceView struct {
	*models.InvoiceWithTotals
	CustomerName string         `json:"customer_name"`
	ProductNames map[int]string `json:"product_names"`
}

func newInvoiceViews(ctx context.Context, invoices []*models.InvoiceWithTotals) []*invoiceView {
	views := make([]*invoiceView, len(invoices))
	customerIds := make([]int, len(invoices))
	var productIds []int
	for i, inv := range invoices {
		customerIds[i] = inv.CustomerId
		for _, line := range inv.Lines {
			productIds = append(productIds, line.ProductId)
		}
	}

	customers, customerErrs := middlewares.GetCustomers(ctx, customerIds)
	logLoaderErrors("newInvoiceViews", "load customers", customerErrs, models.ErrCustomerNotFound)
	products, productErrs := middlewares.GetProducts(ctx, productIds)
	logLoaderErrors("newInvoiceViews", "load products", productErrs, models.ErrProductNotFound)
	names := make(map[int]string, len(products))
	for _, p := range products {
		if p != nil {
			names[p.ID] = p.Name
		}
	}

	for i, inv := range invoices {
		view := &invoiceView{InvoiceWithTotals: inv, ProductNames: make(map[int]string, len(inv.Lines))}
		if i < len(customers) && customers[i] != nil {
			view.CustomerName = customers[i].Name
		}
		for _, line := range inv.Lines {
			if name, ok := names[line.ProductId]; ok {
				view.ProductNames[line.ProductId] = name
			}
		}
		views[i] = view
	}
	return views
}

// logLoaderErrors logs loader failures other than notFound and returns them.
// A missing row only leaves its name blank.
func logLoaderErrors(funcName string, context string, errs []error, notFound error) []error {
	var failed []error
	for _, err := range errs {
		if err == nil || errors.Is(err, notFound) {
			continue
		}
		failed = append(failed, err)
	}
	if len(failed) > 0 {
		config.LogError(config.GetLogger(), "main", funcName, context, len(failed), failed[0])
	}
	return failed
}

func createInvoiceHandler(c *gin.Context) {
	var input models.NewInvoice
	if !bindJSON(c, &input) {
		return
	}
	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewInvoiceWithTotals(invoice))
}

func getInvoiceHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoiceWithTotals(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInvoiceViews(c.Request.Context(), []*models.InvoiceWithTotals{invoice})[0])
}

type returnsRequest struct {
	Returns []models.ReturnLine `json:"returns" binding:"dive"`
}

func updateReturnsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req returnsRequest
	if !bindJSON(c, &req) {
		return
	}
	invoice, err := models.UpdateInvoiceReturns(c.Request.Context(), id, req.Returns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewInvoiceWithTotals(invoice))
}

// endOfDay makes a YYYY-MM-DD upper bound cover the whole day.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

func invoiceFilterFromQuery(c *gin.Context) (models.InvoiceFilter, error) {
	var filter models.InvoiceFilter
	var err error
	if filter.Id, err = queryInt(c, "id"); err != nil {
		return filter, err
	}
	if filter.Credit, err = queryBool(c, "credit"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryDate(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryDate(c, "created_to"); err != nil {
		return filter, err
	}
	if filter.SaleFrom, err = queryDate(c, "sale_from"); err != nil {
		return filter, err
	}
	if filter.SaleTo, err = queryDate(c, "sale_to"); err != nil {
		return filter, err
	}
	filter.CreatedTo = endOfDay(filter.CreatedTo)
	filter.SaleTo = endOfDay(filter.SaleTo)
	filter.CustomerName = queryString(c, "customer_name")
	filter.ProductName = queryString(c, "product_name")

	unpaid, err := queryBool(c, "unpaid_only")
	if err != nil {
		return filter, err
	}
	last, err := queryBool(c, "last_only")
	if err != nil {
		return filter, err
	}
	filter.UnpaidOnly = unpaid != nil && *unpaid
	filter.LastOnly = last != nil && *last
	return filter, nil
}

func listInvoicesHandler(c *gin.Context) {
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	invoices, err := models.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInvoiceViews(c.Request.Context(), invoices))
}

func listPaymentsHandler(c *gin.Context) {
	invoiceId, err := queryInt(c, "invoice_id")
	if err != nil {
		respondError(c, err)
		return
	}
	payments, err := models.ListCreditPayments(c.Request.Context(), invoiceId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
