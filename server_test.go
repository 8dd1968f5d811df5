package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/internal/dbtest"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/models/reports"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	ready.Store(true)
}

func do(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrEmptyInvoice, http.StatusBadRequest},
		{fmt.Errorf("%w: detail", models.ErrInvalidReturn), http.StatusBadRequest},
		{reports.ErrInvalidGroupBy, http.StatusBadRequest},
		{models.ErrOverPayment, http.StatusUnprocessableEntity},
		{models.ErrReferenceProtected, http.StatusUnprocessableEntity},
		{models.ErrInvoiceNotFound, http.StatusNotFound},
		{models.ErrConflict, http.StatusConflict},
		{utils.ErrLockNotObtained, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Fatalf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealthzAndReadiness(t *testing.T) {
	prev := config.GetDB()
	config.SetDB(nil)
	defer config.SetDB(prev)

	r := newRouter(config.GetLogger())
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/v1/customers", nil).Code)
}

func TestReadinessWaitsForMigrations(t *testing.T) {
	dbtest.Open(t)
	ready.Store(false)
	defer ready.Store(true)

	r := newRouter(config.GetLogger())
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/v1/customers", nil).Code)

	ready.Store(true)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/customers", nil).Code)
}

func TestLogLoaderErrors(t *testing.T) {
	dbFailure := errors.New("connection refused")
	tests := []struct {
		name string
		errs []error
		want []error
	}{
		{"no errors", nil, nil},
		{"missing rows only", []error{nil, fmt.Errorf("%w: id 4", models.ErrProductNotFound)}, nil},
		{"database failure", []error{fmt.Errorf("%w: id 4", models.ErrProductNotFound), dbFailure, dbFailure}, []error{dbFailure, dbFailure}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := logLoaderErrors("TestLogLoaderErrors", "load products", tt.errs, models.ErrProductNotFound)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferenceRoutes(t *testing.T) {
	dbtest.Open(t)
	r := newRouter(config.GetLogger())

	w := do(t, r, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Ali", "primary_phone": "0300 1234567"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Customer](t, w)
	require.NotNil(t, created.PrimaryPhone)
	assert.Equal(t, "+923001234567", *created.PrimaryPhone)

	w = do(t, r, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Ali"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Conflict", decode[map[string]any](t, w)["error"])

	w = do(t, r, http.MethodPost, "/api/v1/categories", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "InvalidRequest", body["error"])
	assert.Equal(t, map[string]any{"Name": "required"}, body["fields"])

	w = do(t, r, http.MethodGet, "/api/v1/customers?name=al", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Customer](t, w), 1)

	w = do(t, r, http.MethodGet, "/api/v1/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, r, http.MethodGet, "/api/v1/customers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, fmt.Sprintf("/api/v1/customers/%d", created.ID), map[string]any{"name": "Ali Khan"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ali Khan", decode[models.Customer](t, w).Name)

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/customers/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/v1/nowhere", nil).Code)
}

func TestInvoicePaymentAndReportRoutes(t *testing.T) {
	dbtest.Open(t)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	a := c.Product(t, ctx, "A", "6", "10", 10)
	b := c.Product(t, ctx, "B", "12", "20", 10)
	r := newRouter(config.GetLogger())

	w := do(t, r, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customer_id":  c.Customer.ID,
		"credit":       true,
		"date_of_sale": "2024-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"product_id": a.ID, "quantity": 3, "sell_price": "10"},
			{"product_id": b.ID, "quantity": 1, "sell_price": "20"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode[map[string]any](t, w)
	assert.Equal(t, "50", invoice["invoice_total"])
	invoiceId := int(invoice["id"].(float64))

	w = do(t, r, http.MethodPost, "/api/v1/invoices", map[string]any{"customer_id": c.Customer.ID, "lines": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EmptyInvoice", decode[map[string]any](t, w)["error"])

	for _, quantity := range []int{0, -2} {
		w = do(t, r, http.MethodPost, "/api/v1/invoices", map[string]any{
			"customer_id": c.Customer.ID,
			"lines":       []map[string]any{{"product_id": a.ID, "quantity": quantity, "sell_price": "10"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "quantity %d", quantity)
		assert.Equal(t, "InvalidLine", decode[map[string]any](t, w)["error"], "quantity %d", quantity)
	}

	w = do(t, r, http.MethodPost, "/api/v1/payments", map[string]any{"invoice_id": invoiceId, "payment": "60"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "OverPayment", decode[map[string]any](t, w)["error"])

	w = do(t, r, http.MethodPost, "/api/v1/payments", map[string]any{
		"invoice_id": invoiceId, "payment": "20", "date_of_payment": "2024-03-12T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	returns := fmt.Sprintf("/api/v1/invoices/%d/returns", invoiceId)
	w = do(t, r, http.MethodPut, returns, map[string]any{"returns": []map[string]any{{"product_id": a.ID, "returned_quantity": 5}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidReturn", decode[map[string]any](t, w)["error"])

	w = do(t, r, http.MethodGet, "/api/v1/invoices?unpaid_only=true&customer_name=walk", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]map[string]any](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, "Walk-in", listed[0]["customer_name"])
	assert.Equal(t, "0.4", listed[0]["collection_ratio"])
	assert.Equal(t, map[string]any{fmt.Sprint(a.ID): "A", fmt.Sprint(b.ID): "B"}, listed[0]["product_names"])

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/payments?invoice_id=%d", invoiceId), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.CreditPayment](t, w), 1)

	w = do(t, r, http.MethodGet, "/api/v1/sales/total?year=2024&group_by=year,month", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[reports.SalesReport](t, w)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "20", report.Rows[0].Sales.String())
	assert.Equal(t, "8", report.Rows[0].Profit.String())

	w = do(t, r, http.MethodGet, "/api/v1/sales/customer?year=2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidGroupBy", decode[map[string]any](t, w)["error"])

	w = do(t, r, http.MethodGet, "/api/v1/sales/total?month=3&date_start=2024-03-01&date_end=2024-03-31", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "AmbiguousOrMissingDateFilter", decode[map[string]any](t, w)["error"])

	w = do(t, r, http.MethodGet, "/api/v1/sales/total?year=twenty", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/cashflow?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	flows := decode[[]reports.CashflowRow](t, w)
	require.Len(t, flows, 1)
	assert.Equal(t, "2024-03-12", flows[0].Bucket)
	assert.Equal(t, reports.CashflowCreditPayment, flows[0].Type)

	w = do(t, r, http.MethodGet, "/api/v1/cashflow?year=2024&format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cashflow_")

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/invoices/%d", invoiceId), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMutatingRoutesNeedTokenWhenSecretSet(t *testing.T) {
	dbtest.Open(t)
	t.Setenv("API_SECRET", "s3cret")
	r := newRouter(config.GetLogger())

	w := do(t, r, http.MethodPost, "/api/v1/sources", map[string]any{"name": "Dubai"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/sources", nil).Code)

	token, err := utils.JwtGenerate(1, "owner", "admin")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sources", strings.NewReader(`{"name":"Dubai"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestProductImageUpload(t *testing.T) {
	dbtest.Open(t)
	dir := t.TempDir()
	t.Setenv("STORAGE_PROVIDER", "local")
	t.Setenv("UPLOAD_DIR", dir)
	ctx := context.Background()
	c := dbtest.NewCatalog(t, ctx)
	p := c.Product(t, ctx, "Musk", "4", "10", 1)
	r := newRouter(config.GetLogger())

	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		img.Set(x, x%300, color.RGBA{R: 200, A: 255})
	}
	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "musk.png")
	require.NoError(t, err)
	_, err = part.Write(pngData.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/products/%d/image", p.ID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[map[string]any](t, w)
	thumbURL, _ := resp["thumbnail_url"].(string)
	require.True(t, strings.HasPrefix(thumbURL, "/uploads/products/"), thumbURL)
	assert.True(t, strings.HasSuffix(thumbURL, ".jpg"))

	thumbPath := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(thumbURL, "/uploads/")))
	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 150, cfg.Height)

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/products/%d/image", p.ID), "not multipart")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
