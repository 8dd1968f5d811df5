package models

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/shopspring/decimal"
)

type CreditPayment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceId     int             `gorm:"not null;index" json:"invoice_id"`
	Payment       decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"payment"`
	DateOfPayment time.Time       `gorm:"not null;index" json:"date_of_payment"`
}

type NewCreditPayment struct {
	InvoiceId     int             `json:"invoice_id" binding:"required"`
	Payment       decimal.Decimal `json:"payment"`
	DateOfPayment *time.Time      `json:"date_of_payment"`
}

// RecordCreditPayment adds a payment to a credit invoice without letting the
// collected amount pass the invoice total.
func RecordCreditPayment(ctx context.Context, input *NewCreditPayment) (*CreditPayment, error) {
	if !input.Payment.IsPositive() {
		return nil, ErrInvalidPayment
	}

	release, err := utils.ObtainLock(ctx, "invoice", strconv.Itoa(input.InvoiceId), "models", "RecordCreditPayment")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := lockInvoice(tx, input.InvoiceId)
	if err != nil {
		return nil, err
	}
	if !invoice.Credit {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotCreditInvoice, invoice.ID)
	}
	totals := invoice.Totals()
	if totals.PaymentsTotal.GreaterThanOrEqual(totals.InvoiceTotal) {
		return nil, fmt.Errorf("%w: invoice %d", ErrAlreadyPaid, invoice.ID)
	}
	if input.Payment.GreaterThan(totals.RemainingBalance) {
		return nil, fmt.Errorf("%w: remaining balance is %s", ErrOverPayment, totals.RemainingBalance.StringFixed(3))
	}

	paidAt := time.Now().UTC()
	if input.DateOfPayment != nil && !input.DateOfPayment.IsZero() {
		paidAt = input.DateOfPayment.UTC()
	}
	payment := CreditPayment{
		InvoiceId:     invoice.ID,
		Payment:       input.Payment,
		DateOfPayment: paidAt,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	afterLedgerWrite(ctx, LedgerEventPaymentRecorded, invoice.ID, &payment.ID, &payment)
	return &payment, nil
}

func DeleteCreditPayment(ctx context.Context, id int) (*CreditPayment, error) {
	db := config.GetDB()
	payment, err := utils.FetchSingleModel[CreditPayment](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrPaymentNotFound)
	}
	if err := db.WithContext(ctx).Delete(payment).Error; err != nil {
		return nil, err
	}
	afterLedgerWrite(ctx, LedgerEventPaymentDeleted, payment.InvoiceId, &payment.ID, payment)
	return payment, nil
}

func GetCreditPayment(ctx context.Context, id int) (*CreditPayment, error) {
	payment, err := utils.FetchSingleModel[CreditPayment](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrPaymentNotFound)
	}
	return payment, nil
}

// ListCreditPayments lists payments oldest first, optionally for one invoice.
func ListCreditPayments(ctx context.Context, invoiceId *int) ([]*CreditPayment, error) {
	var results []*CreditPayment
	dbCtx := config.GetDB().WithContext(ctx)
	if invoiceId != nil {
		dbCtx = dbCtx.Where("invoice_id = ?", *invoiceId)
	}
	if err := dbCtx.Order("date_of_payment").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
