package models

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindBusinessRule ErrorKind = "business_rule"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindQuery        ErrorKind = "query"
)

// LedgerError is a sentinel carrying its kind and a stable code.
// Compare with errors.Is against the package vars; wrap with %w for detail.
type LedgerError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *LedgerError) Error() string {
	return e.Message
}

func NewLedgerError(kind ErrorKind, code string, message string) *LedgerError {
	return &LedgerError{Kind: kind, Code: code, Message: message}
}

var (
	ErrEmptyInvoice     = NewLedgerError(KindValidation, "EmptyInvoice", "invoice must have at least one line")
	ErrInvalidLine      = NewLedgerError(KindValidation, "InvalidLine", "invalid invoice line")
	ErrInvalidReturn    = NewLedgerError(KindValidation, "InvalidReturn", "invalid returned quantity")
	ErrInvalidPayment   = NewLedgerError(KindValidation, "InvalidPayment", "payment must be greater than zero")
	ErrInvalidReference = NewLedgerError(KindValidation, "InvalidReference", "invalid reference field")
	ErrInvalidField     = NewLedgerError(KindValidation, "InvalidField", "invalid field value")

	ErrNotCreditInvoice   = NewLedgerError(KindBusinessRule, "NotCreditInvoice", "payments can only be recorded against credit invoices")
	ErrAlreadyPaid        = NewLedgerError(KindBusinessRule, "AlreadyPaid", "invoice is already fully paid")
	ErrOverPayment        = NewLedgerError(KindBusinessRule, "OverPayment", "payment exceeds the remaining balance")
	ErrInvoiceProtected   = NewLedgerError(KindBusinessRule, "InvoiceProtected", "invoice still has lines or payments")
	ErrReferenceProtected = NewLedgerError(KindBusinessRule, "ReferenceProtected", "record is still referenced")

	ErrProductNotFound      = NewLedgerError(KindNotFound, "ProductNotFound", "product not found")
	ErrInvoiceNotFound      = NewLedgerError(KindNotFound, "InvoiceNotFound", "invoice not found")
	ErrCustomerNotFound     = NewLedgerError(KindNotFound, "CustomerNotFound", "customer not found")
	ErrInvoiceLineNotFound  = NewLedgerError(KindNotFound, "InvoiceLineNotFound", "invoice has no line for product")
	ErrPaymentNotFound      = NewLedgerError(KindNotFound, "PaymentNotFound", "credit payment not found")
	ErrSupplierNotFound     = NewLedgerError(KindNotFound, "SupplierNotFound", "supplier not found")
	ErrSourceNotFound       = NewLedgerError(KindNotFound, "SourceNotFound", "source not found")
	ErrCategoryNotFound     = NewLedgerError(KindNotFound, "CategoryNotFound", "category not found")

	ErrConflict = NewLedgerError(KindConflict, "Conflict", "record already exists")
)

// KindOf returns the kind of the first LedgerError in err's chain, "" otherwise.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// CodeOf returns the code of the first LedgerError in err's chain.
func CodeOf(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// translateDbError maps gorm errors onto ledger sentinels.
func translateDbError(err error, notFound *LedgerError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, utils.ErrorRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
