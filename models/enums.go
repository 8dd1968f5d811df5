package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

type MovementReason string

const (
	MovementReasonSale       MovementReason = "sale"
	MovementReasonReturn     MovementReason = "return"
	MovementReasonAdjustment MovementReason = "adjustment"
)

func (r MovementReason) IsValid() bool {
	switch r {
	case MovementReasonSale, MovementReasonReturn, MovementReasonAdjustment:
		return true
	}
	return false
}

// Value implements the driver.Valuer interface
func (r MovementReason) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid movement reason %q", string(r))
	}
	return string(r), nil
}

// Scan implements the sql.Scanner interface
func (r *MovementReason) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return errors.New("movement reason must be string")
	}
	*r = MovementReason(s)
	if !r.IsValid() {
		return fmt.Errorf("invalid movement reason %q", s)
	}
	return nil
}

// LedgerEventAction is the action carried by published ledger events.
type LedgerEventAction string

const (
	LedgerEventInvoiceCreated        LedgerEventAction = "invoice.created"
	LedgerEventInvoiceReturnsUpdated LedgerEventAction = "invoice.returns_updated"
	LedgerEventInvoiceDeleted        LedgerEventAction = "invoice.deleted"
	LedgerEventPaymentRecorded       LedgerEventAction = "payment.recorded"
	LedgerEventPaymentDeleted        LedgerEventAction = "payment.deleted"
)

// likePrefix builds the argument of a case-insensitive "LOWER(col) LIKE ?" prefix match.
func likePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix)) + "%"
}
