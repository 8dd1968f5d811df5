package models

import "github.com/shopspring/decimal"

// InvoiceTotals holds the figures derived from an invoice's current lines and payments.
// They are never persisted.
type InvoiceTotals struct {
	InvoiceTotal     decimal.Decimal `json:"invoice_total"`
	ProfitTotal      decimal.Decimal `json:"profit_total"`
	PaymentsTotal    decimal.Decimal `json:"payments_total"`
	CollectionRatio  decimal.Decimal `json:"collection_ratio"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// NetQuantity is quantity minus returned quantity.
func (l InvoiceLine) NetQuantity() int {
	return l.Quantity - l.ReturnedQuantity
}

func (l InvoiceLine) Sales() decimal.Decimal {
	return decimal.NewFromInt(int64(l.NetQuantity())).Mul(l.SellPrice)
}

func (l InvoiceLine) Profit() decimal.Decimal {
	return decimal.NewFromInt(int64(l.NetQuantity())).Mul(l.SellPrice.Sub(l.CostPrice))
}

func (inv *Invoice) InvoiceTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range inv.Lines {
		total = total.Add(line.Sales())
	}
	return total
}

func (inv *Invoice) ProfitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range inv.Lines {
		total = total.Add(line.Profit())
	}
	return total
}

func (inv *Invoice) PaymentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.Payments {
		total = total.Add(p.Payment)
	}
	return total
}

// CollectionRatio is payments_total / invoice_total, or 0 when the total is not positive.
func (inv *Invoice) CollectionRatio() decimal.Decimal {
	return collectionRatio(inv.PaymentsTotal(), inv.InvoiceTotal())
}

func (inv *Invoice) RemainingBalance() decimal.Decimal {
	return inv.InvoiceTotal().Sub(inv.PaymentsTotal())
}

func (inv *Invoice) Totals() InvoiceTotals {
	invoiceTotal := inv.InvoiceTotal()
	paymentsTotal := inv.PaymentsTotal()
	return InvoiceTotals{
		InvoiceTotal:     invoiceTotal,
		ProfitTotal:      inv.ProfitTotal(),
		PaymentsTotal:    paymentsTotal,
		CollectionRatio:  collectionRatio(paymentsTotal, invoiceTotal),
		RemainingBalance: invoiceTotal.Sub(paymentsTotal),
	}
}

func collectionRatio(paid, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return paid.Div(total)
}
