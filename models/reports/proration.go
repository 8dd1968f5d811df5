package reports

import (
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/shopspring/decimal"
)

// Realized is the cash-equivalent sales and profit attributed to a sale.
type Realized struct {
	Sales  decimal.Decimal
	Profit decimal.Decimal
}

func (r Realized) Add(o Realized) Realized {
	return Realized{Sales: r.Sales.Add(o.Sales), Profit: r.Profit.Add(o.Profit)}
}

// RealizeInvoice: a cash invoice realizes its totals; a credit invoice realizes
// what has been paid and the matching share of its profit.
// The ratio is the current one, so past periods move as payments arrive.
func RealizeInvoice(inv *models.Invoice) Realized {
	totals := inv.Totals()
	if !inv.Credit {
		return Realized{Sales: totals.InvoiceTotal, Profit: totals.ProfitTotal}
	}
	return Realized{
		Sales:  totals.PaymentsTotal,
		Profit: totals.ProfitTotal.Mul(totals.CollectionRatio),
	}
}

// RealizeLine prorates one line by the owning invoice's collection ratio.
func RealizeLine(inv *models.Invoice, line models.InvoiceLine) Realized {
	return realizeLine(inv.Credit, inv.CollectionRatio(), line)
}

func realizeLine(credit bool, ratio decimal.Decimal, line models.InvoiceLine) Realized {
	if !credit {
		return Realized{Sales: line.Sales(), Profit: line.Profit()}
	}
	return Realized{
		Sales:  line.Sales().Mul(ratio),
		Profit: line.Profit().Mul(ratio),
	}
}
