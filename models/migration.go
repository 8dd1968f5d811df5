package models

import (
	"bitbucket.org/mmdatafocus/retail_ledger/config"
)

// Models lists every table, parents first.
func Models() []interface{} {
	return []interface{}{
		&Category{}, &Source{}, &Supplier{}, &Customer{},
		&Product{},
		&Invoice{}, &InvoiceLine{}, &CreditPayment{},
		&StockMovement{},
	}
}

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(Models()...)
}
