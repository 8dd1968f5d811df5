package reports

import "bitbucket.org/mmdatafocus/retail_ledger/models"

var (
	ErrAmbiguousOrMissingDateFilter = models.NewLedgerError(models.KindQuery, "AmbiguousOrMissingDateFilter",
		"give exactly one of year, year and month, or date_start and date_end")
	ErrInvalidGroupBy = models.NewLedgerError(models.KindQuery, "InvalidGroupBy", "invalid group by")
)
