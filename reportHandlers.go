package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/models/reports"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func dateFilterFromQuery(c *gin.Context) (reports.DateFilterInput, error) {
	var in reports.DateFilterInput
	var err error
	if in.Year, err = queryInt(c, "year"); err != nil {
		return in, err
	}
	if in.Month, err = queryInt(c, "month"); err != nil {
		return in, err
	}
	if in.DateStart, err = queryDate(c, "date_start"); err != nil {
		return in, err
	}
	if in.DateEnd, err = queryDate(c, "date_end"); err != nil {
		return in, err
	}
	return in, nil
}

func wantsXlsx(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Query("format")), "xlsx")
}

func respondXlsx(c *gin.Context, name string, table reports.ExcelTable) {
	data, err := reports.ExportRowsToExcel(table)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func respondSalesReport(c *gin.Context, report *reports.SalesReport) {
	if wantsXlsx(c) {
		respondXlsx(c, "sales_"+string(report.Endpoint), report.Table())
		return
	}
	c.JSON(http.StatusOK, report)
}

func salesTotalsHandler(c *gin.Context) {
	filter, err := dateFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := reports.GetSalesTotals(c.Request.Context(), filter, utils.SplitAndTrim(c.Query("group_by")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSalesReport(c, report)
}

func salesByDimensionHandler(c *gin.Context) {
	filter, err := dateFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ids, err := queryInts(c, "ids")
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := reports.GetSalesByDimension(c.Request.Context(), c.Param("dimension"), ids, filter, utils.SplitAndTrim(c.Query("group_by")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSalesReport(c, report)
}

func cashflowHandler(c *gin.Context) {
	filter, err := dateFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := reports.GetCashflow(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if wantsXlsx(c) {
		respondXlsx(c, "cashflow", reports.CashflowTable(rows))
		return
	}
	c.JSON(http.StatusOK, rows)
}
