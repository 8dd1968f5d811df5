package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "Sheet1"

// ExcelTable is a header row plus data rows ready for export.
type ExcelTable struct {
	Header []string
	Rows   [][]interface{}
}

// Table lays out the group-by columns followed by sales, profit and units.
func (r *SalesReport) Table() ExcelTable {
	var header []string
	for _, d := range r.GroupBy {
		switch d {
		case DimYear, DimMonth, DimDay:
			header = append(header, string(d))
		default:
			header = append(header, string(d)+"_id", string(d)+"_name")
		}
	}
	header = append(header, "sales", "profit", "units")

	rows := make([][]interface{}, 0, len(r.Rows))
	for _, row := range r.Rows {
		var values []interface{}
		for _, d := range r.GroupBy {
			switch d {
			case DimYear:
				values = append(values, intOrBlank(row.Year))
			case DimMonth:
				values = append(values, intOrBlank(row.Month))
			case DimDay:
				values = append(values, intOrBlank(row.Day))
			case DimProduct:
				values = append(values, intOrBlank(row.ProductId), strOrBlank(row.ProductName))
			case DimCustomer:
				values = append(values, intOrBlank(row.CustomerId), strOrBlank(row.CustomerName))
			case DimCategory:
				values = append(values, intOrBlank(row.CategoryId), strOrBlank(row.CategoryName))
			case DimSource:
				values = append(values, intOrBlank(row.SourceId), strOrBlank(row.SourceName))
			case DimSupplier:
				values = append(values, intOrBlank(row.SupplierId), strOrBlank(row.SupplierName))
			}
		}
		sales, _ := row.Sales.Float64()
		profit, _ := row.Profit.Float64()
		values = append(values, sales, profit, row.Units)
		rows = append(rows, values)
	}
	return ExcelTable{Header: header, Rows: rows}
}

func CashflowTable(rows []*CashflowRow) ExcelTable {
	t := ExcelTable{Header: []string{"bucket", "type", "cash"}}
	for _, row := range rows {
		cash, _ := row.Cash.Float64()
		t.Rows = append(t.Rows, []interface{}{row.Bucket, string(row.Type), cash})
	}
	return t
}

// ExportRowsToExcel renders a table as a single-sheet xlsx workbook.
func ExportRowsToExcel(table ExcelTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range table.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(excelSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, values := range table.Rows {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(excelSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func intOrBlank(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func strOrBlank(v *string) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
