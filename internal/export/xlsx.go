package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"codequery/internal/core"
)

const (
	rowsSheet    = "Export"
	summarySheet = "Results"
	defaultSheet = "Sheet1"
)

var summaryHeader = []interface{}{"Name", "GTIN", "Count"}

const totalLabel = "Total records found"

// WriteRowsXLSX writes the result set to a single-sheet workbook.
func WriteRowsXLSX(w io.Writer, rs *core.ResultSet, labels map[string]string) error {
	table := make([][]interface{}, 0, len(rs.Rows)+1)
	header := make([]interface{}, len(rs.Columns))
	for i, h := range headers(rs.Columns, labels) {
		header[i] = h
	}
	table = append(table, header)
	for _, row := range rs.Rows {
		cells := make([]interface{}, len(rs.Columns))
		for i, col := range rs.Columns {
			cells[i] = cellValue(row[col])
		}
		table = append(table, cells)
	}
	return writeWorkbook(w, rowsSheet, table)
}

// WriteSummaryXLSX writes the per-GTIN counts with product names and a
// total row. The total is the report's totalCount, not the sum of rows.
func WriteSummaryXLSX(w io.Writer, summary *core.SummaryResult, s core.Settings) error {
	return writeWorkbook(w, summarySheet, summaryTable(summary, s))
}

func summaryTable(summary *core.SummaryResult, s core.Settings) [][]interface{} {
	table := [][]interface{}{summaryHeader}
	for _, row := range summary.Rows {
		name := s.ProductName(row.GTIN)
		if name == "" {
			name = row.GTIN
		}
		table = append(table, []interface{}{name, row.GTIN, row.Count})
	}
	return append(table, []interface{}{totalLabel, "", summary.TotalCount})
}

func writeWorkbook(w io.Writer, sheet string, table [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return err
	}
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// cellValue keeps numbers numeric and renders everything else as text.
func cellValue(v interface{}) interface{} {
	switch v.(type) {
	case int64, int32, int, float64, bool:
		return v
	}
	return formatValue(v)
}
