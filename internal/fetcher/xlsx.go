package fetcher

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows to skip before the header row
}

// ReadXLSXRows reads an XLSX sheet and returns all rows as string slices.
func ReadXLSXRows(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

// ReadXLSX decodes a headed XLSX sheet into records of T using the same
// column mapping as ReadCSV.
func ReadXLSX[T any](path string, opts XLSXOptions) ([]T, error) {
	rows, err := ReadXLSXRows(path, opts)
	if err != nil {
		return nil, err
	}
	return decodeRecords[T](&rowsReader{rows: rows}, "xlsx")
}

// WriteXLSXSheet appends a sheet with a header row followed by rows.
func WriteXLSXSheet(f *xlsx.File, name string, header []string, rows [][]any) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "xlsx: add sheet %s", name)
	}
	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, values := range rows {
		r := sheet.AddRow()
		for _, v := range values {
			c := r.AddCell()
			switch tv := v.(type) {
			case float64:
				c.SetFloat(tv)
			case int:
				c.SetInt(tv)
			case string:
				c.SetString(tv)
			case nil:
				c.SetString("")
			default:
				c.SetValue(tv)
			}
		}
	}
	return nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// rowsReader adapts materialised sheet rows to csvutil.Reader.
type rowsReader struct {
	rows [][]string
	pos  int
}

func (r *rowsReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}
