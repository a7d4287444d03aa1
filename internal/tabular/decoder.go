package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row maps a column label to the raw cell value for one spreadsheet row.
type Row map[string]string

// Dataset is the decoded form of one sheet: the header labels in source
// order plus every data row keyed by those labels.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// Cells returns the raw values of one row in column order, used when a
// caller needs a stable serialization of the row (checksums, snapshots).
func (d *Dataset) Cells(row Row) []string {
	cells := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		cells[i] = row[col]
	}
	return cells
}

// DecodeError reports bytes that could not be parsed as a supported
// tabular format.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s content: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}
	oleMagic  = []byte{0xd0, 0xcf, 0x11, 0xe0}
)

// Decode parses raw upload bytes into a Dataset using the first sheet.
func Decode(content []byte) (*Dataset, error) {
	return DecodeSheet(content, "")
}

// DecodeSheet parses raw upload bytes, reading the named sheet when given
// and the first sheet otherwise. xlsx workbooks are recognized by their zip
// signature; legacy OLE .xls workbooks are rejected rather than misread as
// text. Everything else is treated as comma-separated text.
func DecodeSheet(content []byte, sheet string) (*Dataset, error) {
	if bytes.HasPrefix(content, xlsxMagic) {
		return decodeXLSX(content, sheet)
	}
	if bytes.HasPrefix(content, oleMagic) {
		return nil, &DecodeError{Format: "xls", Err: fmt.Errorf("legacy .xls workbooks are not supported, save as .xlsx")}
	}
	return decodeCSV(content)
}

func decodeXLSX(content []byte, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}

	return fromGrid(rows)
}

func decodeCSV(content []byte) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var grid [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Format: "csv", Err: err}
		}
		grid = append(grid, record)
	}

	return fromGrid(grid)
}

func fromGrid(grid [][]string) (*Dataset, error) {
	if len(grid) == 0 {
		return nil, &DecodeError{Format: "tabular", Err: fmt.Errorf("no header row")}
	}

	columns := make([]string, len(grid[0]))
	for i, label := range grid[0] {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(label, "\uFEFF"))
	}

	ds := &Dataset{Columns: columns, Rows: make([]Row, 0, len(grid)-1)}
	for _, cells := range grid[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}
