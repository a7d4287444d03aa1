// Package parse turns normalized datasets into typed domain records.
// Parsing is tolerant: each row either yields a record or a skip with a
// reason, and a bad row never aborts the file.
package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aftersales-hub/factory-reports/internal/tabular"
)

// Skip describes one rejected row. Row indexes are 1-based data row
// numbers, matching what an operator sees in the spreadsheet minus the
// header.
type Skip struct {
	Row    int
	Reason string
}

func (s Skip) String() string {
	return fmt.Sprintf("row %d: %s", s.Row, s.Reason)
}

func skipf(row int, format string, args ...any) Skip {
	return Skip{Row: row, Reason: fmt.Sprintf(format, args...)}
}

// dateLayouts covers the spellings seen in the source spreadsheets plus
// the default date style excelize renders for date-formatted cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"01-02-06",
}

func stringField(row tabular.Row, key string) string {
	return strings.TrimSpace(row[key])
}

func intField(row tabular.Row, key string) (int, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	// spreadsheets frequently render integer quantities as "3.0"
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return int(f), nil
}

func decimalField(row tabular.Row, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return d, nil
}

func dateField(row tabular.Row, key string) (*time.Time, error) {
	raw := strings.TrimSpace(row[key])
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is not a date", key, raw)
}

// snapshot preserves the row verbatim for audit storage.
func snapshot(row tabular.Row) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
