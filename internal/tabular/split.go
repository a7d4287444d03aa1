package tabular

import "strings"

// SplitByFactory returns the subset of rows whose factory column value,
// uppercased and trimmed, equals the target code. With no known factory
// column the dataset is returned unchanged: single-factory files carry the
// code in the filename and have nothing to filter on.
func SplitByFactory(ds *Dataset, factoryColumn, code string) *Dataset {
	if factoryColumn == "" {
		return ds
	}

	subset := &Dataset{Columns: ds.Columns}
	for _, row := range ds.Rows {
		if strings.ToUpper(strings.TrimSpace(row[factoryColumn])) == code {
			subset.Rows = append(subset.Rows, row)
		}
	}

	return subset
}
