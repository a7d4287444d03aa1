package classify

import (
	"strings"

	"github.com/aftersales-hub/factory-reports/internal/models"
	"github.com/aftersales-hub/factory-reports/internal/tabular"
)

// DefaultFactories is the registry of valid factory codes, in detection
// priority order.
var DefaultFactories = []string{"AMA", "AMC", "AMD"}

// reportKeywords maps filename keywords to report types. Order matters:
// the first match wins. Latin keywords are matched case-insensitively,
// CJK keywords verbatim (both Traditional and Simplified spellings).
var reportKeywords = []struct {
	keyword string
	rt      models.ReportType
}{
	{"零件出貨", models.ReportPartShipment},
	{"出货", models.ReportPartShipment},
	{"零件銷售", models.ReportPartSale},
	{"销售", models.ReportPartSale},
	{"shelf life", models.ReportShelfLifeCode},
	{"shelf_life", models.ReportShelfLifeCode},
	{"技師績效", models.ReportTechnicianPerformance},
	{"技师", models.ReportTechnicianPerformance},
	{"工资", models.ReportTechnicianPerformance},
	{"維修收入", models.ReportMaintenanceIncome},
	{"维修", models.ReportMaintenanceIncome},
	{"收入", models.ReportMaintenanceIncome},
}

// factoryColumns are the header labels recognized as "this column holds the
// factory code". Latin labels compare case-insensitively after trimming.
var factoryColumns = []string{"廠別", "厂别", "廠", "factory", "factory_code"}

// Classifier detects report type and factory origin for uploaded files.
type Classifier struct {
	registry []string
}

func New(registry []string) *Classifier {
	if len(registry) == 0 {
		registry = DefaultFactories
	}
	return &Classifier{registry: registry}
}

// ReportType detects the report type from the filename alone. There is no
// content-based fallback; an unrecognized name is terminal for the file.
func (c *Classifier) ReportType(filename string) models.ReportType {
	lower := strings.ToLower(filename)
	for _, entry := range reportKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.rt
		}
	}
	return models.ReportUnknown
}

// FactoryFromFilename returns the first registered code contained in the
// uppercased filename, or "" when none matches. Filename detection yields
// at most one code and short-circuits the content cascade.
func (c *Classifier) FactoryFromFilename(filename string) string {
	upper := strings.ToUpper(filename)
	for _, code := range c.registry {
		if strings.Contains(upper, code) {
			return code
		}
	}
	return ""
}

// FactoryColumn returns the label of the dataset column recognized as the
// canonical factory column, or "" when the dataset has none.
func (c *Classifier) FactoryColumn(ds *tabular.Dataset) string {
	for _, col := range ds.Columns {
		for _, known := range factoryColumns {
			if strings.EqualFold(col, known) {
				return col
			}
		}
	}
	return ""
}

// FactoriesFromContent scans the dataset for registered factory codes in
// three stages, stopping at the first stage that yields anything:
//  1. distinct values of the canonical factory column, exact match;
//  2. distinct values of every column, exact match;
//  3. distinct values of every column, substring match (covers composite
//     values like "AMA-2023").
func (c *Classifier) FactoriesFromContent(ds *tabular.Dataset) []string {
	if col := c.FactoryColumn(ds); col != "" {
		if codes := c.matchValues(columnValues(ds, col), false); len(codes) > 0 {
			return codes
		}
	}

	all := allValues(ds)
	if codes := c.matchValues(all, false); len(codes) > 0 {
		return codes
	}
	return c.matchValues(all, true)
}

// DetectFactories runs the full cascade: filename first, then content.
// The returned column label is non-empty only when the canonical factory
// column drove (or could drive) a row split.
func (c *Classifier) DetectFactories(filename string, ds *tabular.Dataset) (codes []string, factoryColumn string) {
	if code := c.FactoryFromFilename(filename); code != "" {
		return []string{code}, ""
	}
	return c.FactoriesFromContent(ds), c.FactoryColumn(ds)
}

// IsRegistered reports whether code belongs to the closed registry.
func (c *Classifier) IsRegistered(code string) bool {
	for _, known := range c.registry {
		if known == code {
			return true
		}
	}
	return false
}

func (c *Classifier) matchValues(values map[string]struct{}, substring bool) []string {
	var codes []string
	for _, code := range c.registry {
		for value := range values {
			upper := strings.ToUpper(strings.TrimSpace(value))
			if upper == code || (substring && strings.Contains(upper, code)) {
				codes = append(codes, code)
				break
			}
		}
	}
	return codes
}

func columnValues(ds *tabular.Dataset, col string) map[string]struct{} {
	values := make(map[string]struct{})
	for _, row := range ds.Rows {
		if v := row[col]; v != "" {
			values[v] = struct{}{}
		}
	}
	return values
}

func allValues(ds *tabular.Dataset) map[string]struct{} {
	values := make(map[string]struct{})
	for _, row := range ds.Rows {
		for _, col := range ds.Columns {
			if v := row[col]; v != "" {
				values[v] = struct{}{}
			}
		}
	}
	return values
}
