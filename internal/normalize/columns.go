package normalize

import (
	"fmt"
	"strings"

	"github.com/aftersales-hub/factory-reports/internal/models"
	"github.com/aftersales-hub/factory-reports/internal/tabular"
)

// Canonical field names shared by the row parsers.
const (
	FieldOrderNumber     = "order_number"
	FieldPartNumber      = "part_number"
	FieldQuantity        = "quantity"
	FieldAmount          = "amount"
	FieldShipmentDate    = "shipment_date"
	FieldSaleDate        = "sale_date"
	FieldCategory        = "category"
	FieldShelfLifeCode   = "shelf_life_code"
	FieldDescription     = "description"
	FieldTechnicianName  = "technician_name"
	FieldWorkHours       = "work_hours"
	FieldSalary          = "salary"
	FieldBonus           = "bonus"
	FieldPerformanceDate = "performance_date"
	FieldIncomeCategory  = "income_category"
	FieldIncomeDate      = "income_date"
)

// FieldAliases lists every accepted source spelling of one canonical field.
// Aliases are matched label-exact after trimming, never fuzzily.
type FieldAliases struct {
	Canonical string
	Aliases   []string
}

var orderNumberAliases = []string{"工單號", "工单号", "工單"}
var partNumberAliases = []string{"零件編號", "零件编号", "料號"}

var tables = map[models.ReportType][]FieldAliases{
	models.ReportPartShipment: {
		{FieldOrderNumber, orderNumberAliases},
		{FieldPartNumber, partNumberAliases},
		{FieldQuantity, []string{"數量", "数量"}},
		{FieldAmount, []string{"金額", "金额"}},
		{FieldShipmentDate, []string{"出貨日期", "出货日期", "日期"}},
	},
	models.ReportPartSale: {
		{FieldOrderNumber, orderNumberAliases},
		{FieldPartNumber, partNumberAliases},
		{FieldQuantity, []string{"數量", "数量"}},
		{FieldAmount, []string{"金額", "金额"}},
		{FieldSaleDate, []string{"銷售日期", "销售日期", "日期"}},
	},
	models.ReportShelfLifeCode: {
		{FieldPartNumber, partNumberAliases},
		{FieldCategory, []string{"分類", "分类", "類別", "类别"}},
		{FieldShelfLifeCode, []string{"Shelf Life Code", "ShelfLifeCode"}},
		{FieldDescription, []string{"說明", "说明"}},
	},
	models.ReportTechnicianPerformance: {
		{FieldOrderNumber, orderNumberAliases},
		{FieldTechnicianName, []string{"技師", "技师", "姓名"}},
		{FieldWorkHours, []string{"工時", "工时"}},
		{FieldSalary, []string{"工資", "工资", "薪資"}},
		{FieldBonus, []string{"獎金", "奖金"}},
		{FieldPerformanceDate, []string{"日期", "績效日期"}},
	},
	models.ReportMaintenanceIncome: {
		{FieldOrderNumber, orderNumberAliases},
		{FieldIncomeCategory, []string{"收入類別", "收入类别", "類別", "类别"}},
		{FieldAmount, []string{"金額", "金额"}},
		{FieldIncomeDate, []string{"日期", "收入日期"}},
	},
}

// Normalizer renames heterogeneous source column labels onto the canonical
// field vocabulary, one alias table per report type.
type Normalizer struct {
	index map[models.ReportType]map[string]string
}

// New builds the normalizer and validates every alias table: an alias that
// maps to two canonical fields within one report type is a configuration
// bug and fails startup.
func New() (*Normalizer, error) {
	n := &Normalizer{index: make(map[models.ReportType]map[string]string, len(tables))}

	for rt, fields := range tables {
		idx := make(map[string]string)
		for _, field := range fields {
			for _, alias := range field.Aliases {
				key := aliasKey(alias)
				if existing, ok := idx[key]; ok && existing != field.Canonical {
					return nil, fmt.Errorf("report type %s: alias %q maps to both %s and %s",
						rt, alias, existing, field.Canonical)
				}
				idx[key] = field.Canonical
			}
			// canonical names are accepted as-is
			idx[aliasKey(field.Canonical)] = field.Canonical
		}
		n.index[rt] = idx
	}

	return n, nil
}

// Apply returns a copy of the dataset with recognized column labels renamed
// to their canonical field names. Unmapped columns pass through untouched.
func (n *Normalizer) Apply(rt models.ReportType, ds *tabular.Dataset) (*tabular.Dataset, error) {
	idx, ok := n.index[rt]
	if !ok {
		return nil, fmt.Errorf("no alias table for report type %s", rt)
	}

	renamed := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		if canonical, ok := idx[aliasKey(col)]; ok {
			renamed[i] = canonical
		} else {
			renamed[i] = col
		}
	}

	out := &tabular.Dataset{Columns: renamed, Rows: make([]tabular.Row, len(ds.Rows))}
	for i, row := range ds.Rows {
		mapped := make(tabular.Row, len(renamed))
		for j, col := range ds.Columns {
			mapped[renamed[j]] = row[col]
		}
		out.Rows[i] = mapped
	}

	return out, nil
}

// aliasKey trims surrounding whitespace only: matching is label-exact,
// never case-folded or fuzzy.
func aliasKey(label string) string {
	return strings.TrimSpace(label)
}
