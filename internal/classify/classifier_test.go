package classify

import (
	"testing"

	"github.com/aftersales-hub/factory-reports/internal/models"
	"github.com/aftersales-hub/factory-reports/internal/tabular"
	"github.com/stretchr/testify/assert"
)

func TestReportType(t *testing.T) {
	c := New(nil)

	cases := map[string]models.ReportType{
		"AMA_零件出貨_Jan.xlsx":     models.ReportPartShipment,
		"2023-05_出货明细.xlsx":     models.ReportPartShipment,
		"零件銷售_AMC.xlsx":          models.ReportPartSale,
		"Shelf Life Report.xlsx": models.ReportShelfLifeCode,
		"SHELF_LIFE_2023.xlsx":   models.ReportShelfLifeCode,
		"技師績效_三月.xlsx":            models.ReportTechnicianPerformance,
		"AMD_維修收入.xlsx":          models.ReportMaintenanceIncome,
		"budget_2024.xlsx":       models.ReportUnknown,
	}

	for filename, want := range cases {
		assert.Equal(t, want, c.ReportType(filename), filename)
	}
}

func TestFactoryFromFilename(t *testing.T) {
	c := New(nil)

	assert.Equal(t, "AMA", c.FactoryFromFilename("ama_零件出貨.xlsx"))
	assert.Equal(t, "AMC", c.FactoryFromFilename("report-AMC-final.xlsx"))
	assert.Equal(t, "", c.FactoryFromFilename("零件出貨.xlsx"))
}

// Filename detection wins even when the table content names another factory.
func TestDetectFactories_FilenamePriority(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"廠別", "工單號"},
		Rows:    []tabular.Row{{"廠別": "AMA", "工單號": "WO-1"}},
	}

	codes, col := c.DetectFactories("AMC_零件出貨.xlsx", ds)

	assert.Equal(t, []string{"AMC"}, codes)
	assert.Equal(t, "", col)
}

func TestDetectFactories_CanonicalColumn(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"廠別", "工單號"},
		Rows: []tabular.Row{
			{"廠別": "AMA", "工單號": "WO-1"},
			{"廠別": "AMD", "工單號": "WO-2"},
			{"廠別": "AMA", "工單號": "WO-3"},
		},
	}

	codes, col := c.DetectFactories("零件出貨.xlsx", ds)

	assert.Equal(t, []string{"AMA", "AMD"}, codes)
	assert.Equal(t, "廠別", col)
}

func TestDetectFactories_ShortColumnLabel(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"廠", "工單號"},
		Rows: []tabular.Row{
			{"廠": "AMC", "工單號": "WO-1"},
		},
	}

	codes, col := c.DetectFactories("零件出貨.xlsx", ds)

	assert.Equal(t, []string{"AMC"}, codes)
	assert.Equal(t, "廠", col)
}

func TestDetectFactories_AnyColumnExact(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"site", "工單號"},
		Rows:    []tabular.Row{{"site": "AMC", "工單號": "WO-1"}},
	}

	codes, col := c.DetectFactories("零件出貨.xlsx", ds)

	assert.Equal(t, []string{"AMC"}, codes)
	assert.Equal(t, "", col)
}

func TestDetectFactories_SubstringFallback(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"備註"},
		Rows:    []tabular.Row{{"備註": "AMA-2023 batch"}},
	}

	codes, _ := c.DetectFactories("零件出貨.xlsx", ds)

	assert.Equal(t, []string{"AMA"}, codes)
}

func TestDetectFactories_Nothing(t *testing.T) {
	c := New(nil)
	ds := &tabular.Dataset{
		Columns: []string{"工單號"},
		Rows:    []tabular.Row{{"工單號": "WO-1"}},
	}

	codes, _ := c.DetectFactories("零件出貨.xlsx", ds)

	assert.Empty(t, codes)
}

func TestCustomRegistry(t *testing.T) {
	c := New([]string{"TPE", "KHH"})

	assert.True(t, c.IsRegistered("TPE"))
	assert.False(t, c.IsRegistered("AMA"))
	assert.Equal(t, "KHH", c.FactoryFromFilename("khh_零件出貨.xlsx"))
}
