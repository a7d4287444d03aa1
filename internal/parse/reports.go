package parse

import (
	"github.com/aftersales-hub/factory-reports/internal/models"
	"github.com/aftersales-hub/factory-reports/internal/normalize"
	"github.com/aftersales-hub/factory-reports/internal/tabular"
	"github.com/aftersales-hub/factory-reports/pkg/checksum"
)

// Shipments decodes a normalized part shipment dataset. Rows missing the
// order number or part number are skipped.
func Shipments(ds *tabular.Dataset, factoryCode string) ([]*models.ShipmentRecord, []Skip) {
	var records []*models.ShipmentRecord
	var skips []Skip

	for i, row := range ds.Rows {
		orderNumber := stringField(row, normalize.FieldOrderNumber)
		partNumber := stringField(row, normalize.FieldPartNumber)
		if orderNumber == "" || partNumber == "" {
			skips = append(skips, skipf(i+1, "missing order number or part number"))
			continue
		}

		quantity, err := intField(row, normalize.FieldQuantity)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		amount, err := decimalField(row, normalize.FieldAmount)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		shipmentDate, err := dateField(row, normalize.FieldShipmentDate)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}

		records = append(records, &models.ShipmentRecord{
			FactoryCode:  factoryCode,
			OrderNumber:  orderNumber,
			PartNumber:   partNumber,
			Quantity:     quantity,
			Amount:       amount,
			ShipmentDate: shipmentDate,
			RowData:      snapshot(row),
			Checksum:     checksum.RowChecksum(ds.Cells(row)),
		})
	}

	return records, skips
}

// Sales decodes a normalized part sale dataset with the same row gating as
// Shipments.
func Sales(ds *tabular.Dataset, factoryCode string) ([]*models.SaleRecord, []Skip) {
	var records []*models.SaleRecord
	var skips []Skip

	for i, row := range ds.Rows {
		orderNumber := stringField(row, normalize.FieldOrderNumber)
		partNumber := stringField(row, normalize.FieldPartNumber)
		if orderNumber == "" || partNumber == "" {
			skips = append(skips, skipf(i+1, "missing order number or part number"))
			continue
		}

		quantity, err := intField(row, normalize.FieldQuantity)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		amount, err := decimalField(row, normalize.FieldAmount)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		saleDate, err := dateField(row, normalize.FieldSaleDate)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}

		records = append(records, &models.SaleRecord{
			FactoryCode: factoryCode,
			OrderNumber: orderNumber,
			PartNumber:  partNumber,
			Quantity:    quantity,
			Amount:      amount,
			SaleDate:    saleDate,
			RowData:     snapshot(row),
			Checksum:    checksum.RowChecksum(ds.Cells(row)),
		})
	}

	return records, skips
}

// ShelfLife decodes the reference classification feed. Only the part
// number is required; a blank category falls back to the default.
func ShelfLife(ds *tabular.Dataset) ([]*models.ShelfLifeRecord, []Skip) {
	var records []*models.ShelfLifeRecord
	var skips []Skip

	for i, row := range ds.Rows {
		partNumber := stringField(row, normalize.FieldPartNumber)
		if partNumber == "" {
			skips = append(skips, skipf(i+1, "missing part number"))
			continue
		}

		category := stringField(row, normalize.FieldCategory)
		if category == "" {
			category = models.DefaultPartCategory
		}

		records = append(records, &models.ShelfLifeRecord{
			PartNumber:    partNumber,
			Category:      category,
			ShelfLifeCode: stringField(row, normalize.FieldShelfLifeCode),
			Description:   stringField(row, normalize.FieldDescription),
		})
	}

	return records, skips
}

// TechnicianPerformances decodes a technician performance dataset. The
// technician name gates acceptance; the order number is optional.
func TechnicianPerformances(ds *tabular.Dataset, factoryCode string) ([]*models.TechnicianPerformanceRecord, []Skip) {
	var records []*models.TechnicianPerformanceRecord
	var skips []Skip

	for i, row := range ds.Rows {
		name := stringField(row, normalize.FieldTechnicianName)
		if name == "" {
			skips = append(skips, skipf(i+1, "missing technician name"))
			continue
		}

		workHours, err := decimalField(row, normalize.FieldWorkHours)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		salary, err := decimalField(row, normalize.FieldSalary)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		bonus, err := decimalField(row, normalize.FieldBonus)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		performanceDate, err := dateField(row, normalize.FieldPerformanceDate)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}

		records = append(records, &models.TechnicianPerformanceRecord{
			FactoryCode:     factoryCode,
			OrderNumber:     stringField(row, normalize.FieldOrderNumber),
			TechnicianName:  name,
			WorkHours:       workHours,
			Salary:          salary,
			Bonus:           bonus,
			PerformanceDate: performanceDate,
			RowData:         snapshot(row),
			Checksum:        checksum.RowChecksum(ds.Cells(row)),
		})
	}

	return records, skips
}

// MaintenanceIncomes decodes a maintenance income dataset. The order
// number gates acceptance.
func MaintenanceIncomes(ds *tabular.Dataset, factoryCode string) ([]*models.MaintenanceIncomeRecord, []Skip) {
	var records []*models.MaintenanceIncomeRecord
	var skips []Skip

	for i, row := range ds.Rows {
		orderNumber := stringField(row, normalize.FieldOrderNumber)
		if orderNumber == "" {
			skips = append(skips, skipf(i+1, "missing order number"))
			continue
		}

		amount, err := decimalField(row, normalize.FieldAmount)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}
		incomeDate, err := dateField(row, normalize.FieldIncomeDate)
		if err != nil {
			skips = append(skips, skipf(i+1, "%v", err))
			continue
		}

		records = append(records, &models.MaintenanceIncomeRecord{
			FactoryCode:    factoryCode,
			OrderNumber:    orderNumber,
			IncomeCategory: stringField(row, normalize.FieldIncomeCategory),
			Amount:         amount,
			IncomeDate:     incomeDate,
			RowData:        snapshot(row),
			Checksum:       checksum.RowChecksum(ds.Cells(row)),
		})
	}

	return records, skips
}
