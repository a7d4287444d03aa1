package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportType is the business category of an uploaded spreadsheet.
type ReportType string

const (
	ReportPartShipment          ReportType = "part_shipment"
	ReportPartSale              ReportType = "part_sale"
	ReportShelfLifeCode         ReportType = "shelf_life_code"
	ReportTechnicianPerformance ReportType = "technician_performance"
	ReportMaintenanceIncome     ReportType = "maintenance_income"
	ReportUnknown               ReportType = "unknown"
)

// NeedsFactory reports whether uploads of this type must resolve to at
// least one factory code. Shelf-life classification feeds are factory-wide.
func (rt ReportType) NeedsFactory() bool {
	return rt != ReportShelfLifeCode
}

const (
	UploadStatusProcessed = "processed"
	UploadStatusDuplicate = "duplicate"
	UploadStatusRejected  = "rejected"
)

type Factory struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkOrder is keyed by (factory_code, order_number) and created lazily the
// first time any record references the pair.
type WorkOrder struct {
	ID          int       `json:"id"`
	FactoryCode string    `json:"factory_code"`
	OrderNumber string    `json:"order_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PartCategory struct {
	ID            int       `json:"id"`
	PartNumber    string    `json:"part_number"`
	Category      string    `json:"category"`
	ShelfLifeCode string    `json:"shelf_life_code,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultPartCategory is assigned to parts first seen outside a shelf-life
// classification upload.
const DefaultPartCategory = "未分類"

type ShipmentRecord struct {
	FactoryCode  string            `json:"factory_code"`
	OrderNumber  string            `json:"order_number"`
	PartNumber   string            `json:"part_number"`
	Quantity     int               `json:"quantity"`
	Amount       decimal.Decimal   `json:"amount"`
	ShipmentDate *time.Time        `json:"shipment_date,omitempty"`
	RowData      map[string]string `json:"row_data"`
	Checksum     string            `json:"checksum"`
}

type SaleRecord struct {
	FactoryCode string            `json:"factory_code"`
	OrderNumber string            `json:"order_number"`
	PartNumber  string            `json:"part_number"`
	Quantity    int               `json:"quantity"`
	Amount      decimal.Decimal   `json:"amount"`
	SaleDate    *time.Time        `json:"sale_date,omitempty"`
	RowData     map[string]string `json:"row_data"`
	Checksum    string            `json:"checksum"`
}

// TechnicianPerformanceRecord may reference no work order at all; the
// technician name is the only required field.
type TechnicianPerformanceRecord struct {
	FactoryCode     string            `json:"factory_code"`
	OrderNumber     string            `json:"order_number,omitempty"`
	TechnicianName  string            `json:"technician_name"`
	WorkHours       decimal.Decimal   `json:"work_hours"`
	Salary          decimal.Decimal   `json:"salary"`
	Bonus           decimal.Decimal   `json:"bonus"`
	PerformanceDate *time.Time        `json:"performance_date,omitempty"`
	RowData         map[string]string `json:"row_data"`
	Checksum        string            `json:"checksum"`
}

type MaintenanceIncomeRecord struct {
	FactoryCode    string            `json:"factory_code"`
	OrderNumber    string            `json:"order_number"`
	IncomeCategory string            `json:"income_category,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	IncomeDate     *time.Time        `json:"income_date,omitempty"`
	RowData        map[string]string `json:"row_data"`
	Checksum       string            `json:"checksum"`
}

// ShelfLifeRecord carries one row of the reference classification feed.
type ShelfLifeRecord struct {
	PartNumber    string `json:"part_number"`
	Category      string `json:"category"`
	ShelfLifeCode string `json:"shelf_life_code,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Upload is the provenance record for one ingested file, or one factory
// partition of a multi-factory file.
type Upload struct {
	ID          int        `json:"id"`
	FileName    string     `json:"file_name"`
	FileHash    string     `json:"file_hash"`
	FactoryCode *string    `json:"factory_code,omitempty"`
	FileType    ReportType `json:"file_type"`
	RecordCount int        `json:"record_count"`
	Status      string     `json:"status"`
	UploadDate  time.Time  `json:"upload_date"`
}

// UploadResult is returned to the caller per processed (file, factory) pair.
type UploadResult struct {
	FileName    string     `json:"file_name"`
	ContentHash string     `json:"content_hash"`
	FactoryCode *string    `json:"factory_code,omitempty"`
	ReportType  ReportType `json:"report_type"`
	RecordCount int        `json:"record_count"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// RecordFilter narrows record and aggregate queries.
type RecordFilter struct {
	FactoryCode string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
}

type FactoryPerformance struct {
	FactoryCode       string          `json:"factory_code"`
	TotalOrders       int64           `json:"total_orders"`
	MaintenanceIncome decimal.Decimal `json:"maintenance_income"`
	PartSales         decimal.Decimal `json:"part_sales"`
	PartShipments     decimal.Decimal `json:"part_shipments"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	NetProfit         decimal.Decimal `json:"net_profit"`
}

type TechnicianSummary struct {
	FactoryCode    string          `json:"factory_code"`
	TechnicianName string          `json:"technician_name"`
	OrderCount     int64           `json:"order_count"`
	TotalHours     decimal.Decimal `json:"total_hours"`
	TotalSalary    decimal.Decimal `json:"total_salary"`
	TotalBonus     decimal.Decimal `json:"total_bonus"`
	AvgHourlyRate  decimal.Decimal `json:"avg_hourly_rate"`
}

// PerformanceSummary is the fleet-wide rollup: totals across every factory
// plus the per-factory breakdown the totals were derived from.
type PerformanceSummary struct {
	Summary   PerformanceTotals     `json:"summary"`
	Factories []*FactoryPerformance `json:"factories"`
}

type PerformanceTotals struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalOrders  int64           `json:"total_orders"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	FactoryCount int             `json:"factory_count"`
}

type CategorySales struct {
	Category    string          `json:"category"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// WorkOrderDetail bundles a work order with every record that references it.
type WorkOrderDetail struct {
	WorkOrder    *WorkOrder                     `json:"work_order"`
	Shipments    []*ShipmentRecord              `json:"part_shipments"`
	Sales        []*SaleRecord                  `json:"part_sales"`
	Performances []*TechnicianPerformanceRecord `json:"technician_performances"`
	Incomes      []*MaintenanceIncomeRecord     `json:"maintenance_incomes"`
}
