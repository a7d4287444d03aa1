package database

import (
	"context"

	"github.com/aftersales-hub/factory-reports/internal/models"
)

// Store is the persistence boundary for the ingestion pipeline and the
// report queries. Implementations must make every resolve-or-create safe
// under concurrent callers (insert, on conflict re-fetch).
type Store interface {
	CreateTables(ctx context.Context) error

	// WithTx runs fn against a store bound to a single transaction; the
	// orchestrator wraps one file's whole persistence step in it.
	WithTx(ctx context.Context, fn func(Store) error) error

	GetUploadByHash(ctx context.Context, hash string) (*models.Upload, error)
	CreateUpload(ctx context.Context, upload *models.Upload) error
	ListUploads(ctx context.Context, factoryCode string, limit int) ([]*models.Upload, error)

	ResolveFactory(ctx context.Context, code string) (*models.Factory, error)
	ResolveWorkOrder(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrder, error)
	ResolvePartCategory(ctx context.Context, partNumber string) (*models.PartCategory, error)
	ApplyClassification(ctx context.Context, rec *models.ShelfLifeRecord) error

	InsertShipments(ctx context.Context, records []*models.ShipmentRecord) error
	InsertSales(ctx context.Context, records []*models.SaleRecord) error
	InsertPerformances(ctx context.Context, records []*models.TechnicianPerformanceRecord) error
	InsertIncomes(ctx context.Context, records []*models.MaintenanceIncomeRecord) error

	ListShipments(ctx context.Context, filter models.RecordFilter) ([]*models.ShipmentRecord, error)
	ListSales(ctx context.Context, filter models.RecordFilter) ([]*models.SaleRecord, error)
	ListIncomes(ctx context.Context, filter models.RecordFilter) ([]*models.MaintenanceIncomeRecord, error)
	GetWorkOrderDetail(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrderDetail, error)

	FactoryPerformance(ctx context.Context, filter models.RecordFilter) ([]*models.FactoryPerformance, error)
	TechnicianSummary(ctx context.Context, filter models.RecordFilter) ([]*models.TechnicianSummary, error)
	CategorySales(ctx context.Context, filter models.RecordFilter) ([]*models.CategorySales, error)
}
