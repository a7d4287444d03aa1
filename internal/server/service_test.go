package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aftersales-hub/factory-reports/internal/database"
	"github.com/aftersales-hub/factory-reports/internal/ingestion"
	"github.com/aftersales-hub/factory-reports/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateTables(ctx context.Context) error {
	return nil
}

func (m *MockStore) WithTx(ctx context.Context, fn func(database.Store) error) error {
	return fn(m)
}

func (m *MockStore) GetUploadByHash(ctx context.Context, hash string) (*models.Upload, error) {
	return nil, nil
}

func (m *MockStore) CreateUpload(ctx context.Context, upload *models.Upload) error {
	return nil
}

func (m *MockStore) ListUploads(ctx context.Context, factoryCode string, limit int) ([]*models.Upload, error) {
	args := m.Called(ctx, factoryCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Upload), args.Error(1)
}

func (m *MockStore) ResolveFactory(ctx context.Context, code string) (*models.Factory, error) {
	return nil, nil
}

func (m *MockStore) ResolveWorkOrder(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrder, error) {
	return nil, nil
}

func (m *MockStore) ResolvePartCategory(ctx context.Context, partNumber string) (*models.PartCategory, error) {
	return nil, nil
}

func (m *MockStore) ApplyClassification(ctx context.Context, rec *models.ShelfLifeRecord) error {
	return nil
}

func (m *MockStore) InsertShipments(ctx context.Context, records []*models.ShipmentRecord) error {
	return nil
}

func (m *MockStore) InsertSales(ctx context.Context, records []*models.SaleRecord) error {
	return nil
}

func (m *MockStore) InsertPerformances(ctx context.Context, records []*models.TechnicianPerformanceRecord) error {
	return nil
}

func (m *MockStore) InsertIncomes(ctx context.Context, records []*models.MaintenanceIncomeRecord) error {
	return nil
}

func (m *MockStore) ListShipments(ctx context.Context, filter models.RecordFilter) ([]*models.ShipmentRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ShipmentRecord), args.Error(1)
}

func (m *MockStore) ListSales(ctx context.Context, filter models.RecordFilter) ([]*models.SaleRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SaleRecord), args.Error(1)
}

func (m *MockStore) ListIncomes(ctx context.Context, filter models.RecordFilter) ([]*models.MaintenanceIncomeRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MaintenanceIncomeRecord), args.Error(1)
}

func (m *MockStore) GetWorkOrderDetail(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrderDetail, error) {
	args := m.Called(ctx, factoryCode, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrderDetail), args.Error(1)
}

func (m *MockStore) FactoryPerformance(ctx context.Context, filter models.RecordFilter) ([]*models.FactoryPerformance, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FactoryPerformance), args.Error(1)
}

func (m *MockStore) TechnicianSummary(ctx context.Context, filter models.RecordFilter) ([]*models.TechnicianSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TechnicianSummary), args.Error(1)
}

func (m *MockStore) CategorySales(ctx context.Context, filter models.RecordFilter) ([]*models.CategorySales, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CategorySales), args.Error(1)
}

type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) IngestBatch(ctx context.Context, files []ingestion.File) []models.UploadResult {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.UploadResult)
}

func newTestHandler() (*ReportService, *MockStore, *MockIngestor) {
	store := new(MockStore)
	ingestor := new(MockIngestor)
	return NewReportService(store, ingestor, zap.NewNop()), store, ingestor
}

func TestReportService_UploadFiles(t *testing.T) {
	t.Run("should ingest uploaded files and return per-file results", func(t *testing.T) {
		handler, _, ingestor := newTestHandler()

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("files", "AMA_零件出貨.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte("工單號,零件編號,數量\nWO-1,P-1,2\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		code := "AMA"
		ingestor.On("IngestBatch", mock.Anything, mock.MatchedBy(func(files []ingestion.File) bool {
			return len(files) == 1 && files[0].Name == "AMA_零件出貨.csv"
		})).Return([]models.UploadResult{{
			FileName:    "AMA_零件出貨.csv",
			FactoryCode: &code,
			ReportType:  models.ReportPartShipment,
			RecordCount: 1,
			Status:      models.UploadStatusProcessed,
		}}).Once()

		req := httptest.NewRequest("POST", "/api/upload/excel", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()

		handler.UploadFiles(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Results []models.UploadResult `json:"results"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, models.UploadStatusProcessed, resp.Results[0].Status)

		ingestor.AssertExpectations(t)
	})

	t.Run("should reject requests without files", func(t *testing.T) {
		handler, _, _ := newTestHandler()

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/upload/excel", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()

		handler.UploadFiles(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should reject non-POST requests", func(t *testing.T) {
		handler, _, _ := newTestHandler()

		req := httptest.NewRequest("GET", "/api/upload/excel", nil)
		rr := httptest.NewRecorder()

		handler.UploadFiles(rr, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestReportService_GetShipments(t *testing.T) {
	t.Run("should pass query filters through to the store", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		store.On("ListShipments", mock.Anything, mock.MatchedBy(func(f models.RecordFilter) bool {
			return f.FactoryCode == "AMA" &&
				f.StartDate != nil && f.StartDate.Format("2006-01-02") == "2023-01-01" &&
				f.Limit == 10
		})).Return([]*models.ShipmentRecord{{OrderNumber: "WO-1", FactoryCode: "AMA"}}, nil).Once()

		req := httptest.NewRequest("GET", "/api/reports/shipments?factory=AMA&start_date=2023-01-01&limit=10", nil)
		rr := httptest.NewRecorder()

		handler.GetShipments(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var records []*models.ShipmentRecord
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&records))
		require.Len(t, records, 1)
		assert.Equal(t, "WO-1", records[0].OrderNumber)

		store.AssertExpectations(t)
	})

	t.Run("should reject an invalid date filter", func(t *testing.T) {
		handler, _, _ := newTestHandler()

		req := httptest.NewRequest("GET", "/api/reports/shipments?start_date=not-a-date", nil)
		rr := httptest.NewRecorder()

		handler.GetShipments(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should return 500 when the store fails", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		store.On("ListShipments", mock.Anything, mock.Anything).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest("GET", "/api/reports/shipments", nil)
		rr := httptest.NewRecorder()

		handler.GetShipments(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		store.AssertExpectations(t)
	})
}

func TestReportService_GetWorkOrder(t *testing.T) {
	t.Run("should return the aggregated work order detail", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		detail := &models.WorkOrderDetail{
			WorkOrder: &models.WorkOrder{ID: 7, FactoryCode: "AMA", OrderNumber: "WO-100"},
			Shipments: []*models.ShipmentRecord{{OrderNumber: "WO-100"}},
		}
		store.On("GetWorkOrderDetail", mock.Anything, "AMA", "WO-100").Return(detail, nil).Once()

		req := httptest.NewRequest("GET", "/api/reports/work-orders/AMA/WO-100", nil)
		rr := httptest.NewRecorder()

		handler.GetWorkOrder(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.WorkOrderDetail
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "WO-100", got.WorkOrder.OrderNumber)
		assert.Len(t, got.Shipments, 1)

		store.AssertExpectations(t)
	})

	t.Run("should return 404 for an unknown work order", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		store.On("GetWorkOrderDetail", mock.Anything, "AMA", "WO-404").Return(nil, nil).Once()

		req := httptest.NewRequest("GET", "/api/reports/work-orders/AMA/WO-404", nil)
		rr := httptest.NewRecorder()

		handler.GetWorkOrder(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("should reject a path without an order number", func(t *testing.T) {
		handler, _, _ := newTestHandler()

		req := httptest.NewRequest("GET", "/api/reports/work-orders/AMA", nil)
		rr := httptest.NewRecorder()

		handler.GetWorkOrder(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestReportService_GetFactoryPerformance(t *testing.T) {
	t.Run("should return aggregated rows", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		rows := []*models.FactoryPerformance{{
			FactoryCode:       "AMA",
			TotalOrders:       12,
			MaintenanceIncome: decimal.NewFromInt(5000),
		}}
		store.On("FactoryPerformance", mock.Anything, mock.Anything).Return(rows, nil).Once()

		req := httptest.NewRequest("GET", "/api/performance/factories", nil)
		rr := httptest.NewRecorder()

		handler.GetFactoryPerformance(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got []*models.FactoryPerformance
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "AMA", got[0].FactoryCode)
		assert.True(t, got[0].MaintenanceIncome.Equal(decimal.NewFromInt(5000)))

		store.AssertExpectations(t)
	})
}

func TestReportService_GetPerformanceSummary(t *testing.T) {
	t.Run("should total income, orders and profit across factories", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		rows := []*models.FactoryPerformance{
			{FactoryCode: "AMA", TotalOrders: 10, MaintenanceIncome: decimal.NewFromInt(5000), NetProfit: decimal.NewFromInt(1200)},
			{FactoryCode: "AMC", TotalOrders: 4, MaintenanceIncome: decimal.NewFromInt(2000), NetProfit: decimal.NewFromInt(-300)},
		}
		store.On("FactoryPerformance", mock.Anything, mock.MatchedBy(func(f models.RecordFilter) bool {
			// the summary is always fleet-wide, a factory filter is ignored
			return f.FactoryCode == ""
		})).Return(rows, nil).Once()

		req := httptest.NewRequest("GET", "/api/performance/summary?factory=AMA", nil)
		rr := httptest.NewRecorder()

		handler.GetPerformanceSummary(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.PerformanceSummary
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, 2, got.Summary.FactoryCount)
		assert.Equal(t, int64(14), got.Summary.TotalOrders)
		assert.True(t, got.Summary.TotalIncome.Equal(decimal.NewFromInt(7000)))
		assert.True(t, got.Summary.TotalProfit.Equal(decimal.NewFromInt(900)))
		require.Len(t, got.Factories, 2)

		store.AssertExpectations(t)
	})
}

func TestReportService_GetUploads(t *testing.T) {
	t.Run("should list upload provenance", func(t *testing.T) {
		handler, store, _ := newTestHandler()

		store.On("ListUploads", mock.Anything, "AMA", 5).Return([]*models.Upload{
			{FileName: "AMA_零件出貨.csv", Status: models.UploadStatusProcessed},
		}, nil).Once()

		req := httptest.NewRequest("GET", "/api/uploads?factory=AMA&limit=5", nil)
		rr := httptest.NewRecorder()

		handler.GetUploads(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got []*models.Upload
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.Len(t, got, 1)

		store.AssertExpectations(t)
	})
}
