package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aftersales-hub/factory-reports/internal/database"
	"github.com/aftersales-hub/factory-reports/internal/ingestion"
	"github.com/aftersales-hub/factory-reports/internal/models"
)

// 50 MB cap on a multipart upload request
const maxUploadBytes = 50 << 20

// Ingestor is the slice of the ingestion service the upload handler needs.
type Ingestor interface {
	IngestBatch(ctx context.Context, files []ingestion.File) []models.UploadResult
}

type ReportService struct {
	Store    database.Store
	Ingestor Ingestor
	Log      *zap.Logger
}

func NewReportService(store database.Store, ingestor Ingestor, logger *zap.Logger) *ReportService {
	return &ReportService{Store: store, Ingestor: ingestor, Log: logger}
}

func (h *ReportService) UploadFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		http.Error(w, "At least one file is required in the 'files' field", http.StatusBadRequest)
		return
	}

	var files []ingestion.File
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
			return
		}
		files = append(files, ingestion.File{Name: part.Filename, Content: content})
	}

	results := h.Ingestor.IngestBatch(r.Context(), files)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *ReportService) GetShipments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.Store.ListShipments(r.Context(), filter)
	if err != nil {
		h.serverError(w, "listing shipments", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *ReportService) GetSales(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.Store.ListSales(r.Context(), filter)
	if err != nil {
		h.serverError(w, "listing sales", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *ReportService) GetIncomes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.Store.ListIncomes(r.Context(), filter)
	if err != nil {
		h.serverError(w, "listing maintenance income", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *ReportService) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/work-orders/")
	factoryCode, orderNumber, ok := strings.Cut(rest, "/")
	if !ok || factoryCode == "" || orderNumber == "" {
		http.Error(w, "Path must be /api/reports/work-orders/{factory}/{order}", http.StatusBadRequest)
		return
	}

	detail, err := h.Store.GetWorkOrderDetail(r.Context(), factoryCode, orderNumber)
	if err != nil {
		h.serverError(w, "loading work order", err)
		return
	}
	if detail == nil {
		http.Error(w, "Work order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ReportService) GetFactoryPerformance(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.Store.FactoryPerformance(r.Context(), filter)
	if err != nil {
		h.serverError(w, "aggregating factory performance", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetPerformanceSummary rolls the per-factory aggregate up into fleet-wide
// totals of income, orders and profit, alongside the factory breakdown.
func (h *ReportService) GetPerformanceSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.FactoryCode = ""

	factories, err := h.Store.FactoryPerformance(r.Context(), filter)
	if err != nil {
		h.serverError(w, "aggregating performance summary", err)
		return
	}

	summary := models.PerformanceSummary{
		Factories: factories,
		Summary:   models.PerformanceTotals{FactoryCount: len(factories)},
	}
	for _, f := range factories {
		summary.Summary.TotalIncome = summary.Summary.TotalIncome.Add(f.MaintenanceIncome)
		summary.Summary.TotalOrders += f.TotalOrders
		summary.Summary.TotalProfit = summary.Summary.TotalProfit.Add(f.NetProfit)
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *ReportService) GetTechnicianSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.Store.TechnicianSummary(r.Context(), filter)
	if err != nil {
		h.serverError(w, "aggregating technician summary", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportService) GetCategorySales(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.Store.CategorySales(r.Context(), filter)
	if err != nil {
		h.serverError(w, "aggregating category sales", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportService) GetUploads(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	uploads, err := h.Store.ListUploads(r.Context(), filter.FactoryCode, filter.Limit)
	if err != nil {
		h.serverError(w, "listing uploads", err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

func (h *ReportService) serverError(w http.ResponseWriter, action string, err error) {
	h.Log.Error("Request failed", zap.String("action", action), zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func parseFilter(r *http.Request) (models.RecordFilter, error) {
	q := r.URL.Query()
	filter := models.RecordFilter{FactoryCode: strings.TrimSpace(q.Get("factory"))}

	var err error
	if filter.StartDate, err = parseDateParam(q.Get("start_date"), "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateParam(q.Get("end_date"), "end_date"); err != nil {
		return filter, err
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errInvalidParam("limit")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func parseDateParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errInvalidParam(name)
	}
	return &t, nil
}

func errInvalidParam(name string) error {
	return fmt.Errorf("invalid %q parameter", name)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
