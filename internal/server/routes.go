package server

import (
	"net/http"
)

func SetupRoutes(reportHandler *ReportService) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload/excel", reportHandler.UploadFiles)

	mux.HandleFunc("/api/reports/shipments", reportHandler.GetShipments)
	mux.HandleFunc("/api/reports/sales", reportHandler.GetSales)
	mux.HandleFunc("/api/reports/income", reportHandler.GetIncomes)
	mux.HandleFunc("/api/reports/work-orders/", reportHandler.GetWorkOrder)

	mux.HandleFunc("/api/performance/factories", reportHandler.GetFactoryPerformance)
	mux.HandleFunc("/api/performance/summary", reportHandler.GetPerformanceSummary)
	mux.HandleFunc("/api/performance/technicians", reportHandler.GetTechnicianSummary)
	mux.HandleFunc("/api/performance/categories", reportHandler.GetCategorySales)

	mux.HandleFunc("/api/uploads", reportHandler.GetUploads)

	return mux
}
