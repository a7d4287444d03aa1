package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aftersales-hub/factory-reports/internal/classify"
	"github.com/aftersales-hub/factory-reports/internal/database"
	"github.com/aftersales-hub/factory-reports/internal/models"
	"github.com/aftersales-hub/factory-reports/internal/normalize"
	"github.com/aftersales-hub/factory-reports/internal/parse"
	"github.com/aftersales-hub/factory-reports/internal/tabular"
	"github.com/aftersales-hub/factory-reports/pkg/checksum"
)

var (
	ErrUnknownReportType = errors.New("unrecognized report type")
	ErrNoFactory         = errors.New("no factory code detected")
)

// File is one uploaded spreadsheet: its original name and raw bytes.
type File struct {
	Name    string
	Content []byte
}

// Service orchestrates the ingestion pipeline: hash, dedup, classify,
// decode, split, normalize, parse, persist. Files are processed strictly
// sequentially; each file's persistence runs in a single transaction.
type Service struct {
	store      database.Store
	classifier *classify.Classifier
	normalizer *normalize.Normalizer
	log        *zap.Logger
}

func NewService(store database.Store, classifier *classify.Classifier, normalizer *normalize.Normalizer, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		normalizer: normalizer,
		log:        logger,
	}
}

// IngestBatch processes files one by one. A failed file is reported as
// rejected and never aborts the rest of the batch.
func (s *Service) IngestBatch(ctx context.Context, files []File) []models.UploadResult {
	batchID := uuid.NewString()
	log := s.log.With(zap.String("batch_id", batchID))
	log.Info("Starting ingestion batch", zap.Int("files", len(files)))

	var out []models.UploadResult
	for _, file := range files {
		results, err := s.IngestFile(ctx, file.Name, file.Content)
		if err != nil {
			log.Warn("File rejected",
				zap.String("file", file.Name),
				zap.Error(err))
		}
		out = append(out, results...)
	}

	log.Info("Ingestion batch finished", zap.Int("results", len(out)))
	return out
}

// IngestFile runs the full pipeline for one file. It returns one result
// per (file, factory) pair processed, or a single duplicate/rejected
// result. The error is non-nil exactly when the file was rejected.
func (s *Service) IngestFile(ctx context.Context, name string, content []byte) ([]models.UploadResult, error) {
	hash := checksum.Hash(content)
	log := s.log.With(zap.String("file", name), zap.String("hash", hash[:12]))

	existing, err := s.store.GetUploadByHash(ctx, hash)
	if err != nil {
		return rejected(name, hash, models.ReportUnknown, err), err
	}
	if existing != nil {
		log.Info("Duplicate upload, returning prior provenance")
		return []models.UploadResult{duplicateResult(name, existing)}, nil
	}

	reportType := s.classifier.ReportType(name)
	if reportType == models.ReportUnknown {
		err := fmt.Errorf("%w: %s", ErrUnknownReportType, name)
		return rejected(name, hash, reportType, err), err
	}

	ds, err := tabular.Decode(content)
	if err != nil {
		return rejected(name, hash, reportType, err), err
	}
	log.Info("Decoded upload",
		zap.String("report_type", string(reportType)),
		zap.Int("rows", len(ds.Rows)))

	if !reportType.NeedsFactory() {
		return s.ingestClassificationFeed(ctx, log, name, hash, ds)
	}

	codes, factoryColumn := s.classifier.DetectFactories(name, ds)
	if len(codes) == 0 {
		err := fmt.Errorf("%w: %s", ErrNoFactory, name)
		return rejected(name, hash, reportType, err), err
	}

	multi := len(codes) > 1
	if multi && factoryColumn == "" {
		// content detection without a canonical factory column cannot
		// split rows; each factory sees the full dataset
		log.Warn("Multiple factories detected but no factory column to split on",
			zap.Strings("codes", codes))
	}

	var out []models.UploadResult
	for _, code := range codes {
		subset := ds
		if multi {
			subset = tabular.SplitByFactory(ds, factoryColumn, code)
		}
		if multi && len(subset.Rows) == 0 {
			// detected factory with no rows after splitting: a zero-row
			// no-op, never a fallback to the unsplit dataset
			log.Warn("No rows for detected factory", zap.String("factory", code))
		}

		result, err := s.ingestFactorySlice(ctx, log, name, hash, reportType, code, multi, subset)
		if err != nil {
			out = append(out, rejected(name, hash, reportType, err)...)
			return out, err
		}
		out = append(out, result)
	}

	return out, nil
}

func (s *Service) ingestFactorySlice(ctx context.Context, log *zap.Logger, name, hash string, reportType models.ReportType, code string, multi bool, ds *tabular.Dataset) (models.UploadResult, error) {
	normalized, err := s.normalizer.Apply(reportType, ds)
	if err != nil {
		return models.UploadResult{}, err
	}

	fileName := name
	if multi {
		fileName = fmt.Sprintf("%s (%s)", name, code)
	}

	upload := &models.Upload{
		FileName:    fileName,
		FileHash:    hash,
		FactoryCode: &code,
		FileType:    reportType,
		Status:      models.UploadStatusProcessed,
	}

	err = s.store.WithTx(ctx, func(tx database.Store) error {
		if _, err := tx.ResolveFactory(ctx, code); err != nil {
			return err
		}

		count, err := s.persistRecords(ctx, tx, log, normalized, reportType, code)
		if err != nil {
			return err
		}
		upload.RecordCount = count

		return tx.CreateUpload(ctx, upload)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// lost a race with a concurrent identical upload: re-fetch
			// the winner's provenance instead of failing
			if existing, ferr := s.store.GetUploadByHash(ctx, hash); ferr == nil && existing != nil {
				log.Info("Concurrent duplicate upload, returning prior provenance")
				return duplicateResult(name, existing), nil
			}
		}
		return models.UploadResult{}, err
	}

	log.Info("Processed upload",
		zap.String("factory", code),
		zap.Int("records", upload.RecordCount))

	return models.UploadResult{
		FileName:    fileName,
		ContentHash: hash,
		FactoryCode: &code,
		ReportType:  reportType,
		RecordCount: upload.RecordCount,
		Status:      models.UploadStatusProcessed,
	}, nil
}

// persistRecords parses the normalized dataset and persists the accepted
// records, resolving each referenced entity first. Skipped rows are logged
// and never fatal; the returned count covers accepted rows only.
func (s *Service) persistRecords(ctx context.Context, tx database.Store, log *zap.Logger, ds *tabular.Dataset, reportType models.ReportType, code string) (int, error) {
	switch reportType {
	case models.ReportPartShipment:
		records, skips := parse.Shipments(ds, code)
		s.logSkips(log, skips)
		for _, orderNumber := range distinctKeys(len(records), func(i int) string { return records[i].OrderNumber }) {
			if _, err := tx.ResolveWorkOrder(ctx, code, orderNumber); err != nil {
				return 0, err
			}
		}
		for _, partNumber := range distinctKeys(len(records), func(i int) string { return records[i].PartNumber }) {
			if _, err := tx.ResolvePartCategory(ctx, partNumber); err != nil {
				return 0, err
			}
		}
		if len(records) > 0 {
			if err := tx.InsertShipments(ctx, records); err != nil {
				return 0, err
			}
		}
		return len(records), nil

	case models.ReportPartSale:
		records, skips := parse.Sales(ds, code)
		s.logSkips(log, skips)
		for _, orderNumber := range distinctKeys(len(records), func(i int) string { return records[i].OrderNumber }) {
			if _, err := tx.ResolveWorkOrder(ctx, code, orderNumber); err != nil {
				return 0, err
			}
		}
		for _, partNumber := range distinctKeys(len(records), func(i int) string { return records[i].PartNumber }) {
			if _, err := tx.ResolvePartCategory(ctx, partNumber); err != nil {
				return 0, err
			}
		}
		if len(records) > 0 {
			if err := tx.InsertSales(ctx, records); err != nil {
				return 0, err
			}
		}
		return len(records), nil

	case models.ReportTechnicianPerformance:
		records, skips := parse.TechnicianPerformances(ds, code)
		s.logSkips(log, skips)
		for _, orderNumber := range distinctKeys(len(records), func(i int) string { return records[i].OrderNumber }) {
			if _, err := tx.ResolveWorkOrder(ctx, code, orderNumber); err != nil {
				return 0, err
			}
		}
		if len(records) > 0 {
			if err := tx.InsertPerformances(ctx, records); err != nil {
				return 0, err
			}
		}
		return len(records), nil

	case models.ReportMaintenanceIncome:
		records, skips := parse.MaintenanceIncomes(ds, code)
		s.logSkips(log, skips)
		for _, orderNumber := range distinctKeys(len(records), func(i int) string { return records[i].OrderNumber }) {
			if _, err := tx.ResolveWorkOrder(ctx, code, orderNumber); err != nil {
				return 0, err
			}
		}
		if len(records) > 0 {
			if err := tx.InsertIncomes(ctx, records); err != nil {
				return 0, err
			}
		}
		return len(records), nil
	}

	return 0, fmt.Errorf("no parser for report type %s", reportType)
}

// ingestClassificationFeed applies a shelf-life classification upload.
// These files are factory-wide: the provenance record carries no factory
// code and each row is a last-write-wins upsert.
func (s *Service) ingestClassificationFeed(ctx context.Context, log *zap.Logger, name, hash string, ds *tabular.Dataset) ([]models.UploadResult, error) {
	normalized, err := s.normalizer.Apply(models.ReportShelfLifeCode, ds)
	if err != nil {
		return rejected(name, hash, models.ReportShelfLifeCode, err), err
	}

	records, skips := parse.ShelfLife(normalized)
	s.logSkips(log, skips)

	upload := &models.Upload{
		FileName:    name,
		FileHash:    hash,
		FileType:    models.ReportShelfLifeCode,
		RecordCount: len(records),
		Status:      models.UploadStatusProcessed,
	}

	err = s.store.WithTx(ctx, func(tx database.Store) error {
		for _, rec := range records {
			if err := tx.ApplyClassification(ctx, rec); err != nil {
				return err
			}
		}
		return tx.CreateUpload(ctx, upload)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			if existing, ferr := s.store.GetUploadByHash(ctx, hash); ferr == nil && existing != nil {
				return []models.UploadResult{duplicateResult(name, existing)}, nil
			}
		}
		return rejected(name, hash, models.ReportShelfLifeCode, err), err
	}

	log.Info("Processed classification feed", zap.Int("records", len(records)))

	return []models.UploadResult{{
		FileName:    name,
		ContentHash: hash,
		ReportType:  models.ReportShelfLifeCode,
		RecordCount: len(records),
		Status:      models.UploadStatusProcessed,
	}}, nil
}

func (s *Service) logSkips(log *zap.Logger, skips []parse.Skip) {
	for _, skip := range skips {
		log.Warn("Skipped row",
			zap.Int("row", skip.Row),
			zap.String("reason", skip.Reason))
	}
}

func distinctKeys(n int, key func(int) string) []string {
	seen := make(map[string]struct{}, n)
	var out []string
	for i := 0; i < n; i++ {
		k := key(i)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func duplicateResult(name string, existing *models.Upload) models.UploadResult {
	return models.UploadResult{
		FileName:    name,
		ContentHash: existing.FileHash,
		FactoryCode: existing.FactoryCode,
		ReportType:  existing.FileType,
		RecordCount: existing.RecordCount,
		Status:      models.UploadStatusDuplicate,
	}
}

func rejected(name, hash string, reportType models.ReportType, err error) []models.UploadResult {
	return []models.UploadResult{{
		FileName:    name,
		ContentHash: hash,
		ReportType:  reportType,
		Status:      models.UploadStatusRejected,
		Error:       err.Error(),
	}}
}
