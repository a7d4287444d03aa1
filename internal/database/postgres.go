package database

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aftersales-hub/factory-reports/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same store
// code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Connect opens a pgx pool with the shopspring decimal codec registered,
// so numeric columns scan straight into decimal.Decimal.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return pool, nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, which ingestion treats as a lost dedup race.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithTx wraps fn in one transaction. A store already bound to a
// transaction reuses it instead of nesting.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS factories (
			id SERIAL PRIMARY KEY,
			code VARCHAR(10) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS work_orders (
			id SERIAL PRIMARY KEY,
			factory_code VARCHAR(10) NOT NULL,
			order_number VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (factory_code, order_number)
		);`,
		`CREATE TABLE IF NOT EXISTS part_categories (
			id SERIAL PRIMARY KEY,
			part_number VARCHAR(50) NOT NULL UNIQUE,
			category VARCHAR(50) NOT NULL,
			shelf_life_code VARCHAR(50),
			description VARCHAR(200),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS file_uploads (
			id SERIAL PRIMARY KEY,
			file_name VARCHAR(255) NOT NULL,
			file_hash VARCHAR(64) NOT NULL,
			factory_code VARCHAR(10),
			file_type VARCHAR(50) NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'processed',
			upload_date TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_file_uploads_hash_factory
			ON file_uploads (file_hash, COALESCE(factory_code, ''));`,
		`CREATE TABLE IF NOT EXISTS part_shipments (
			id BIGSERIAL PRIMARY KEY,
			factory_code VARCHAR(10) NOT NULL,
			order_number VARCHAR(50) NOT NULL,
			part_number VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			shipment_date DATE,
			row_data JSONB,
			checksum VARCHAR(16) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_part_shipments_order ON part_shipments (factory_code, order_number);`,
		`CREATE TABLE IF NOT EXISTS part_sales (
			id BIGSERIAL PRIMARY KEY,
			factory_code VARCHAR(10) NOT NULL,
			order_number VARCHAR(50) NOT NULL,
			part_number VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			sale_date DATE,
			row_data JSONB,
			checksum VARCHAR(16) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_part_sales_order ON part_sales (factory_code, order_number);`,
		`CREATE TABLE IF NOT EXISTS technician_performance (
			id BIGSERIAL PRIMARY KEY,
			factory_code VARCHAR(10) NOT NULL,
			order_number VARCHAR(50),
			technician_name VARCHAR(100) NOT NULL,
			work_hours NUMERIC(8, 2) NOT NULL DEFAULT 0,
			salary NUMERIC(12, 2) NOT NULL DEFAULT 0,
			bonus NUMERIC(12, 2) NOT NULL DEFAULT 0,
			performance_date DATE,
			row_data JSONB,
			checksum VARCHAR(16) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_technician_performance_name ON technician_performance (factory_code, technician_name);`,
		`CREATE TABLE IF NOT EXISTS maintenance_income (
			id BIGSERIAL PRIMARY KEY,
			factory_code VARCHAR(10) NOT NULL,
			order_number VARCHAR(50) NOT NULL,
			income_category VARCHAR(100),
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			income_date DATE,
			row_data JSONB,
			checksum VARCHAR(16) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_income_order ON maintenance_income (factory_code, order_number);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) GetUploadByHash(ctx context.Context, hash string) (*models.Upload, error) {
	query := `
	SELECT id, file_name, file_hash, factory_code, file_type, record_count, status, upload_date
	FROM file_uploads
	WHERE file_hash = $1
	ORDER BY id
	LIMIT 1;`

	upload := &models.Upload{}
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&upload.ID, &upload.FileName, &upload.FileHash, &upload.FactoryCode,
		&upload.FileType, &upload.RecordCount, &upload.Status, &upload.UploadDate,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding upload by hash: %w", err)
	}

	return upload, nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, upload *models.Upload) error {
	query := `
	INSERT INTO file_uploads (file_name, file_hash, factory_code, file_type, record_count, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, upload_date;`

	err := s.db.QueryRow(ctx, query,
		upload.FileName, upload.FileHash, upload.FactoryCode,
		upload.FileType, upload.RecordCount, upload.Status,
	).Scan(&upload.ID, &upload.UploadDate)
	if err != nil {
		return fmt.Errorf("error inserting upload record: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListUploads(ctx context.Context, factoryCode string, limit int) ([]*models.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, file_name, file_hash, factory_code, file_type, record_count, status, upload_date
	FROM file_uploads
	WHERE ($1 = '' OR factory_code = $1)
	ORDER BY upload_date DESC
	LIMIT $2;`

	rows, err := s.db.Query(ctx, query, factoryCode, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*models.Upload
	for rows.Next() {
		upload := &models.Upload{}
		if err := rows.Scan(
			&upload.ID, &upload.FileName, &upload.FileHash, &upload.FactoryCode,
			&upload.FileType, &upload.RecordCount, &upload.Status, &upload.UploadDate,
		); err != nil {
			return nil, fmt.Errorf("error scanning upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	return uploads, rows.Err()
}

// ResolveFactory is an idempotent get-or-create on the factory code. The
// insert-then-select shape makes concurrent callers converge on one row
// instead of racing past a read-then-write check.
func (s *PostgresStore) ResolveFactory(ctx context.Context, code string) (*models.Factory, error) {
	insert := `
	INSERT INTO factories (code, name)
	VALUES ($1, $1)
	ON CONFLICT (code) DO NOTHING;`

	if _, err := s.db.Exec(ctx, insert, code); err != nil {
		return nil, fmt.Errorf("error creating factory %s: %w", code, err)
	}

	factory := &models.Factory{}
	err := s.db.QueryRow(ctx,
		`SELECT id, code, name, created_at FROM factories WHERE code = $1;`, code,
	).Scan(&factory.ID, &factory.Code, &factory.Name, &factory.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error fetching factory %s: %w", code, err)
	}

	return factory, nil
}

func (s *PostgresStore) ResolveWorkOrder(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrder, error) {
	insert := `
	INSERT INTO work_orders (factory_code, order_number)
	VALUES ($1, $2)
	ON CONFLICT (factory_code, order_number) DO NOTHING;`

	if _, err := s.db.Exec(ctx, insert, factoryCode, orderNumber); err != nil {
		return nil, fmt.Errorf("error creating work order %s/%s: %w", factoryCode, orderNumber, err)
	}

	order := &models.WorkOrder{}
	err := s.db.QueryRow(ctx, `
	SELECT id, factory_code, order_number, created_at, updated_at
	FROM work_orders
	WHERE factory_code = $1 AND order_number = $2;`, factoryCode, orderNumber,
	).Scan(&order.ID, &order.FactoryCode, &order.OrderNumber, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error fetching work order %s/%s: %w", factoryCode, orderNumber, err)
	}

	return order, nil
}

// ResolvePartCategory creates the part with the default category on first
// reference. It never overwrites an existing classification; that is
// ApplyClassification's job.
func (s *PostgresStore) ResolvePartCategory(ctx context.Context, partNumber string) (*models.PartCategory, error) {
	insert := `
	INSERT INTO part_categories (part_number, category)
	VALUES ($1, $2)
	ON CONFLICT (part_number) DO NOTHING;`

	if _, err := s.db.Exec(ctx, insert, partNumber, models.DefaultPartCategory); err != nil {
		return nil, fmt.Errorf("error creating part category %s: %w", partNumber, err)
	}

	return s.getPartCategory(ctx, partNumber)
}

// ApplyClassification is a last-write-wins upsert from the shelf-life
// classification feed. Blank shelf-life code and description keep any
// previously stored value.
func (s *PostgresStore) ApplyClassification(ctx context.Context, rec *models.ShelfLifeRecord) error {
	query := `
	INSERT INTO part_categories (part_number, category, shelf_life_code, description)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
	ON CONFLICT (part_number) DO UPDATE SET
		category = EXCLUDED.category,
		shelf_life_code = COALESCE(EXCLUDED.shelf_life_code, part_categories.shelf_life_code),
		description = COALESCE(EXCLUDED.description, part_categories.description),
		updated_at = now();`

	if _, err := s.db.Exec(ctx, query, rec.PartNumber, rec.Category, rec.ShelfLifeCode, rec.Description); err != nil {
		return fmt.Errorf("error applying classification for %s: %w", rec.PartNumber, err)
	}

	return nil
}

func (s *PostgresStore) getPartCategory(ctx context.Context, partNumber string) (*models.PartCategory, error) {
	part := &models.PartCategory{}
	var shelfLifeCode, description *string

	err := s.db.QueryRow(ctx, `
	SELECT id, part_number, category, shelf_life_code, description, created_at, updated_at
	FROM part_categories
	WHERE part_number = $1;`, partNumber,
	).Scan(&part.ID, &part.PartNumber, &part.Category, &shelfLifeCode, &description, &part.CreatedAt, &part.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error fetching part category %s: %w", partNumber, err)
	}

	if shelfLifeCode != nil {
		part.ShelfLifeCode = *shelfLifeCode
	}
	if description != nil {
		part.Description = *description
	}

	return part, nil
}

func (s *PostgresStore) InsertShipments(ctx context.Context, records []*models.ShipmentRecord) error {
	columns := []string{"factory_code", "order_number", "part_number", "quantity", "amount", "shipment_date", "row_data", "checksum"}

	source := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.FactoryCode, r.OrderNumber, r.PartNumber, r.Quantity, r.Amount, r.ShipmentDate, r.RowData, r.Checksum}, nil
	})

	if _, err := s.db.CopyFrom(ctx, pgx.Identifier{"part_shipments"}, columns, source); err != nil {
		return fmt.Errorf("error bulk inserting shipments: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSales(ctx context.Context, records []*models.SaleRecord) error {
	columns := []string{"factory_code", "order_number", "part_number", "quantity", "amount", "sale_date", "row_data", "checksum"}

	source := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.FactoryCode, r.OrderNumber, r.PartNumber, r.Quantity, r.Amount, r.SaleDate, r.RowData, r.Checksum}, nil
	})

	if _, err := s.db.CopyFrom(ctx, pgx.Identifier{"part_sales"}, columns, source); err != nil {
		return fmt.Errorf("error bulk inserting sales: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertPerformances(ctx context.Context, records []*models.TechnicianPerformanceRecord) error {
	columns := []string{"factory_code", "order_number", "technician_name", "work_hours", "salary", "bonus", "performance_date", "row_data", "checksum"}

	source := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.FactoryCode, r.OrderNumber, r.TechnicianName, r.WorkHours, r.Salary, r.Bonus, r.PerformanceDate, r.RowData, r.Checksum}, nil
	})

	if _, err := s.db.CopyFrom(ctx, pgx.Identifier{"technician_performance"}, columns, source); err != nil {
		return fmt.Errorf("error bulk inserting technician performance: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertIncomes(ctx context.Context, records []*models.MaintenanceIncomeRecord) error {
	columns := []string{"factory_code", "order_number", "income_category", "amount", "income_date", "row_data", "checksum"}

	source := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.FactoryCode, r.OrderNumber, r.IncomeCategory, r.Amount, r.IncomeDate, r.RowData, r.Checksum}, nil
	})

	if _, err := s.db.CopyFrom(ctx, pgx.Identifier{"maintenance_income"}, columns, source); err != nil {
		return fmt.Errorf("error bulk inserting maintenance income: %w", err)
	}
	return nil
}
