package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aftersales-hub/factory-reports/internal/models"
)

const defaultQueryLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func (s *PostgresStore) ListShipments(ctx context.Context, filter models.RecordFilter) ([]*models.ShipmentRecord, error) {
	query := `
	SELECT factory_code, order_number, part_number, quantity, amount, shipment_date, row_data, checksum
	FROM part_shipments
	WHERE ($1 = '' OR factory_code = $1)
		AND ($2::date IS NULL OR shipment_date >= $2)
		AND ($3::date IS NULL OR shipment_date <= $3)
	ORDER BY shipment_date DESC NULLS LAST, id DESC
	LIMIT $4;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate, clampLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("error listing shipments: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.ShipmentRecord, error) {
		rec := &models.ShipmentRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.PartNumber,
			&rec.Quantity, &rec.Amount, &rec.ShipmentDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
}

func (s *PostgresStore) ListSales(ctx context.Context, filter models.RecordFilter) ([]*models.SaleRecord, error) {
	query := `
	SELECT factory_code, order_number, part_number, quantity, amount, sale_date, row_data, checksum
	FROM part_sales
	WHERE ($1 = '' OR factory_code = $1)
		AND ($2::date IS NULL OR sale_date >= $2)
		AND ($3::date IS NULL OR sale_date <= $3)
	ORDER BY sale_date DESC NULLS LAST, id DESC
	LIMIT $4;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate, clampLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.SaleRecord, error) {
		rec := &models.SaleRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.PartNumber,
			&rec.Quantity, &rec.Amount, &rec.SaleDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
}

func (s *PostgresStore) ListIncomes(ctx context.Context, filter models.RecordFilter) ([]*models.MaintenanceIncomeRecord, error) {
	query := `
	SELECT factory_code, order_number, COALESCE(income_category, ''), amount, income_date, row_data, checksum
	FROM maintenance_income
	WHERE ($1 = '' OR factory_code = $1)
		AND ($2::date IS NULL OR income_date >= $2)
		AND ($3::date IS NULL OR income_date <= $3)
	ORDER BY income_date DESC NULLS LAST, id DESC
	LIMIT $4;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate, clampLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("error listing maintenance income: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.MaintenanceIncomeRecord, error) {
		rec := &models.MaintenanceIncomeRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.IncomeCategory,
			&rec.Amount, &rec.IncomeDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
}

func (s *PostgresStore) listPerformances(ctx context.Context, factoryCode, orderNumber string) ([]*models.TechnicianPerformanceRecord, error) {
	query := `
	SELECT factory_code, COALESCE(order_number, ''), technician_name, work_hours, salary, bonus, performance_date, row_data, checksum
	FROM technician_performance
	WHERE factory_code = $1 AND order_number = $2
	ORDER BY id;`

	rows, err := s.db.Query(ctx, query, factoryCode, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("error listing technician performance: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.TechnicianPerformanceRecord, error) {
		rec := &models.TechnicianPerformanceRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.TechnicianName,
			&rec.WorkHours, &rec.Salary, &rec.Bonus, &rec.PerformanceDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
}

// GetWorkOrderDetail returns one work order with every record referencing
// it, or nil when the work order does not exist.
func (s *PostgresStore) GetWorkOrderDetail(ctx context.Context, factoryCode, orderNumber string) (*models.WorkOrderDetail, error) {
	order := &models.WorkOrder{}
	err := s.db.QueryRow(ctx, `
	SELECT id, factory_code, order_number, created_at, updated_at
	FROM work_orders
	WHERE factory_code = $1 AND order_number = $2;`, factoryCode, orderNumber,
	).Scan(&order.ID, &order.FactoryCode, &order.OrderNumber, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching work order %s/%s: %w", factoryCode, orderNumber, err)
	}

	detail := &models.WorkOrderDetail{WorkOrder: order}

	shipments, err := s.db.Query(ctx, `
	SELECT factory_code, order_number, part_number, quantity, amount, shipment_date, row_data, checksum
	FROM part_shipments WHERE factory_code = $1 AND order_number = $2 ORDER BY id;`, factoryCode, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("error listing shipments for work order: %w", err)
	}
	detail.Shipments, err = scanAll(shipments, func(r pgx.Rows) (*models.ShipmentRecord, error) {
		rec := &models.ShipmentRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.PartNumber,
			&rec.Quantity, &rec.Amount, &rec.ShipmentDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
	if err != nil {
		return nil, err
	}

	sales, err := s.db.Query(ctx, `
	SELECT factory_code, order_number, part_number, quantity, amount, sale_date, row_data, checksum
	FROM part_sales WHERE factory_code = $1 AND order_number = $2 ORDER BY id;`, factoryCode, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("error listing sales for work order: %w", err)
	}
	detail.Sales, err = scanAll(sales, func(r pgx.Rows) (*models.SaleRecord, error) {
		rec := &models.SaleRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.PartNumber,
			&rec.Quantity, &rec.Amount, &rec.SaleDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
	if err != nil {
		return nil, err
	}

	detail.Performances, err = s.listPerformances(ctx, factoryCode, orderNumber)
	if err != nil {
		return nil, err
	}

	incomes, err := s.db.Query(ctx, `
	SELECT factory_code, order_number, COALESCE(income_category, ''), amount, income_date, row_data, checksum
	FROM maintenance_income WHERE factory_code = $1 AND order_number = $2 ORDER BY id;`, factoryCode, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("error listing income for work order: %w", err)
	}
	detail.Incomes, err = scanAll(incomes, func(r pgx.Rows) (*models.MaintenanceIncomeRecord, error) {
		rec := &models.MaintenanceIncomeRecord{}
		err := r.Scan(&rec.FactoryCode, &rec.OrderNumber, &rec.IncomeCategory,
			&rec.Amount, &rec.IncomeDate, &rec.RowData, &rec.Checksum)
		return rec, err
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// FactoryPerformance aggregates income, part movement and labor cost per
// factory. Net profit is maintenance income plus part sales minus labor.
func (s *PostgresStore) FactoryPerformance(ctx context.Context, filter models.RecordFilter) ([]*models.FactoryPerformance, error) {
	query := `
	WITH income AS (
		SELECT factory_code, SUM(amount) AS total
		FROM maintenance_income
		WHERE ($2::date IS NULL OR income_date >= $2) AND ($3::date IS NULL OR income_date <= $3)
		GROUP BY factory_code
	),
	sales AS (
		SELECT factory_code, SUM(amount) AS total
		FROM part_sales
		WHERE ($2::date IS NULL OR sale_date >= $2) AND ($3::date IS NULL OR sale_date <= $3)
		GROUP BY factory_code
	),
	shipments AS (
		SELECT factory_code, SUM(amount) AS total
		FROM part_shipments
		WHERE ($2::date IS NULL OR shipment_date >= $2) AND ($3::date IS NULL OR shipment_date <= $3)
		GROUP BY factory_code
	),
	labor AS (
		SELECT factory_code, SUM(salary + bonus) AS total
		FROM technician_performance
		WHERE ($2::date IS NULL OR performance_date >= $2) AND ($3::date IS NULL OR performance_date <= $3)
		GROUP BY factory_code
	),
	orders AS (
		SELECT factory_code, COUNT(*) AS n
		FROM work_orders
		GROUP BY factory_code
	)
	SELECT f.code,
		COALESCE(o.n, 0),
		COALESCE(i.total, 0),
		COALESCE(sa.total, 0),
		COALESCE(sh.total, 0),
		COALESCE(l.total, 0),
		COALESCE(i.total, 0) + COALESCE(sa.total, 0) - COALESCE(l.total, 0)
	FROM factories f
	LEFT JOIN orders o ON o.factory_code = f.code
	LEFT JOIN income i ON i.factory_code = f.code
	LEFT JOIN sales sa ON sa.factory_code = f.code
	LEFT JOIN shipments sh ON sh.factory_code = f.code
	LEFT JOIN labor l ON l.factory_code = f.code
	WHERE ($1 = '' OR f.code = $1)
	ORDER BY f.code;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, fmt.Errorf("error querying factory performance: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.FactoryPerformance, error) {
		p := &models.FactoryPerformance{}
		err := r.Scan(&p.FactoryCode, &p.TotalOrders, &p.MaintenanceIncome,
			&p.PartSales, &p.PartShipments, &p.LaborCost, &p.NetProfit)
		return p, err
	})
}

// TechnicianSummary aggregates per-technician workload and pay, ordered by
// total pay descending.
func (s *PostgresStore) TechnicianSummary(ctx context.Context, filter models.RecordFilter) ([]*models.TechnicianSummary, error) {
	query := `
	SELECT factory_code,
		technician_name,
		COUNT(DISTINCT order_number) FILTER (WHERE COALESCE(order_number, '') <> ''),
		COALESCE(SUM(work_hours), 0),
		COALESCE(SUM(salary), 0),
		COALESCE(SUM(bonus), 0),
		CASE WHEN COALESCE(SUM(work_hours), 0) > 0
			THEN ROUND(SUM(salary) / SUM(work_hours), 2)
			ELSE 0
		END
	FROM technician_performance
	WHERE ($1 = '' OR factory_code = $1)
		AND ($2::date IS NULL OR performance_date >= $2)
		AND ($3::date IS NULL OR performance_date <= $3)
	GROUP BY factory_code, technician_name
	ORDER BY COALESCE(SUM(salary), 0) + COALESCE(SUM(bonus), 0) DESC;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, fmt.Errorf("error querying technician summary: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.TechnicianSummary, error) {
		t := &models.TechnicianSummary{}
		err := r.Scan(&t.FactoryCode, &t.TechnicianName, &t.OrderCount,
			&t.TotalHours, &t.TotalSalary, &t.TotalBonus, &t.AvgHourlyRate)
		return t, err
	})
}

// CategorySales breaks part sales down by the shelf-life classification
// category.
func (s *PostgresStore) CategorySales(ctx context.Context, filter models.RecordFilter) ([]*models.CategorySales, error) {
	query := `
	SELECT pc.category,
		COUNT(ps.id),
		COALESCE(SUM(ps.amount), 0)
	FROM part_categories pc
	JOIN part_sales ps ON ps.part_number = pc.part_number
	WHERE ($1 = '' OR ps.factory_code = $1)
		AND ($2::date IS NULL OR ps.sale_date >= $2)
		AND ($3::date IS NULL OR ps.sale_date <= $3)
	GROUP BY pc.category
	ORDER BY COALESCE(SUM(ps.amount), 0) DESC;`

	rows, err := s.db.Query(ctx, query, filter.FactoryCode, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, fmt.Errorf("error querying category sales: %w", err)
	}
	defer rows.Close()

	return scanAll(rows, func(r pgx.Rows) (*models.CategorySales, error) {
		c := &models.CategorySales{}
		err := r.Scan(&c.Category, &c.Count, &c.TotalAmount)
		return c, err
	})
}

func scanAll[T any](rows pgx.Rows, scan func(pgx.Rows) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, item)
	}

	return out, rows.Err()
}
