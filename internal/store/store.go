package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"billing_monitor/internal/billing"
)

// Store wraps SQLite access for persisted high bills and sync runs.
// The UNIQUE(house_id, month) constraint is the correctness backstop
// for concurrent syncs; the pre-insert existence check is only an
// optimization for duplicate counting.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS high_bills (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            house_id TEXT NOT NULL,
            owner_name TEXT,
            address TEXT,
            month TEXT NOT NULL,
            units_consumed INTEGER DEFAULT 0,
            bill_amount REAL NOT NULL,
            created_at TIMESTAMP,
            updated_at TIMESTAMP,
            UNIQUE(house_id, month)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_high_bills_house ON high_bills(house_id);`,
		`CREATE INDEX IF NOT EXISTS idx_high_bills_month ON high_bills(month);`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            started_at TIMESTAMP,
            finished_at TIMESTAMP,
            status TEXT,
            files_processed INTEGER DEFAULT 0,
            new_records INTEGER DEFAULT 0,
            duplicates_skipped INTEGER DEFAULT 0,
            error TEXT
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Bill is one persisted high-bill row. JSON field names follow the
// upload column convention so dashboard payloads mirror the source
// spreadsheets.
type Bill struct {
	ID            int64     `json:"id"`
	HouseID       string    `json:"House_ID"`
	OwnerName     string    `json:"Owner_Name"`
	Address       string    `json:"Address"`
	Month         string    `json:"Month"`
	UnitsConsumed int       `json:"Units_Consumed"`
	BillAmount    float64   `json:"Bill_Amount"`
	CreatedAt     time.Time `json:"Created_At"`
	UpdatedAt     time.Time `json:"Updated_At"`
}

// Exists reports whether a (house_id, month) key is already persisted.
func (s *Store) Exists(ctx context.Context, houseID, month string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM high_bills WHERE house_id=? AND month=?`, houseID, month)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertBatch commits one sync batch atomically. Records whose key is
// already persisted count as duplicates; everything else inserts. Any
// error rolls back the whole batch, leaving prior state untouched.
func (s *Store) InsertBatch(ctx context.Context, recs []billing.Record, now time.Time) (inserted, duplicates int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO high_bills
        (house_id, owner_name, address, month, units_consumed, bill_amount, created_at, updated_at)
        VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(house_id, month) DO NOTHING`)
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	for _, r := range recs {
		res, execErr := stmt.ExecContext(ctx, r.HouseID, r.OwnerName, r.Address, r.Month, r.UnitsConsumed, r.BillAmount, now, now)
		if execErr != nil {
			err = fmt.Errorf("insert %s/%s: %w", r.HouseID, r.Month, execErr)
			return 0, 0, err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			duplicates++
		} else {
			inserted++
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return inserted, duplicates, nil
}

// QueryFilter narrows and orders dashboard queries. SortBy is checked
// against a whitelist; anything else falls back to bill_amount.
type QueryFilter struct {
	Month  string
	SortBy string
	Order  string
	Limit  int
}

var sortColumns = map[string]string{
	"bill_amount":    "bill_amount",
	"units_consumed": "units_consumed",
	"month":          "month",
	"house_id":       "house_id",
}

func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Bill, error) {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "bill_amount"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}

	query := `SELECT id, house_id, owner_name, address, month, units_consumed, bill_amount, created_at, updated_at FROM high_bills`
	var args []any
	if f.Month != "" {
		query += ` WHERE month=?`
		args = append(args, f.Month)
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, col, dir)
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryBills(ctx, query, args...)
}

// Search matches a term against house_id, owner_name and address, with
// optional amount bounds. Results come back highest bill first.
func (s *Store) Search(ctx context.Context, term string, minAmount, maxAmount *float64) ([]Bill, error) {
	query := `SELECT id, house_id, owner_name, address, month, units_consumed, bill_amount, created_at, updated_at FROM high_bills WHERE 1=1`
	var args []any
	if term != "" {
		like := "%" + term + "%"
		query += ` AND (house_id LIKE ? OR owner_name LIKE ? OR address LIKE ?)`
		args = append(args, like, like, like)
	}
	if minAmount != nil {
		query += ` AND bill_amount >= ?`
		args = append(args, *minAmount)
	}
	if maxAmount != nil {
		query += ` AND bill_amount <= ?`
		args = append(args, *maxAmount)
	}
	query += ` ORDER BY bill_amount DESC`
	return s.queryBills(ctx, query, args...)
}

// TopBills returns the N highest persisted bills.
func (s *Store) TopBills(ctx context.Context, limit int) ([]Bill, error) {
	return s.queryBills(ctx, `SELECT id, house_id, owner_name, address, month, units_consumed, bill_amount, created_at, updated_at
        FROM high_bills ORDER BY bill_amount DESC LIMIT ?`, limit)
}

// Months returns the distinct months present, sorted lexically.
func (s *Store) Months(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT month FROM high_bills ORDER BY month ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// OverallStats aggregates the whole table.
type OverallStats struct {
	TotalBillAmount      float64 `json:"total_bill_amount"`
	AverageBillAmount    float64 `json:"average_bill_amount"`
	MaxBillAmount        float64 `json:"max_bill_amount"`
	MinBillAmount        float64 `json:"min_bill_amount"`
	TotalUnitsConsumed   int64   `json:"total_units_consumed"`
	AverageUnitsConsumed float64 `json:"average_units_consumed"`
}

// MonthStats aggregates one month's rows.
type MonthStats struct {
	Month         string  `json:"month"`
	Count         int64   `json:"count"`
	TotalAmount   float64 `json:"total_amount"`
	AverageAmount float64 `json:"average_amount"`
	MaxAmount     float64 `json:"max_amount"`
	MinAmount     float64 `json:"min_amount"`
	TotalUnits    int64   `json:"total_units"`
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM high_bills`)
	var n int64
	err := row.Scan(&n)
	return n, err
}

func (s *Store) Stats(ctx context.Context) (OverallStats, []MonthStats, error) {
	var overall OverallStats
	row := s.db.QueryRowContext(ctx, `SELECT
        COALESCE(SUM(bill_amount),0), COALESCE(AVG(bill_amount),0),
        COALESCE(MAX(bill_amount),0), COALESCE(MIN(bill_amount),0),
        COALESCE(SUM(units_consumed),0), COALESCE(AVG(units_consumed),0)
        FROM high_bills`)
	if err := row.Scan(&overall.TotalBillAmount, &overall.AverageBillAmount,
		&overall.MaxBillAmount, &overall.MinBillAmount,
		&overall.TotalUnitsConsumed, &overall.AverageUnitsConsumed); err != nil {
		return overall, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT month, COUNT(id), SUM(bill_amount), AVG(bill_amount), MAX(bill_amount), MIN(bill_amount), SUM(units_consumed)
        FROM high_bills GROUP BY month ORDER BY month ASC`)
	if err != nil {
		return overall, nil, err
	}
	defer rows.Close()
	var byMonth []MonthStats
	for rows.Next() {
		var m MonthStats
		if err := rows.Scan(&m.Month, &m.Count, &m.TotalAmount, &m.AverageAmount, &m.MaxAmount, &m.MinAmount, &m.TotalUnits); err != nil {
			return overall, nil, err
		}
		byMonth = append(byMonth, m)
	}
	return overall, byMonth, rows.Err()
}

// MonthlyStats aggregates a single month; Count 0 means no data.
func (s *Store) MonthlyStats(ctx context.Context, month string) (MonthStats, error) {
	m := MonthStats{Month: month}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(id), COALESCE(SUM(bill_amount),0), COALESCE(AVG(bill_amount),0),
        COALESCE(MAX(bill_amount),0), COALESCE(MIN(bill_amount),0), COALESCE(SUM(units_consumed),0)
        FROM high_bills WHERE month=?`, month)
	err := row.Scan(&m.Count, &m.TotalAmount, &m.AverageAmount, &m.MaxAmount, &m.MinAmount, &m.TotalUnits)
	return m, err
}

// UniqueCounts returns distinct house and month counts for the quick
// summary endpoint.
func (s *Store) UniqueCounts(ctx context.Context) (houses, months int64, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT house_id), COUNT(DISTINCT month) FROM high_bills`)
	err = row.Scan(&houses, &months)
	return houses, months, err
}

// Clear removes every persisted bill and returns how many went away.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM high_bills`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Health returns err if the DB is not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bills []Bill
	for rows.Next() {
		var b Bill
		var owner, addr sql.NullString
		if err := rows.Scan(&b.ID, &b.HouseID, &owner, &addr, &b.Month, &b.UnitsConsumed, &b.BillAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.OwnerName = owner.String
		b.Address = addr.String
		bills = append(bills, b)
	}
	return bills, rows.Err()
}
