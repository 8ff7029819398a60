package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"salesreport/internal/cache"
	"salesreport/internal/core"
)

const itemCacheSize = 4096

type SQLRepository struct {
	db      *sqlx.DB
	driver  string
	dsn     string
	itemIDs cache.Cache[int64]
}

var _ Store = (*SQLRepository)(nil)

// SQLiteDSN returns a modernc DSN for path with foreign keys enforced.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteRepository opens (creating if needed) the SQLite database at dbPath.
// dbPath must be a file: migrations run on their own connection.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return NewSQLRepository(DriverSQLite, SQLiteDSN(dbPath))
}

// NewPostgresRepository connects to PostgreSQL through lib/pq.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return NewSQLRepository(DriverPostgres, dsn)
}

func NewSQLRepository(driverName, dsn string) (*SQLRepository, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if driverName == DriverSQLite {
		// Single writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(driverName, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		driver:  driverName,
		dsn:     dsn,
		itemIDs: cache.NewLRUCache[int64](itemCacheSize, 0),
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Driver returns the database/sql driver name.
func (r *SQLRepository) Driver() string {
	return r.driver
}

// Reset implements SalesWriter
func (r *SQLRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ResetSchema(r.driver, r.dsn); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	r.itemIDs.Purge()

	slog.InfoContext(ctx, "Sales schema reset", "driver", r.driver)
	return nil
}

// SaveSales implements SalesWriter. All rows are written in one transaction.
func (r *SQLRepository) SaveSales(ctx context.Context, sales []core.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	start := time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	resolved, err := r.insertSales(ctx, tx, sales, true)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sales: %w", err)
	}
	for name, id := range resolved {
		r.itemIDs.Set(name, id)
	}

	slog.InfoContext(ctx, "Sales saved",
		"driver", r.driver,
		"records", len(sales),
		"items", len(resolved),
		"duration_ms", time.Since(start).Milliseconds())

	return len(sales), nil
}

// ReplaceSales implements SalesWriter. The delete and the inserts share one
// transaction: on any failure the previously stored sales remain.
func (r *SQLRepository) ReplaceSales(ctx context.Context, sales []core.Sale) (int, error) {
	start := time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sale_records", "items"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	// Cached item IDs refer to the rows just deleted
	resolved, err := r.insertSales(ctx, tx, sales, false)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sales: %w", err)
	}
	r.itemIDs.Purge()
	for name, id := range resolved {
		r.itemIDs.Set(name, id)
	}

	slog.InfoContext(ctx, "Sales replaced",
		"driver", r.driver,
		"records", len(sales),
		"items", len(resolved),
		"duration_ms", time.Since(start).Milliseconds())

	return len(sales), nil
}

// insertSales writes sales inside tx and returns the item IDs it resolved.
// IDs resolved inside the transaction reach the cache only after commit.
func (r *SQLRepository) insertSales(ctx context.Context, tx *sqlx.Tx, sales []core.Sale, useCache bool) (map[string]int64, error) {
	resolved := make(map[string]int64)
	if len(sales) == 0 {
		return resolved, nil
	}

	insertSale, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO sale_records (item_id, customer_id, period_year, period_month, units, total_price_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("prepare sale insert: %w", err)
	}
	defer insertSale.Close()

	for i, s := range sales {
		itemID, err := r.resolveItem(ctx, tx, s.Item, resolved, useCache)
		if err != nil {
			return nil, fmt.Errorf("sale %d: %w", i, err)
		}

		if _, err := insertSale.ExecContext(ctx,
			itemID,
			s.CustomerID,
			s.Month.Year,
			int(s.Month.Month),
			s.Units,
			s.TotalPrice.Cents,
		); err != nil {
			return nil, fmt.Errorf("insert sale %d: %w", i, err)
		}
	}
	return resolved, nil
}

func (r *SQLRepository) resolveItem(ctx context.Context, tx *sqlx.Tx, name string, resolved map[string]int64, useCache bool) (int64, error) {
	if id, ok := resolved[name]; ok {
		return id, nil
	}
	if useCache {
		if id, ok := r.itemIDs.Get(name); ok {
			return id, nil
		}
	}

	var id int64
	err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM items WHERE name = ?`), name)
	switch {
	case err == nil:
		resolved[name] = id
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup item %q: %w", name, err)
	}

	if err := tx.GetContext(ctx, &id, tx.Rebind(`INSERT INTO items (name) VALUES (?) RETURNING id`), name); err != nil {
		return 0, fmt.Errorf("create item %q: %w", name, err)
	}
	resolved[name] = id
	return id, nil
}

// ListItems implements SalesReader
func (r *SQLRepository) ListItems(ctx context.Context) ([]core.Item, error) {
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name FROM items ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]core.Item, len(rows))
	for i, row := range rows {
		items[i] = core.Item{ID: row.ID, Name: row.Name}
	}
	return items, nil
}

// ListSales implements SalesReader
func (r *SQLRepository) ListSales(ctx context.Context) ([]core.SaleRecord, error) {
	var rows []saleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.item_id, i.name AS item_name, s.customer_id,
		       s.period_year, s.period_month, s.units, s.total_price_cents
		FROM sale_records s
		JOIN items i ON i.id = s.item_id
		ORDER BY s.period_year, s.period_month, i.name, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	records := make([]core.SaleRecord, len(rows))
	for i, row := range rows {
		records[i] = core.SaleRecord{
			ID:         row.ID,
			ItemID:     row.ItemID,
			Item:       row.ItemName,
			CustomerID: row.CustomerID,
			Month:      core.NewMonth(row.PeriodYear, row.PeriodMonth),
			Units:      row.Units,
			TotalPrice: core.Money{Cents: row.TotalPriceCents},
		}
	}

	slog.DebugContext(ctx, "Sales reloaded", "driver", r.driver, "records", len(records))
	return records, nil
}

// MonthlyItemTotals implements TotalsReader
func (r *SQLRepository) MonthlyItemTotals(ctx context.Context) ([]core.ItemMonthTotal, error) {
	var rows []totalRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT i.name AS item_name, s.period_year, s.period_month,
		       CAST(SUM(s.units) AS BIGINT) AS units,
		       CAST(SUM(s.total_price_cents) AS BIGINT) AS revenue_cents
		FROM sale_records s
		JOIN items i ON i.id = s.item_id
		GROUP BY i.name, s.period_year, s.period_month
		ORDER BY s.period_year, s.period_month, i.name`)
	if err != nil {
		return nil, fmt.Errorf("monthly item totals: %w", err)
	}

	totals := make([]core.ItemMonthTotal, len(rows))
	for i, row := range rows {
		totals[i] = core.ItemMonthTotal{
			Item:    row.ItemName,
			Month:   core.NewMonth(row.PeriodYear, row.PeriodMonth),
			Units:   row.Units,
			Revenue: core.Money{Cents: row.RevenueCents},
		}
	}
	return totals, nil
}

type itemRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type saleRow struct {
	ID              int64  `db:"id"`
	ItemID          int64  `db:"item_id"`
	ItemName        string `db:"item_name"`
	CustomerID      string `db:"customer_id"`
	PeriodYear      int    `db:"period_year"`
	PeriodMonth     int    `db:"period_month"`
	Units           int64  `db:"units"`
	TotalPriceCents int64  `db:"total_price_cents"`
}

type totalRow struct {
	ItemName     string `db:"item_name"`
	PeriodYear   int    `db:"period_year"`
	PeriodMonth  int    `db:"period_month"`
	Units        int64  `db:"units"`
	RevenueCents int64  `db:"revenue_cents"`
}
