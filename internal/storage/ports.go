package storage

import (
	"context"

	"salesreport/internal/core"
)

// Ports implemented by the SQL repository and the in-memory store.
type (
	SalesWriter interface {
		// Reset drops and recreates the schema, discarding every stored sale.
		Reset(ctx context.Context) error
		// SaveSales persists the sales and returns how many rows were written.
		SaveSales(ctx context.Context, sales []core.Sale) (int, error)
		// ReplaceSales atomically swaps every stored sale for sales. The
		// previous data survives a failed replace.
		ReplaceSales(ctx context.Context, sales []core.Sale) (int, error)
	}

	SalesReader interface {
		ListItems(ctx context.Context) ([]core.Item, error)
		ListSales(ctx context.Context) ([]core.SaleRecord, error)
	}

	// TotalsReader groups stored sales by item and month.
	TotalsReader interface {
		MonthlyItemTotals(ctx context.Context) ([]core.ItemMonthTotal, error)
	}

	Store interface {
		SalesWriter
		SalesReader
		TotalsReader
		Close() error
	}
)
