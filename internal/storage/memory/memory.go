// Package memory is a process-local sales store used for DATA_BACKEND=memory
// and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"salesreport/internal/core"
	"salesreport/internal/report"
	"salesreport/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	itemIDs map[string]int64
	items   []core.Item
	sales   []core.SaleRecord
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{itemIDs: map[string]int64{}}
}

// Reset discards every item and sale.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemIDs = map[string]int64{}
	s.items = nil
	s.sales = nil
	return nil
}

// SaveSales validates every sale before storing any of them.
func (s *Store) SaveSales(ctx context.Context, sales []core.Sale) (int, error) {
	if err := validate(ctx, sales); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(sales)
	return len(sales), nil
}

// ReplaceSales discards the stored sales and keeps sales instead. Nothing
// changes when any of them is invalid.
func (s *Store) ReplaceSales(ctx context.Context, sales []core.Sale) (int, error) {
	if err := validate(ctx, sales); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemIDs = map[string]int64{}
	s.items = nil
	s.sales = nil
	s.append(sales)
	return len(sales), nil
}

func validate(ctx context.Context, sales []core.Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, sale := range sales {
		if err := sale.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// append requires s.mu.
func (s *Store) append(sales []core.Sale) {
	for _, sale := range sales {
		id, ok := s.itemIDs[sale.Item]
		if !ok {
			id = int64(len(s.items) + 1)
			s.itemIDs[sale.Item] = id
			s.items = append(s.items, core.Item{ID: id, Name: sale.Item})
		}
		s.sales = append(s.sales, core.SaleRecord{
			ID:         int64(len(s.sales) + 1),
			ItemID:     id,
			Item:       sale.Item,
			CustomerID: sale.CustomerID,
			Month:      sale.Month,
			Units:      sale.Units,
			TotalPrice: sale.TotalPrice,
		})
	}
}

// ListItems returns items ordered by name.
func (s *Store) ListItems(_ context.Context) ([]core.Item, error) {
	s.mu.Lock()
	items := append([]core.Item(nil), s.items...)
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// ListSales returns sales ordered by month, item name and insertion order.
func (s *Store) ListSales(_ context.Context) ([]core.SaleRecord, error) {
	s.mu.Lock()
	records := append([]core.SaleRecord(nil), s.sales...)
	s.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		return a.ID < b.ID
	})
	return records, nil
}

func (s *Store) MonthlyItemTotals(ctx context.Context) ([]core.ItemMonthTotal, error) {
	records, err := s.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return report.Summarize(records), nil
}

func (s *Store) Close() error { return nil }
