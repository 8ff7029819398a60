// Package ingest reads sales transaction files into core.Sale values.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"salesreport/internal/core"
	applog "salesreport/internal/log"
)

var (
	// ErrFileNotFound is returned when the sales file does not exist.
	ErrFileNotFound = errors.New("sales file not found")
	// ErrInvalidRecord wraps the validation error of a rejected transaction.
	ErrInvalidRecord = errors.New("invalid sales record")
	// ErrMalformedData is returned when the file is not a transaction list.
	ErrMalformedData = errors.New("malformed sales data")
)

type Options struct {
	// SkipInvalid logs and drops bad records instead of failing the load.
	SkipInvalid bool
	Logger      *applog.Logger
}

// Stats describes one load.
type Stats struct {
	Read     int
	Accepted int
	Skipped  int
}

// LoadFile reads and validates the sales file at path.
func LoadFile(ctx context.Context, path string, opts Options) ([]core.Sale, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Stats{}, fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, Stats{}, fmt.Errorf("open sales file: %w", err)
	}
	defer f.Close()

	sales, stats, err := Decode(ctx, f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}

	logger(opts).InfoContext(ctx, "Loaded sales file",
		applog.FieldPath, path,
		applog.FieldRecords, stats.Accepted,
		applog.FieldSkipped, stats.Skipped)

	return sales, stats, nil
}

// Decode parses a JSON array of transactions, or an object holding the array
// under "sales" or "transactions".
func Decode(ctx context.Context, r io.Reader, opts Options) ([]core.Sale, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read sales data: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, Stats{}, err
	}

	log := logger(opts)
	stats := Stats{Read: len(records)}
	sales := make([]core.Sale, 0, len(records))
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		sale, err := decodeSale(raw)
		if err != nil {
			if !opts.SkipInvalid {
				return nil, stats, fmt.Errorf("record %d: %w: %w", i, ErrInvalidRecord, err)
			}
			stats.Skipped++
			log.WarnContext(ctx, "Skipping invalid sales record",
				"index", i,
				applog.FieldError, err)
			continue
		}
		sales = append(sales, sale)
	}
	stats.Accepted = len(sales)

	return sales, stats, nil
}

// decodeRecords splits the input into one raw message per transaction so a
// malformed record can be skipped on its own.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedData)
	}

	switch trimmed[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
		}
		return records, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
		}
		for _, key := range []string{"sales", "transactions"} {
			body, ok := wrapper[key]
			if !ok {
				continue
			}
			var records []json.RawMessage
			if err := json.Unmarshal(body, &records); err != nil || records == nil {
				return nil, fmt.Errorf("%w: %q must be an array of transactions", ErrMalformedData, key)
			}
			return records, nil
		}
		return nil, fmt.Errorf(`%w: object has no "sales" or "transactions" array`, ErrMalformedData)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrMalformedData)
	}
}

func decodeSale(raw json.RawMessage) (core.Sale, error) {
	var tx transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return core.Sale{}, fmt.Errorf("decode record: %w", err)
	}
	sale, err := tx.toSale()
	if err != nil {
		return core.Sale{}, err
	}
	return sale, sale.Validate()
}

type transaction struct {
	CustomerID flexString `json:"customer_id"`
	ItemName   string     `json:"item_name"`
	Item       string     `json:"item"`
	Month      flexString `json:"month"`
	Count      flexNumber `json:"count"`
	TotalPrice flexNumber `json:"total_price"`
}

func (t transaction) toSale() (core.Sale, error) {
	name := t.ItemName
	if strings.TrimSpace(name) == "" {
		name = t.Item
	}

	month, err := core.ParseMonth(string(t.Month))
	if err != nil {
		return core.Sale{}, err
	}

	units, err := t.Count.units()
	if err != nil {
		return core.Sale{}, err
	}

	price, err := t.TotalPrice.money()
	if err != nil {
		return core.Sale{}, err
	}

	return core.Sale{
		CustomerID: strings.TrimSpace(string(t.CustomerID)),
		Item:       strings.TrimSpace(name),
		Month:      month,
		Units:      units,
		TotalPrice: price,
	}, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber struct {
	raw string
	set bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	n.raw = strings.TrimSpace(string(s))
	n.set = n.raw != ""
	return nil
}

func (n flexNumber) decimal() (decimal.Decimal, error) {
	if !n.set {
		return decimal.Zero, errors.New("missing number")
	}
	return decimal.NewFromString(strings.ReplaceAll(n.raw, ",", "."))
}

func (n flexNumber) units() (int64, error) {
	d, err := n.decimal()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidUnits, err)
	}
	if !d.IsInteger() || d.IsNegative() || !d.LessThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidUnits, n.raw)
	}
	return d.IntPart(), nil
}

func (n flexNumber) money() (core.Money, error) {
	d, err := n.decimal()
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %s", err, n.raw)
	}
	return m, nil
}

func logger(opts Options) *applog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentIngest)
}
