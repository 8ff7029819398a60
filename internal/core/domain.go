package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength bounds item names and customer identifiers.
const MaxNameLength = 255

type (
	// Month identifies a calendar month. Year 0 means the source did not
	// carry a year.
	Month struct {
		Year  int
		Month time.Month
	}

	Money struct {
		Cents int64
	}

	Item struct {
		ID   int64
		Name string
	}

	// Sale is a single transaction as read from the input file.
	Sale struct {
		CustomerID string
		Item       string
		Month      Month
		Units      int64
		TotalPrice Money
	}

	// SaleRecord is a persisted sale joined with its item.
	SaleRecord struct {
		ID         int64
		ItemID     int64
		Item       string
		CustomerID string
		Month      Month
		Units      int64
		TotalPrice Money
	}
)

var (
	ErrEmptyItem     = errors.New("empty item name")
	ErrEmptyCustomer = errors.New("empty customer id")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidUnits  = errors.New("invalid unit count")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNameTooLong   = fmt.Errorf("value too long (max %d characters)", MaxNameLength)
)

// NewMonth creates a Month from year and month number.
func NewMonth(year, month int) Month {
	return Month{Year: year, Month: time.Month(month)}
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	if m.Year < 0 || m.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

// Dated reports whether the month carries a year.
func (m Month) Dated() bool {
	return m.Year > 0
}

// Before orders months chronologically; undated months sort first.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Label returns "2006-01" for dated months and "Jan" otherwise.
func (m Month) Label() string {
	if !m.Dated() {
		return m.Month.String()[:3]
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) String() string {
	return m.Label()
}

var monthLayouts = []string{
	"2006-01",
	"2006-01-02",
	"01/2006",
	"1/2006",
	"January 2006",
	"Jan 2006",
	"2006-01-02T15:04:05Z07:00",
}

// ParseMonth accepts the month spellings found in sales exports: ISO year-month,
// full dates, "MM/YYYY", month names with or without a year, and 1..12.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Month{}, ErrInvalidMonth
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := Month{Month: time.Month(n)}
		if err := m.Validate(); err != nil {
			return Month{}, err
		}
		return m, nil
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	// Month name without a year; time.Parse matches names case-insensitively
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Month{Month: t.Month()}, nil
		}
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (s Sale) Validate() error {
	item := strings.TrimSpace(s.Item)
	if item == "" {
		return ErrEmptyItem
	}
	if utf8.RuneCountInString(item) > MaxNameLength {
		return fmt.Errorf("item name: %w", ErrNameTooLong)
	}
	customer := strings.TrimSpace(s.CustomerID)
	if customer == "" {
		return ErrEmptyCustomer
	}
	if utf8.RuneCountInString(customer) > MaxNameLength {
		return fmt.Errorf("customer id: %w", ErrNameTooLong)
	}
	if err := s.Month.Validate(); err != nil {
		return err
	}
	if s.Units < 0 {
		return ErrInvalidUnits
	}
	if err := s.TotalPrice.Validate(); err != nil {
		return err
	}
	return nil
}
