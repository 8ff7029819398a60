// Package report turns stored sales into the aggregated view behind the
// units and revenue charts, and renders those charts.
package report

import (
	"sort"

	"salesreport/internal/core"
)

type itemMonthKey struct {
	item  string
	month core.Month
}

// Summarize groups sale records by item and month, summing units and revenue.
// The result is ordered by month, then item name.
func Summarize(records []core.SaleRecord) []core.ItemMonthTotal {
	index := make(map[itemMonthKey]int)
	var totals []core.ItemMonthTotal

	for _, rec := range records {
		key := itemMonthKey{item: rec.Item, month: rec.Month}
		i, ok := index[key]
		if !ok {
			i = len(totals)
			index[key] = i
			totals = append(totals, core.ItemMonthTotal{Item: rec.Item, Month: rec.Month})
		}
		totals[i].Units += rec.Units
		totals[i].Revenue = totals[i].Revenue.Add(rec.TotalPrice)
	}

	SortTotals(totals)
	return totals
}

// SortTotals orders totals by month, then item name.
func SortTotals(totals []core.ItemMonthTotal) {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Month != totals[j].Month {
			return totals[i].Month.Before(totals[j].Month)
		}
		return totals[i].Item < totals[j].Item
	})
}

// RankItems sums every item over all months and orders them by units sold,
// descending, with ties broken by name.
func RankItems(totals []core.ItemMonthTotal) []core.ItemRank {
	byItem := make(map[string]*core.ItemRank)
	var ranks []*core.ItemRank
	for _, t := range totals {
		r, ok := byItem[t.Item]
		if !ok {
			r = &core.ItemRank{Name: t.Item}
			byItem[t.Item] = r
			ranks = append(ranks, r)
		}
		r.Units += t.Units
		r.Revenue = r.Revenue.Add(t.Revenue)
	}

	out := make([]core.ItemRank, len(ranks))
	for i, r := range ranks {
		out[i] = *r
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Build selects the topN items by units across all months and lays out their
// per-month units and the per-month revenue they produced. topN <= 0 keeps
// every item. Months covers every month present in totals, even those in
// which no top item sold.
func Build(totals []core.ItemMonthTotal, topN int) core.Report {
	ranks := RankItems(totals)
	if topN > 0 && len(ranks) > topN {
		ranks = ranks[:topN]
	}

	months := distinctMonths(totals)
	monthIndex := make(map[core.Month]int, len(months))
	for i, m := range months {
		monthIndex[m] = i
	}

	rep := core.Report{
		Months:   months,
		TopItems: ranks,
		Units:    make(map[string][]int64, len(ranks)),
		Revenue:  make([]core.Money, len(months)),
	}
	for _, r := range ranks {
		rep.Units[r.Name] = make([]int64, len(months))
	}

	for _, t := range totals {
		units, ok := rep.Units[t.Item]
		if !ok {
			continue
		}
		i := monthIndex[t.Month]
		units[i] += t.Units
		rep.Revenue[i] = rep.Revenue[i].Add(t.Revenue)
		rep.TotalUnits += t.Units
		rep.TotalRevenue = rep.TotalRevenue.Add(t.Revenue)
	}

	return rep
}

func distinctMonths(totals []core.ItemMonthTotal) []core.Month {
	seen := make(map[core.Month]struct{})
	var months []core.Month
	for _, t := range totals {
		if _, ok := seen[t.Month]; ok {
			continue
		}
		seen[t.Month] = struct{}{}
		months = append(months, t.Month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
