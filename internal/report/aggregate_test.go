package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesreport/internal/core"
)

var (
	jan = core.NewMonth(2023, 1)
	feb = core.NewMonth(2023, 2)
	mar = core.NewMonth(2023, 3)
)

func record(item string, m core.Month, units, cents int64) core.SaleRecord {
	return core.SaleRecord{Item: item, CustomerID: "c", Month: m, Units: units, TotalPrice: core.Money{Cents: cents}}
}

func sampleRecords() []core.SaleRecord {
	return []core.SaleRecord{
		record("Beans", feb, 5, 5000),
		record("Beans", jan, 3, 3000),
		record("Mug", jan, 4, 4000),
		record("Beans", jan, 2, 2000),
		record("Frother", jan, 1, 4550),
		record("Mug", mar, 6, 6000),
		record("Filters", feb, 6, 1794),
		record("Frother", mar, 2, 9100),
	}
}

func TestSummarize(t *testing.T) {
	totals := Summarize(sampleRecords())

	want := []core.ItemMonthTotal{
		{Item: "Beans", Month: jan, Units: 5, Revenue: core.Money{Cents: 5000}},
		{Item: "Frother", Month: jan, Units: 1, Revenue: core.Money{Cents: 4550}},
		{Item: "Mug", Month: jan, Units: 4, Revenue: core.Money{Cents: 4000}},
		{Item: "Beans", Month: feb, Units: 5, Revenue: core.Money{Cents: 5000}},
		{Item: "Filters", Month: feb, Units: 6, Revenue: core.Money{Cents: 1794}},
		{Item: "Frother", Month: mar, Units: 2, Revenue: core.Money{Cents: 9100}},
		{Item: "Mug", Month: mar, Units: 6, Revenue: core.Money{Cents: 6000}},
	}
	assert.Equal(t, want, totals)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

func TestRankItems(t *testing.T) {
	ranks := RankItems(Summarize(sampleRecords()))

	require.Len(t, ranks, 4)
	assert.Equal(t, core.ItemRank{Name: "Beans", Units: 10, Revenue: core.Money{Cents: 10000}}, ranks[0])
	assert.Equal(t, core.ItemRank{Name: "Mug", Units: 10, Revenue: core.Money{Cents: 10000}}, ranks[1])
	assert.Equal(t, "Filters", ranks[2].Name)
	assert.Equal(t, "Frother", ranks[3].Name)
}

func TestBuildTopItems(t *testing.T) {
	rep := Build(Summarize(sampleRecords()), 2)

	assert.Equal(t, []core.Month{jan, feb, mar}, rep.Months)
	require.Len(t, rep.TopItems, 2)
	assert.Equal(t, "Beans", rep.TopItems[0].Name)
	assert.Equal(t, "Mug", rep.TopItems[1].Name)

	assert.Equal(t, []int64{5, 5, 0}, rep.Units["Beans"])
	assert.Equal(t, []int64{4, 0, 6}, rep.Units["Mug"])
	assert.NotContains(t, rep.Units, "Filters")

	// Revenue counts only the top items
	assert.Equal(t, []core.Money{{Cents: 9000}, {Cents: 5000}, {Cents: 6000}}, rep.Revenue)
	assert.Equal(t, int64(20), rep.TotalUnits)
	assert.Equal(t, core.Money{Cents: 20000}, rep.TotalRevenue)
	assert.Equal(t, []string{"2023-01", "2023-02", "2023-03"}, rep.MonthLabels())
	assert.False(t, rep.Empty())
}

func TestBuildAllItems(t *testing.T) {
	rep := Build(Summarize(sampleRecords()), 0)

	assert.Len(t, rep.TopItems, 4)
	assert.Equal(t, []core.Money{{Cents: 13550}, {Cents: 6794}, {Cents: 15100}}, rep.Revenue)
	assert.Equal(t, int64(29), rep.TotalUnits)
}

func TestBuildTopNLargerThanItems(t *testing.T) {
	rep := Build(Summarize(sampleRecords()), 50)
	assert.Len(t, rep.TopItems, 4)
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(nil, 5)
	assert.True(t, rep.Empty())
	assert.Empty(t, rep.Months)
	assert.Empty(t, rep.Revenue)
}

func TestBuildUndatedMonthsSortFirst(t *testing.T) {
	undated := core.Month{Month: 6}
	rep := Build(Summarize([]core.SaleRecord{
		record("Beans", jan, 1, 100),
		record("Beans", undated, 1, 100),
	}), 1)

	assert.Equal(t, []string{"Jun", "2023-01"}, rep.MonthLabels())
}
