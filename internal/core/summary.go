package core

// ItemMonthTotal is the units and revenue of one item in one month.
type ItemMonthTotal struct {
	Item    string
	Month   Month
	Units   int64
	Revenue Money
}

// ItemRank is an item with its units summed over every month.
type ItemRank struct {
	Name    string
	Units   int64
	Revenue Money
}

// Report is the aggregated view behind both charts. Units and Revenue are
// aligned with Months.
type Report struct {
	Months       []Month
	TopItems     []ItemRank
	Units        map[string][]int64
	Revenue      []Money
	TotalUnits   int64
	TotalRevenue Money
}

// Empty reports whether there is nothing to plot.
func (r Report) Empty() bool {
	return len(r.Months) == 0 || len(r.TopItems) == 0
}

// MonthLabels returns the chart labels for Months.
func (r Report) MonthLabels() []string {
	labels := make([]string, len(r.Months))
	for i, m := range r.Months {
		labels[i] = m.Label()
	}
	return labels
}
