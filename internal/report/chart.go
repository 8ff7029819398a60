package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"

	"salesreport/internal/core"
)

// ErrEmptyReport is returned when there is no month or item to plot.
var ErrEmptyReport = errors.New("report has no data to plot")

type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f.orDefault())
}

func (f Format) orDefault() Format {
	if f == FormatSVG {
		return FormatSVG
	}
	return FormatPNG
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// ChartOptions controls chart size and encoding.
type ChartOptions struct {
	Width  int
	Height int
	Format Format
}

// DefaultChartOptions returns a 1024x600 PNG.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1024, Height: 600, Format: FormatPNG}
}

func (o ChartOptions) withDefaults() ChartOptions {
	d := DefaultChartOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	o.Format = o.Format.orDefault()
	return o
}

// Base names of the generated chart files.
const (
	UnitsChartName   = "units_per_month"
	RevenueChartName = "revenue_per_month"
)

// ChartFiles holds the paths written by WriteCharts.
type ChartFiles struct {
	Units   string
	Revenue string
}

// RenderUnitsChart draws one line per top item with its units sold in each month.
func RenderUnitsChart(w io.Writer, rep core.Report, opts ChartOptions) error {
	if rep.Empty() {
		return ErrEmptyReport
	}
	opts = opts.withDefaults()

	xs := make([]float64, len(rep.Months))
	for i := range xs {
		xs[i] = float64(i)
	}

	var maxUnits int64
	series := make([]chart.Series, 0, len(rep.TopItems))
	for i, item := range rep.TopItems {
		units := rep.Units[item.Name]
		ys := make([]float64, len(units))
		for j, u := range units {
			ys[j] = float64(u)
			if u > maxUnits {
				maxUnits = u
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    item.Name,
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(chart.GetDefaultColor(i)),
		})
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Top %d items: units sold per month", len(rep.TopItems)),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      monthAxis(rep.MonthLabels()),
		YAxis: chart.YAxis{
			Name:           "Units",
			Range:          &chart.ContinuousRange{Min: 0, Max: axisMax(float64(maxUnits))},
			ValueFormatter: integerFormatter,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(opts.Format.provider(), w); err != nil {
		return fmt.Errorf("render units chart: %w", err)
	}
	return nil
}

// RenderRevenueChart draws one bar per month with the revenue of the top items.
func RenderRevenueChart(w io.Writer, rep core.Report, opts ChartOptions) error {
	if rep.Empty() {
		return ErrEmptyReport
	}
	opts = opts.withDefaults()

	var maxRevenue float64
	bars := make([]chart.Value, len(rep.Months))
	for i, m := range rep.Months {
		v := rep.Revenue[i].Float()
		maxRevenue = math.Max(maxRevenue, v)
		bars[i] = chart.Value{
			Label: m.Label(),
			Value: v,
			Style: chart.Style{
				FillColor:   chart.ColorBlue,
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 1,
			},
		}
	}

	barWidth, barSpacing := barLayout(opts.Width, len(bars))
	bc := chart.BarChart{
		Title:      fmt.Sprintf("Revenue per month (top %d items)", len(rep.TopItems)),
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:           "Revenue",
			Range:          &chart.ContinuousRange{Min: 0, Max: axisMax(maxRevenue)},
			ValueFormatter: moneyFormatter,
		},
		Bars: bars,
	}

	if err := bc.Render(opts.Format.provider(), w); err != nil {
		return fmt.Errorf("render revenue chart: %w", err)
	}
	return nil
}

// WriteCharts renders both charts concurrently into dir.
func WriteCharts(ctx context.Context, dir string, rep core.Report, opts ChartOptions) (ChartFiles, error) {
	if rep.Empty() {
		return ChartFiles{}, ErrEmptyReport
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return ChartFiles{}, fmt.Errorf("create output directory: %w", err)
	}

	files := ChartFiles{
		Units:   filepath.Join(dir, UnitsChartName+opts.Format.Extension()),
		Revenue: filepath.Join(dir, RevenueChartName+opts.Format.Extension()),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeChart(ctx, files.Units, func(w io.Writer) error {
			return RenderUnitsChart(w, rep, opts)
		})
	})
	g.Go(func() error {
		return writeChart(ctx, files.Revenue, func(w io.Writer) error {
			return RenderRevenueChart(w, rep, opts)
		})
	})
	if err := g.Wait(); err != nil {
		return ChartFiles{}, err
	}

	return files, nil
}

// writeChart renders into memory first so a failed render leaves no partial file.
func writeChart(ctx context.Context, path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    4,
	}
}

// monthAxis places one labelled tick per month at x = 0..n-1, with unlabelled
// ticks half a step outside so a single month still has a non-zero range.
func monthAxis(labels []string) chart.XAxis {
	n := len(labels)
	ticks := make([]chart.Tick, 0, n+2)
	ticks = append(ticks, chart.Tick{Value: -0.5})
	for i, l := range labels {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: l})
	}
	ticks = append(ticks, chart.Tick{Value: float64(n) - 0.5})

	axis := chart.XAxis{
		Name:  "Month",
		Range: &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
		Ticks: ticks,
	}
	if n > 12 {
		axis.TickStyle = chart.Style{TextRotationDegrees: 45}
	}
	return axis
}

// axisMax leaves 10% headroom above v and never returns zero.
func axisMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return math.Ceil(v * 1.1)
}

func barLayout(width, bars int) (barWidth, spacing int) {
	if bars < 1 {
		bars = 1
	}
	slot := (width - 160) / bars
	barWidth = slot * 2 / 3
	barWidth = max(4, min(barWidth, 80))
	spacing = max(2, min(slot-barWidth, 40))
	return barWidth, spacing
}

func integerFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%v", v)
}

func moneyFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%v", v)
}
