package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"salesreport/internal/core"
	applog "salesreport/internal/log"
	"salesreport/internal/report"
)

const (
	maxTopN        = 1000
	minChartWidth  = 200
	minChartHeight = 150
	maxChartSide   = 4096
)

var errBadParam = errors.New("bad parameter")

type (
	itemResponse struct {
		Name    string `json:"name"`
		Units   int64  `json:"units"`
		Revenue string `json:"revenue"`
	}

	reportResponse struct {
		Months       []string           `json:"months"`
		TopItems     []itemResponse     `json:"top_items"`
		Units        map[string][]int64 `json:"units"`
		Revenue      []string           `json:"revenue"`
		TotalUnits   int64              `json:"total_units"`
		TotalRevenue string             `json:"total_revenue"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}

	monthRow struct {
		Label   string
		Units   []int64
		Revenue core.Money
	}

	indexData struct {
		TopN   int
		Format report.Format
		Report core.Report
		Rows   []monthRow
	}
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the store answers a totals query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	if _, err := s.totals.MonthlyItemTotals(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) loadReport(ctx context.Context, topN int) (core.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	totals, err := s.totals.MonthlyItemTotals(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("read monthly totals: %w", err)
	}
	return report.Build(totals, topN), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	topN, err := intParam(r, "top", s.opts.TopN, 0, maxTopN)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := s.loadReport(r.Context(), topN)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Index report failed", applog.FieldError, err)
		http.Error(w, "failed to load report", http.StatusInternalServerError)
		return
	}

	data := indexData{
		TopN:   topN,
		Format: s.opts.Chart.Format,
		Report: rep,
		Rows:   monthRows(rep),
	}
	if data.Format == "" {
		data.Format = report.FormatPNG
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func monthRows(rep core.Report) []monthRow {
	rows := make([]monthRow, len(rep.Months))
	for i, m := range rep.Months {
		units := make([]int64, len(rep.TopItems))
		for j, item := range rep.TopItems {
			units[j] = rep.Units[item.Name][i]
		}
		rows[i] = monthRow{Label: m.Label(), Units: units, Revenue: rep.Revenue[i]}
	}
	return rows
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	topN, err := intParam(r, "top", s.opts.TopN, 0, maxTopN)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rep, err := s.loadReport(r.Context(), topN)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Report query failed", applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load report"})
		return
	}
	if rep.Empty() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no sales loaded"})
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

func newReportResponse(rep core.Report) reportResponse {
	resp := reportResponse{
		Months:       rep.MonthLabels(),
		TopItems:     make([]itemResponse, len(rep.TopItems)),
		Units:        rep.Units,
		Revenue:      make([]string, len(rep.Revenue)),
		TotalUnits:   rep.TotalUnits,
		TotalRevenue: rep.TotalRevenue.String(),
	}
	for i, item := range rep.TopItems {
		resp.TopItems[i] = itemResponse{Name: item.Name, Units: item.Units, Revenue: item.Revenue.String()}
	}
	for i, m := range rep.Revenue {
		resp.Revenue[i] = m.String()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleChart renders /charts/{units|revenue}.{png|svg}.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, format, err := parseChartFile(r.PathValue("file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	topN, err := intParam(r, "top", s.opts.TopN, 0, maxTopN)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, err := intParam(r, "width", s.opts.Chart.Width, minChartWidth, maxChartSide)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := intParam(r, "height", s.opts.Chart.Height, minChartHeight, maxChartSide)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := report.ChartOptions{Width: width, Height: height, Format: format}
	key := fmt.Sprintf("%s|%s|%d|%d|%d", kind, format, topN, width, height)

	body, ok := s.chartCache.Get(key)
	if ok {
		s.logger.DebugContext(r.Context(), "Chart cache hit", applog.FieldChart, key)
	} else {
		body, err = s.renderChart(r.Context(), kind, topN, opts)
		if errors.Is(err, report.ErrEmptyReport) {
			http.Error(w, "no sales loaded", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Chart render failed",
				applog.FieldChart, kind,
				applog.FieldFormat, string(format),
				applog.FieldError, err)
			http.Error(w, "failed to render chart", http.StatusInternalServerError)
			return
		}
		s.chartCache.Set(key, body)
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

func (s *Server) renderChart(ctx context.Context, kind string, topN int, opts report.ChartOptions) ([]byte, error) {
	rep, err := s.loadReport(ctx, topN)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch kind {
	case "units":
		err = report.RenderUnitsChart(&buf, rep, opts)
	default:
		err = report.RenderRevenueChart(&buf, rep, opts)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseChartFile(file string) (kind string, format report.Format, err error) {
	kind, ext, ok := strings.Cut(file, ".")
	if !ok {
		return "", "", errBadParam
	}
	if kind != "units" && kind != "revenue" {
		return "", "", errBadParam
	}
	switch report.Format(strings.ToLower(ext)) {
	case report.FormatPNG:
		return kind, report.FormatPNG, nil
	case report.FormatSVG:
		return kind, report.FormatSVG, nil
	}
	return "", "", errBadParam
}

func contentType(f report.Format) string {
	if f == report.FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// intParam reads an integer query parameter, falling back to def when absent.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadParam, name)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", errBadParam, name, lo, hi)
	}
	return n, nil
}
