package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salesreport/internal/amqp"
	"salesreport/internal/core"
	"salesreport/internal/ingest"
	applog "salesreport/internal/log"
	"salesreport/internal/report"
	"salesreport/internal/sheets"
	"salesreport/internal/storage"
)

// Notifier announces a generated report.
type Notifier interface {
	PublishReportReady(ctx context.Context, msg *amqp.ReportReadyMessage) error
}

// ReportOptions are the defaults used by Generate and Run.
type ReportOptions struct {
	TopN      int
	OutputDir string
	Chart     report.ChartOptions
}

// ReportService orchestrates ingestion, persistence, aggregation and charting.
// Export and notification are optional and best effort.
type ReportService struct {
	store    storage.Store
	exporter sheets.ReportExporter
	notifier Notifier
	ingest   ingest.Options
	opts     ReportOptions
}

func NewReportService(store storage.Store, opts ReportOptions, ingestOpts ingest.Options) *ReportService {
	return &ReportService{
		store:  store,
		ingest: ingestOpts,
		opts:   opts,
	}
}

// WithExporter sets the exporter used after charts are written.
func (s *ReportService) WithExporter(e sheets.ReportExporter) *ReportService {
	s.exporter = e
	return s
}

// WithNotifier sets the notifier used after charts are written.
func (s *ReportService) WithNotifier(n Notifier) *ReportService {
	s.notifier = n
	return s
}

type LoadResult struct {
	Stats ingest.Stats
	Saved int
}

// Load reads the JSON file and replaces the stored sales with every accepted
// sale. The store is left untouched when the file cannot be read or the
// replace fails.
func (s *ReportService) Load(ctx context.Context, path string) (LoadResult, error) {
	start := time.Now()

	sales, stats, err := ingest.LoadFile(ctx, path, s.ingest)
	if err != nil {
		return LoadResult{}, fmt.Errorf("ingest sales: %w", err)
	}

	saved, err := s.store.ReplaceSales(ctx, sales)
	if err != nil {
		return LoadResult{}, fmt.Errorf("replace sales: %w", err)
	}

	slog.InfoContext(ctx, "Sales loaded",
		"path", path,
		"records", stats.Read,
		"saved", saved,
		"skipped", stats.Skipped,
		"duration_ms", time.Since(start).Milliseconds())

	return LoadResult{Stats: stats, Saved: saved}, nil
}

type GenerateResult struct {
	RunID      string
	Report     core.Report
	Files      report.ChartFiles
	SheetRange string
}

// Generate aggregates the stored sales, keeps the topN items and writes both
// charts. topN <= 0 keeps every item.
func (s *ReportService) Generate(ctx context.Context, runID string, topN int) (GenerateResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()

	totals, err := s.store.MonthlyItemTotals(ctx)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("reload totals: %w", err)
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		for _, t := range totals {
			slog.DebugContext(ctx, "Monthly item total",
				applog.NewFields().WithItemMonth(t.Item, t.Month.Label(), t.Units, t.Revenue.String()).ToSlice()...)
		}
	}

	rep := report.Build(totals, topN)
	if rep.Empty() {
		return GenerateResult{}, fmt.Errorf("generate report: %w", report.ErrEmptyReport)
	}

	files, err := report.WriteCharts(ctx, s.opts.OutputDir, rep, s.opts.Chart)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("write charts: %w", err)
	}

	res := GenerateResult{RunID: runID, Report: rep, Files: files}
	res.SheetRange = s.export(ctx, rep)
	s.notify(ctx, res)

	slog.InfoContext(ctx, "Report generated",
		"run_id", runID,
		"months", len(rep.Months),
		"top_items", len(rep.TopItems),
		"total_units", rep.TotalUnits,
		"total_revenue", rep.TotalRevenue.String(),
		"units_chart", files.Units,
		"revenue_chart", files.Revenue,
		"duration_ms", time.Since(start).Milliseconds())

	return res, nil
}

// RunRequest describes one full pipeline run.
type RunRequest struct {
	RunID     string
	InputFile string
	TopN      int
}

// Run loads the input file and generates the report from the reloaded data.
func (s *ReportService) Run(ctx context.Context, req RunRequest) (GenerateResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	if _, err := s.Load(ctx, req.InputFile); err != nil {
		return GenerateResult{}, err
	}
	return s.Generate(ctx, req.RunID, req.TopN)
}

// Reset drops and recreates the store's schema, discarding every sale.
func (s *ReportService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

// Defaults returns the options the service was built with.
func (s *ReportService) Defaults() ReportOptions {
	return s.opts
}

func (s *ReportService) export(ctx context.Context, rep core.Report) string {
	if s.exporter == nil {
		return ""
	}
	ref, err := s.exporter.ExportReport(ctx, rep)
	if err != nil {
		// Don't fail the run - charts are already on disk
		slog.ErrorContext(ctx, "Failed to export report", "error", err)
		return ""
	}
	return ref
}

func (s *ReportService) notify(ctx context.Context, res GenerateResult) {
	if s.notifier == nil {
		slog.DebugContext(ctx, "No notifier configured, skipping report ready message")
		return
	}

	msg := &amqp.ReportReadyMessage{
		RunID:        res.RunID,
		Months:       res.Report.MonthLabels(),
		TotalUnits:   res.Report.TotalUnits,
		TotalRevenue: res.Report.TotalRevenue.String(),
		UnitsChart:   res.Files.Units,
		RevenueChart: res.Files.Revenue,
		SheetRange:   res.SheetRange,
		Timestamp:    time.Now(),
	}
	for _, item := range res.Report.TopItems {
		msg.TopItems = append(msg.TopItems, item.Name)
	}

	if err := s.notifier.PublishReportReady(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report ready message",
			"run_id", res.RunID, "error", err)
	}
}

// Close closes the store.
func (s *ReportService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close report service: %w", err)
	}
	return nil
}
