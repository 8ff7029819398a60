package cli

import (
	"context"
	"fmt"

	"salesreport/internal/backend"
	"salesreport/internal/config"
	"salesreport/internal/ingest"
	applog "salesreport/internal/log"
	"salesreport/internal/report"
	"salesreport/internal/services"
)

// ChartOptions maps the CHART_* settings to renderer options.
func ChartOptions(cfg *config.Config) report.ChartOptions {
	return report.ChartOptions{
		Width:  cfg.ChartWidth,
		Height: cfg.ChartHeight,
		Format: report.Format(cfg.ChartFormat),
	}
}

// BuildReportService creates the configured backend and wires a ReportService
// on top of it. The returned backend owns every connection; call its Cleanup
// when done.
func BuildReportService(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*services.ReportService, *backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	result, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}

	svc := services.NewReportService(result.Store, services.ReportOptions{
		TopN:      cfg.TopN,
		OutputDir: cfg.OutputDir,
		Chart:     ChartOptions(cfg),
	}, ingest.Options{
		SkipInvalid: cfg.IngestSkipInvalid,
		Logger:      logger.WithComponent(applog.ComponentIngest),
	})
	if result.Exporter != nil {
		svc.WithExporter(result.Exporter)
	}
	if result.AMQP != nil {
		svc.WithNotifier(result.AMQP)
	}

	return svc, result, nil
}
