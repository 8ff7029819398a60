package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"salesreport/internal/amqp"
	"salesreport/internal/backend"
	"salesreport/internal/cli"
	"salesreport/internal/config"
	apphttp "salesreport/internal/http"
	applog "salesreport/internal/log"
	"salesreport/internal/services"
)

// flags overriding the environment configuration
type flags struct {
	input   string
	topN    int
	output  string
	format  string
	backend string
	port    string
	reload  bool
}

// app holds what every subcommand needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	svc     *services.ReportService
	backend *backend.BackendResult
}

func newRootCmd() (*cobra.Command, *app) {
	var f flags
	a := &app{}

	root := &cobra.Command{
		Use:           "salesreport",
		Short:         "Load sales transactions, aggregate them per item and month, and chart the top sellers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, f)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.input, "input", "i", "", "JSON sales file (overrides INPUT_FILE)")
	pf.IntVarP(&f.topN, "top-n", "n", 0, "number of top items to chart, 0 for all (overrides TOP_N)")
	pf.StringVarP(&f.output, "output", "o", "", "chart output directory (overrides OUTPUT_DIR)")
	pf.StringVarP(&f.format, "format", "f", "", "chart format: png or svg (overrides CHART_FORMAT)")
	pf.StringVar(&f.backend, "backend", "", "data backend: sqlite, postgres or memory (overrides DATA_BACKEND)")

	root.AddCommand(
		&cobra.Command{
			Use:   "load",
			Short: "Replace the stored sales with the JSON sales file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.load(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop and recreate the sales tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.reset(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "report",
			Short: "Aggregate the stored sales and write the charts",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.report(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Load the sales file and write the charts (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "enqueue",
			Short: "Ask running workers to load the sales file and regenerate the charts",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.enqueue(cmd.Context(), cmd.OutOrStdout())
			},
		},
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report page, its JSON API and the charts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd.OutOrStdout(), f.reload)
		},
	}
	serve.Flags().StringVarP(&f.port, "port", "p", "", "listen port (overrides PORT)")
	serve.Flags().BoolVar(&f.reload, "load", false, "load the sales file before serving")
	root.AddCommand(serve)

	return root, a
}

func (a *app) init(cmd *cobra.Command, f flags) error {
	cfg := config.Load()
	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.InputFile = f.input
	}
	if fs.Changed("top-n") {
		cfg.TopN = f.topN
	}
	if fs.Changed("output") {
		cfg.OutputDir = f.output
	}
	if fs.Changed("format") {
		cfg.ChartFormat = f.format
	}
	if fs.Changed("backend") {
		cfg.DataBackend = f.backend
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}

	a.logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)
	if err := cfg.Validate(); err != nil {
		a.logger.Error("Configuration validation failed", applog.FieldError, err)
		return err
	}
	a.cfg = cfg

	svc, result, err := cli.BuildReportService(cmd.Context(), cfg, a.logger)
	if err != nil {
		a.logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		return err
	}
	a.svc = svc
	a.backend = result
	return nil
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	return a.backend.Cleanup()
}

func (a *app) load(ctx context.Context, out io.Writer) error {
	start := time.Now()
	res, err := a.svc.Load(ctx, a.cfg.InputFile)
	if err != nil {
		a.fail(applog.OpLoad, start, err)
		return err
	}

	fmt.Fprintf(out, "Loaded %d sales from %s (%d skipped)\n", res.Saved, a.cfg.InputFile, res.Stats.Skipped)
	return nil
}

func (a *app) reset(ctx context.Context, out io.Writer) error {
	start := time.Now()
	if err := a.svc.Reset(ctx); err != nil {
		a.fail(applog.OpReset, start, err)
		return err
	}

	fmt.Fprintln(out, "Sales tables reset")
	return nil
}

func (a *app) report(ctx context.Context, out io.Writer) error {
	start := time.Now()
	res, err := a.svc.Generate(ctx, "", a.cfg.TopN)
	if err != nil {
		a.fail(applog.OpRender, start, err)
		return err
	}

	printResult(out, res)
	return nil
}

func (a *app) run(ctx context.Context, out io.Writer) error {
	start := time.Now()
	res, err := a.svc.Run(ctx, services.RunRequest{
		InputFile: a.cfg.InputFile,
		TopN:      a.cfg.TopN,
	})
	if err != nil {
		a.fail(applog.OpLoad, start, err)
		return err
	}

	printResult(out, res)
	return nil
}

func (a *app) enqueue(ctx context.Context, out io.Writer) error {
	if a.backend.AMQP == nil {
		err := errors.New("AMQP is not available: set AMQP_URL to a reachable broker")
		a.logger.Error("Cannot enqueue ingest request", applog.FieldError, err)
		return err
	}

	msg := amqp.NewIngestRequestMessage(a.cfg.InputFile, a.cfg.TopN)
	if err := a.backend.AMQP.PublishIngestRequest(ctx, msg); err != nil {
		a.logger.Error("Failed to publish ingest request", applog.FieldError, err)
		return err
	}

	fmt.Fprintf(out, "Queued run %s for %s\n", msg.RunID, a.cfg.InputFile)
	return nil
}

func (a *app) serve(ctx context.Context, out io.Writer, reload bool) error {
	if reload {
		if err := a.load(ctx, out); err != nil {
			return err
		}
	}

	srv, err := apphttp.NewServer(a.backend.Store, apphttp.Options{
		Addr:   ":" + a.cfg.Port,
		TopN:   a.cfg.TopN,
		Chart:  cli.ChartOptions(a.cfg),
		Logger: a.logger.Logger,
	})
	if err != nil {
		a.logger.Error("Failed to create HTTP server", applog.FieldError, err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("HTTP server listening", applog.FieldAddr, srv.Addr)
	fmt.Fprintf(out, "Serving report on http://localhost:%s/\n", a.cfg.Port)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.logger.Error("HTTP server failed", applog.FieldError, err)
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) fail(op string, start time.Time, err error) {
	fields := applog.NewFields().
		WithOperation(op).
		WithDuration(time.Since(start).Milliseconds()).
		WithError(err)
	a.logger.Error("Command failed", fields.ToSlice()...)
}

func printResult(out io.Writer, res services.GenerateResult) {
	rep := res.Report
	fmt.Fprintf(out, "Top %d items over %d months (%s to %s)\n",
		len(rep.TopItems), len(rep.Months),
		rep.Months[0].Label(), rep.Months[len(rep.Months)-1].Label())
	for i, item := range rep.TopItems {
		fmt.Fprintf(out, "%3d. %-30s %8d units %12s\n", i+1, item.Name, item.Units, item.Revenue.String())
	}
	fmt.Fprintf(out, "Units chart:   %s\n", res.Files.Units)
	fmt.Fprintf(out, "Revenue chart: %s\n", res.Files.Revenue)
	if res.SheetRange != "" {
		fmt.Fprintf(out, "Exported to:   %s\n", res.SheetRange)
	}
}
