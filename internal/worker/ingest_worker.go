package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"salesreport/internal/amqp"
	"salesreport/internal/ingest"
	"salesreport/internal/report"
	"salesreport/internal/services"
)

// Runner runs the load-and-generate pipeline.
type Runner interface {
	Run(ctx context.Context, req services.RunRequest) (services.GenerateResult, error)
}

// IngestWorker handles ingest requests received over AMQP.
type IngestWorker struct {
	runner       Runner
	defaultInput string
	defaultTopN  int
}

func NewIngestWorker(runner Runner, defaultInput string, defaultTopN int) *IngestWorker {
	return &IngestWorker{
		runner:       runner,
		defaultInput: defaultInput,
		defaultTopN:  defaultTopN,
	}
}

// HandleIngestRequest runs the pipeline for the requested file, falling back to
// the configured input file and top-N when the message leaves them empty.
// Failures that a retry cannot fix are marked with amqp.ErrPermanent.
func (w *IngestWorker) HandleIngestRequest(ctx context.Context, msg *amqp.IngestRequestMessage) error {
	req := w.request(msg)
	start := time.Now()

	slog.InfoContext(ctx, "Processing ingest request",
		"run_id", req.RunID,
		"input_file", req.InputFile,
		"top_n", req.TopN)

	res, err := w.runner.Run(ctx, req)
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("run %s: %w: %w", req.RunID, amqp.ErrPermanent, err)
		}
		return fmt.Errorf("run %s: %w", req.RunID, err)
	}

	slog.InfoContext(ctx, "Ingest request completed",
		"run_id", req.RunID,
		"months", len(res.Report.Months),
		"top_items", len(res.Report.TopItems),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, ingest.ErrFileNotFound) ||
		errors.Is(err, ingest.ErrInvalidRecord) ||
		errors.Is(err, ingest.ErrMalformedData) ||
		errors.Is(err, report.ErrEmptyReport)
}

func (w *IngestWorker) request(msg *amqp.IngestRequestMessage) services.RunRequest {
	req := services.RunRequest{
		RunID:     msg.RunID,
		InputFile: msg.InputFile,
		TopN:      w.defaultTopN,
	}
	if req.InputFile == "" {
		req.InputFile = w.defaultInput
	}
	if msg.TopN != nil {
		req.TopN = *msg.TopN
	}
	return req
}
