package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"salesreport/internal/amqp"
	"salesreport/internal/ingest"
	"salesreport/internal/report"
	"salesreport/internal/services"
)

type fakeRunner struct {
	reqs []services.RunRequest
	err  error
}

func (f *fakeRunner) Run(_ context.Context, req services.RunRequest) (services.GenerateResult, error) {
	f.reqs = append(f.reqs, req)
	return services.GenerateResult{RunID: req.RunID}, f.err
}

func intPtr(n int) *int { return &n }

func TestHandleIngestRequest(t *testing.T) {
	tests := []struct {
		name      string
		msg       *amqp.IngestRequestMessage
		wantInput string
		wantTopN  int
	}{
		{
			name:      "defaults",
			msg:       &amqp.IngestRequestMessage{RunID: "r1"},
			wantInput: "sample.json",
			wantTopN:  5,
		},
		{
			name:      "overrides",
			msg:       &amqp.IngestRequestMessage{RunID: "r2", InputFile: "/data/q1.json", TopN: intPtr(3)},
			wantInput: "/data/q1.json",
			wantTopN:  3,
		},
		{
			name:      "explicit zero keeps every item",
			msg:       &amqp.IngestRequestMessage{RunID: "r3", TopN: intPtr(0)},
			wantInput: "sample.json",
			wantTopN:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			w := NewIngestWorker(runner, "sample.json", 5)

			if err := w.HandleIngestRequest(context.Background(), tt.msg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(runner.reqs) != 1 {
				t.Fatalf("expected one run, got %d", len(runner.reqs))
			}
			req := runner.reqs[0]
			if req.RunID != tt.msg.RunID || req.InputFile != tt.wantInput || req.TopN != tt.wantTopN {
				t.Errorf("unexpected request: %+v", req)
			}
		})
	}
}

func TestHandleIngestRequestError(t *testing.T) {
	boom := errors.New("boom")
	w := NewIngestWorker(&fakeRunner{err: boom}, "sample.json", 5)

	err := w.HandleIngestRequest(context.Background(), &amqp.IngestRequestMessage{RunID: "r1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if errors.Is(err, amqp.ErrPermanent) {
		t.Error("transient failure must not be marked permanent")
	}
}

func TestHandleIngestRequestPermanentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing file", fmt.Errorf("load: %w", ingest.ErrFileNotFound)},
		{"invalid record", fmt.Errorf("record 3: %w: bad month", ingest.ErrInvalidRecord)},
		{"malformed data", fmt.Errorf("%w: empty input", ingest.ErrMalformedData)},
		{"empty report", report.ErrEmptyReport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewIngestWorker(&fakeRunner{err: tt.err}, "sample.json", 5)

			err := w.HandleIngestRequest(context.Background(), &amqp.IngestRequestMessage{RunID: "r1"})
			if !errors.Is(err, amqp.ErrPermanent) {
				t.Fatalf("expected permanent error, got %v", err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("cause lost: %v", err)
			}
		})
	}
}
