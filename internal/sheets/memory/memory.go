package memory

import (
	"context"
	"fmt"
	"sync"

	"salesreport/internal/core"
	ports "salesreport/internal/sheets"
)

// Exporter keeps exported reports in memory.
type Exporter struct {
	mu      sync.Mutex
	reports []core.Report
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportReport stores the report and returns a synthetic reference.
func (e *Exporter) ExportReport(_ context.Context, rep core.Report) (string, error) {
	if rep.Empty() {
		return "", fmt.Errorf("export report: no data")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports = append(e.reports, rep)
	return fmt.Sprintf("mem:%d", len(e.reports)), nil
}

// Reports returns every report exported so far.
func (e *Exporter) Reports() []core.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Report(nil), e.reports...)
}
