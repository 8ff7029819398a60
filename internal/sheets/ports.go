package sheets

import (
	"context"

	"salesreport/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a built report somewhere outside the database.
	ReportExporter interface {
		// ExportReport writes the report and returns a reference to where it landed.
		ExportReport(ctx context.Context, rep core.Report) (ref string, err error)
	}
)
