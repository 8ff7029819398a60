package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"salesreport/internal/core"
	ports "salesreport/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Sales Report"

// Cells are stored as sent: an item named "=SUM(A1)" stays text and a
// "2023-01" month label is not turned into a date.
const valueInputOption = "RAW"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.ReportExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Sales Report")
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return NewClient(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
}

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportReport replaces the sheet contents with the month x item units matrix,
// a revenue column and a totals row.
func (c *Client) ExportReport(ctx context.Context, rep core.Report) (string, error) {
	if rep.Empty() {
		return "", errors.New("export report: no data")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := quoteSheetName(c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	values := buildReportValues(rep)
	rng := reportRange(c.sheetName, len(values), len(values[0]))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Report exported to Google Sheets",
		"spreadsheet", c.spreadsheetID,
		"range", rng,
		"months", len(rep.Months),
		"items", len(rep.TopItems))
	return rng, nil
}

// buildReportValues lays out one header row, one row per month and a totals row.
// Units and revenue are sent as numbers so they stay numeric without parsing.
func buildReportValues(rep core.Report) [][]any {
	header := make([]any, 0, len(rep.TopItems)+2)
	header = append(header, "Month")
	for _, item := range rep.TopItems {
		header = append(header, item.Name)
	}
	header = append(header, "Revenue")

	values := make([][]any, 0, len(rep.Months)+2)
	values = append(values, header)
	for i, m := range rep.Months {
		row := make([]any, 0, len(header))
		row = append(row, m.Label())
		for _, item := range rep.TopItems {
			row = append(row, rep.Units[item.Name][i])
		}
		row = append(row, rep.Revenue[i].Float())
		values = append(values, row)
	}

	total := make([]any, 0, len(header))
	total = append(total, "Total")
	for _, item := range rep.TopItems {
		total = append(total, item.Units)
	}
	total = append(total, rep.TotalRevenue.Float())
	return append(values, total)
}

func reportRange(sheetName string, rows, cols int) string {
	return fmt.Sprintf("%s!A1:%s%d", quoteSheetName(sheetName), columnName(cols), rows)
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
