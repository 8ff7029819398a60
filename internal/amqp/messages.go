package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// IngestRequestMessage asks a worker to load a JSON file and regenerate the report.
// Empty InputFile and absent TopN fall back to the worker's configuration;
// an explicit TopN of 0 asks for every item.
type IngestRequestMessage struct {
	RunID     string    `json:"run_id"`
	InputFile string    `json:"input_file,omitempty"`
	TopN      *int      `json:"top_n,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewIngestRequestMessage creates a request with a fresh run id
func NewIngestRequestMessage(inputFile string, topN int) *IngestRequestMessage {
	return &IngestRequestMessage{
		RunID:     uuid.NewString(),
		InputFile: inputFile,
		TopN:      &topN,
		Timestamp: time.Now(),
	}
}

func (m *IngestRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IngestRequestMessageFromJSON decodes and validates a request body.
func IngestRequestMessageFromJSON(data []byte) (*IngestRequestMessage, error) {
	var msg IngestRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TopN != nil && *msg.TopN < 0 {
		return nil, errors.New("top_n must be non-negative")
	}
	if msg.RunID == "" {
		msg.RunID = uuid.NewString()
	}
	return &msg, nil
}

// ReportReadyMessage announces freshly written charts.
type ReportReadyMessage struct {
	RunID        string    `json:"run_id"`
	Months       []string  `json:"months"`
	TopItems     []string  `json:"top_items"`
	TotalUnits   int64     `json:"total_units"`
	TotalRevenue string    `json:"total_revenue"`
	UnitsChart   string    `json:"units_chart"`
	RevenueChart string    `json:"revenue_chart"`
	SheetRange   string    `json:"sheet_range,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (m *ReportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportReadyMessageFromJSON(data []byte) (*ReportReadyMessage, error) {
	var msg ReportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
