package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldPath        = "path"
	FieldBackend     = "backend"
	FieldRecords     = "records"
	FieldSkipped     = "skipped"
	FieldItems       = "items"
	FieldItem        = "item"
	FieldMonth       = "month"
	FieldMonths      = "months"
	FieldUnits       = "units"
	FieldRevenue     = "revenue"
	FieldTopN        = "top_n"
	FieldChart       = "chart"
	FieldFormat      = "format"
	FieldRunID       = "run_id"
	FieldSpreadsheet = "spreadsheet_id"
	FieldRequestID   = "request_id"
	FieldAddr        = "addr"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentIngest  = "ingest"
	ComponentStorage = "storage"
	ComponentReport  = "report"
	ComponentChart   = "chart"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentHTTP    = "http"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpReset     = "reset"
	OpSave      = "save"
	OpReload    = "reload"
	OpAggregate = "aggregate"
	OpRender    = "render"
	OpExport    = "export"
	OpNotify    = "notify"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDuration adds the elapsed milliseconds
func (f LogFields) WithDuration(ms int64) LogFields {
	f[FieldDuration] = ms
	return f
}

// WithItemMonth adds per item and month aggregate fields
func (f LogFields) WithItemMonth(item, month string, units int64, revenue string) LogFields {
	f[FieldItem] = item
	f[FieldMonth] = month
	f[FieldUnits] = units
	f[FieldRevenue] = revenue
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
