package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through the call chain.
const (
	// FieldRequestID is the inbound HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSubmissionID identifies one analyze attempt
	FieldSubmissionID = "submission_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldImageName is the display name of the selected file
	FieldImageName = "image_name"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
