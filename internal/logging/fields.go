package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "file_converted").
	FieldEventType = "event_type"
	// FieldErrorHint is the operator-facing next step attached to warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID identifies one invocation of the pipeline.
	FieldRunID = "run_id"
	// FieldPath is the record being converted.
	FieldPath = "path"
	// FieldTool names the converter tier involved.
	FieldTool = "tool"
	// FieldWorker identifies the pool worker that handled a record.
	FieldWorker = "worker"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
