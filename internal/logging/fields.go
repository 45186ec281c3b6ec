package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized key for download job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized key for job stage names (resolve, fetch, mux...).
	FieldStage = "stage"
	// FieldURL is the standardized key for the manifest or asset URL being processed.
	FieldURL = "url"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the event so log consumers can filter without parsing messages.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries services.Kind of a failure.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)
