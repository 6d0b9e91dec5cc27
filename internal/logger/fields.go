package logger

// Fields is a map of structured log fields.
type Fields map[string]interface{}

// Standard field names shared across components so log aggregation stays
// consistent.
const (
	FieldRequestID  = "request_id"
	FieldComponent  = "component"
	FieldUserID     = "user_id"
	FieldMood       = "mood"
	FieldImageID    = "image_id"
	FieldStatus     = "status"
	FieldDurationMs = "duration_ms"
	FieldSize       = "size"
	FieldCount      = "count"
)
