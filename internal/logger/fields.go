package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldEntryID is the stream entry ID being processed
	FieldEntryID = "entry_id"

	// FieldDocumentID is the persisted document ID
	FieldDocumentID = "document_id"

	// FieldAgentID is the analysis agent identifier
	FieldAgentID = "agent_id"

	// FieldConsumer is the consumer name within the group
	FieldConsumer = "consumer"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the upstream data source identifier
	FieldSource = "source"

	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
