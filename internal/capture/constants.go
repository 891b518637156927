package capture

// Event types pushed to WebSocket consumers.
const (
	EventRecord = "record"
	EventStatus = "status"
)

// Cycle outcomes reported by the status endpoint.
const (
	OutcomeCaptured = "captured"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

// EventBufferSize bounds the event channel; emits drop when full.
const EventBufferSize = 100
