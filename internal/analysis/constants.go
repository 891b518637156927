package analysis

import "time"

// Client configuration constants
const (
	// DefaultTimeout bounds one interpretation call end to end. A hung
	// transport must not stall a capture cycle indefinitely.
	DefaultTimeout = 60 * time.Second

	// AnalysisMaxTokens caps the reply length for frame analysis.
	AnalysisMaxTokens = 500

	// SummaryMaxTokens caps the reply length for daily summaries.
	SummaryMaxTokens = 2000
)

// Markers in a rejection body that identify an endpoint refusing image
// input. Both must appear for the failure to count as a modality mismatch.
const (
	modalityMarkerField   = "image_url"
	modalityMarkerVariant = "unknown variant"
)
