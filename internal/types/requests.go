package types

import "time"

// Wire types for the remote extraction service. Field names follow the
// service's JSON contract, not Go conventions.

// ExtractionRequest is the shared request body of both extraction endpoints.
type ExtractionRequest struct {
	Text            string    `json:"text"`
	ReferenceTime   time.Time `json:"reference_time"`
	SourceSegmentID string    `json:"source_segment_id,omitempty"`
}
