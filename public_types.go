package transcript

import (
	"github.com/lifetrace/transcript/highlight"
	"github.com/lifetrace/transcript/internal/types"
)

// Public type aliases so engine consumers can import only this package.
type (
	// Domain entities
	TranscriptSegment = types.TranscriptSegment
	ExtractedEntity   = types.ExtractedEntity
	EntityKind        = types.EntityKind
	Priority          = types.Priority
	ScheduleStatus    = types.ScheduleStatus
	HighlightSpan     = highlight.Span

	// Extraction service wire types
	ExtractionRequest = types.ExtractionRequest
	RawTodo           = types.RawTodo
	RawSchedule       = types.RawSchedule
)

const (
	EntityTodo     = types.EntityTodo
	EntitySchedule = types.EntitySchedule

	PriorityHigh   = types.PriorityHigh
	PriorityMedium = types.PriorityMedium
	PriorityLow    = types.PriorityLow

	SchedulePending   = types.SchedulePending
	ScheduleConfirmed = types.ScheduleConfirmed
	ScheduleCancelled = types.ScheduleCancelled
)

// ResolveHighlights computes the highlight spans for one segment's display
// text. Thin wrapper over highlight.Resolve so single-import consumers get
// the whole engine surface from this package.
func ResolveHighlights(displayText string, entities []ExtractedEntity) []HighlightSpan {
	return highlight.Resolve(displayText, entities)
}
