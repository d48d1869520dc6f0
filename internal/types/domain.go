package types

import (
	"strings"
	"time"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// EntityKind discriminates the two extraction variants.
type EntityKind string

const (
	EntityTodo     EntityKind = "todo"
	EntitySchedule EntityKind = "schedule"
)

// Priority of a todo entity.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority maps arbitrary extractor output onto the three known
// levels. Anything that is not high or low becomes medium.
func NormalizePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ScheduleStatus of a schedule entity.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleConfirmed ScheduleStatus = "confirmed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// TranscriptSegment is one unit of recognized speech. Created by the speech
// recognizer; this engine only reads it (and, via the segment store, flips
// the extraction flags once entities have been found).
type TranscriptSegment struct {
	ID            string `json:"id"`
	RawText       string `json:"rawText"`
	InterimText   string `json:"interimText,omitempty"`
	OptimizedText string `json:"optimizedText,omitempty"`
	IsInterim     bool   `json:"isInterim"`
	IsOptimized   bool   `json:"isOptimized"`

	// Milliseconds relative to the start of the recording session.
	AudioStart int64 `json:"audioStart"`
	AudioEnd   int64 `json:"audioEnd"`

	// Wall-clock capture time; reference point for relative deadlines.
	Timestamp time.Time `json:"timestamp"`

	// Storage-chunk attribution (10-minute chunks). When both are set,
	// chunkStart(SegmentIndex)+RelativeOffset equals the segment's absolute
	// start time.
	SegmentIndex   *int64 `json:"segmentIndex,omitempty"`
	RelativeOffset *int64 `json:"relativeOffset,omitempty"`

	ContainsTodo     bool `json:"containsTodo,omitempty"`
	ContainsSchedule bool `json:"containsSchedule,omitempty"`
}

// EffectiveText returns the text extraction and display should use:
// the optimized text when present, else the raw recognizer output.
func (s *TranscriptSegment) EffectiveText() string {
	if strings.TrimSpace(s.OptimizedText) != "" {
		return s.OptimizedText
	}
	return s.RawText
}

// ExtractedEntity is the union of the todo and schedule variants, created
// once per extraction result and immutable afterward. Whether it is
// persisted or held for user confirmation is the caller's decision.
type ExtractedEntity struct {
	ID              string     `json:"id"`
	Kind            EntityKind `json:"kind"`
	SourceSegmentID string     `json:"sourceSegmentId"`
	ExtractedAt     time.Time  `json:"extractedAt"`

	// Verbatim snippet the extractor claims to have used, plus optional
	// 0-based rune offsets into the text that was sent for extraction.
	// The extractor is not trusted: consumers clamp before use.
	SourceText     string `json:"sourceText,omitempty"`
	TextStartIndex *int   `json:"textStartIndex,omitempty"`
	TextEndIndex   *int   `json:"textEndIndex,omitempty"`

	// Todo variant.
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`

	// Schedule variant.
	ScheduleTime *time.Time     `json:"scheduleTime,omitempty"`
	Status       ScheduleStatus `json:"status,omitempty"`
}
