// Package timeindex maps absolute wall-clock times onto fixed-duration
// audio storage chunks and back. All functions are pure arithmetic; times
// before the session epoch yield negative chunk indices rather than errors,
// and callers decide whether a negative index is valid in their context.
package timeindex

import (
	"time"

	"github.com/lifetrace/transcript/internal/types"
)

// ChunkDuration is the fixed length of one audio storage chunk.
const ChunkDuration = 10 * time.Minute

// ChunkDurationMs is ChunkDuration in milliseconds, the unit the rest of
// the engine uses for audio offsets.
const ChunkDurationMs = int64(ChunkDuration / time.Millisecond)

// Timeline is the coordinate system of one recording session, anchored at
// the session epoch.
type Timeline struct {
	epochMs int64
}

// New anchors a timeline at the given session epoch.
func New(epoch time.Time) Timeline {
	return Timeline{epochMs: epoch.UnixMilli()}
}

// NewUnixMilli anchors a timeline at a Unix-millisecond epoch.
func NewUnixMilli(epochMs int64) Timeline {
	return Timeline{epochMs: epochMs}
}

// EpochMs returns the session epoch in Unix milliseconds.
func (t Timeline) EpochMs() int64 { return t.epochMs }

// ChunkIndex returns the index of the chunk containing unixMs. Uses floor
// division so pre-epoch times map to negative indices, keeping
// ChunkStart(ChunkIndex(x)) <= x for all x.
func (t Timeline) ChunkIndex(unixMs int64) int64 {
	diff := unixMs - t.epochMs
	idx := diff / ChunkDurationMs
	if diff%ChunkDurationMs != 0 && diff < 0 {
		idx--
	}
	return idx
}

// ChunkStart returns the absolute start time of a chunk in Unix ms.
func (t Timeline) ChunkStart(index int64) int64 {
	return t.epochMs + index*ChunkDurationMs
}

// OffsetWithin returns the millisecond offset of unixMs inside its chunk.
// The result is always in [0, ChunkDurationMs).
func (t Timeline) OffsetWithin(unixMs int64) int64 {
	return unixMs - t.ChunkStart(t.ChunkIndex(unixMs))
}

// Locate returns both the chunk index and the offset within it.
func (t Timeline) Locate(unixMs int64) (index, offset int64) {
	index = t.ChunkIndex(unixMs)
	offset = unixMs - t.ChunkStart(index)
	return index, offset
}

// AbsoluteTime recovers the Unix-ms time for a chunk-relative position.
func (t Timeline) AbsoluteTime(index, offset int64) int64 {
	return t.ChunkStart(index) + offset
}

// Attribute stamps seg.SegmentIndex and seg.RelativeOffset from the
// segment's capture timestamp, preserving the round-trip invariant
// ChunkStart(index)+offset == timestamp.
func (t Timeline) Attribute(seg *types.TranscriptSegment) {
	index, offset := t.Locate(seg.Timestamp.UnixMilli())
	seg.SegmentIndex = &index
	seg.RelativeOffset = &offset
}
