package segmentstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/transcript/internal/types"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSegment(id string) *types.TranscriptSegment {
	idx := int64(2)
	off := int64(63_000)
	return &types.TranscriptSegment{
		ID:             id,
		RawText:        "明天下午三点开会讨论预算",
		AudioStart:     1_263_000,
		AudioEnd:       1_268_500,
		Timestamp:      time.Date(2025, 1, 1, 10, 21, 3, 0, time.UTC),
		SegmentIndex:   &idx,
		RelativeOffset: &off,
	}
}

func TestStore_SegmentRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	want := sampleSegment("s1")
	require.NoError(t, s.SaveSegment(ctx, "session-1", want))

	got, err := s.GetSegment(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, want.RawText, got.RawText)
	require.Equal(t, want.AudioStart, got.AudioStart)
	require.Equal(t, want.AudioEnd, got.AudioEnd)
	require.True(t, want.Timestamp.Equal(got.Timestamp))
	require.NotNil(t, got.SegmentIndex)
	require.Equal(t, int64(2), *got.SegmentIndex)
	require.Equal(t, int64(63_000), *got.RelativeOffset)
	require.False(t, got.ContainsTodo)
}

func TestStore_SaveSegmentValidation(t *testing.T) {
	s := openTest(t)
	require.Error(t, s.SaveSegment(context.Background(), "session-1", &types.TranscriptSegment{}))
	require.Error(t, s.SaveSegment(context.Background(), "", sampleSegment("s1")))
}

func TestStore_ListSegmentsOrderedByTime(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	later := sampleSegment("s2")
	later.Timestamp = later.Timestamp.Add(time.Minute)
	require.NoError(t, s.SaveSegment(ctx, "session-1", later))
	require.NoError(t, s.SaveSegment(ctx, "session-1", sampleSegment("s1")))
	require.NoError(t, s.SaveSegment(ctx, "other", sampleSegment("s3")))

	segs, err := s.ListSegments(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	require.Equal(t, "s1", segs[0].ID)
	require.Equal(t, "s2", segs[1].ID)
}

func TestStore_FinalizeAndOptimize(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seg := sampleSegment("s1")
	seg.IsInterim = true
	seg.InterimText = "明天下午..."
	require.NoError(t, s.SaveSegment(ctx, "session-1", seg))

	require.NoError(t, s.FinalizeSegment(ctx, "s1", "明天下午三点开会"))
	got, err := s.GetSegment(ctx, "s1")
	require.NoError(t, err)
	require.False(t, got.IsInterim)
	require.Empty(t, got.InterimText)
	require.Equal(t, "明天下午三点开会", got.RawText)

	require.NoError(t, s.AttachOptimizedText(ctx, "s1", "明天下午三点开会。"))
	got, err = s.GetSegment(ctx, "s1")
	require.NoError(t, err)
	require.True(t, got.IsOptimized)
	require.Equal(t, "明天下午三点开会。", got.EffectiveText())
}

func TestStore_ExtractionFlagsNeverClear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSegment(ctx, "session-1", sampleSegment("s1")))

	require.NoError(t, s.SetExtractionFlags(ctx, "s1", true, false))
	// A later extraction finding only schedules must not clear the todo flag.
	require.NoError(t, s.SetExtractionFlags(ctx, "s1", false, true))

	got, err := s.GetSegment(ctx, "s1")
	require.NoError(t, err)
	require.True(t, got.ContainsTodo)
	require.True(t, got.ContainsSchedule)
}

func TestStore_EntityRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	deadline := time.Date(2025, 1, 2, 23, 59, 59, 0, time.UTC)
	first := &types.ExtractedEntity{
		ID:              uuid.New().String(),
		Kind:            types.EntityTodo,
		SourceSegmentID: "s1",
		ExtractedAt:     time.Date(2025, 1, 1, 10, 22, 0, 0, time.UTC),
		SourceText:      "买牛奶",
		Title:           "买牛奶",
		Priority:        types.PriorityHigh,
		Deadline:        &deadline,
	}
	when := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	second := &types.ExtractedEntity{
		ID:              uuid.New().String(),
		Kind:            types.EntitySchedule,
		SourceSegmentID: "s1",
		ExtractedAt:     first.ExtractedAt.Add(time.Second),
		Description:     "开会讨论预算",
		ScheduleTime:    &when,
		Status:          types.SchedulePending,
	}
	require.NoError(t, s.SaveEntity(ctx, first))
	require.NoError(t, s.SaveEntity(ctx, second))

	got, err := s.ListEntitiesBySegment(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, types.EntityTodo, got[0].Kind)
	require.Equal(t, "买牛奶", got[0].Title)
	require.Equal(t, types.PriorityHigh, got[0].Priority)
	require.True(t, deadline.Equal(*got[0].Deadline))
	require.Equal(t, types.EntitySchedule, got[1].Kind)
	require.True(t, when.Equal(*got[1].ScheduleTime))
}

func TestStore_SaveEntityRejectsInvalid(t *testing.T) {
	s := openTest(t)
	bad := &types.ExtractedEntity{ID: "e1", Kind: "note", SourceSegmentID: "s1"}
	require.Error(t, s.SaveEntity(context.Background(), bad))
}
