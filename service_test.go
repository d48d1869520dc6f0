package transcript

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	xerrors "github.com/lifetrace/transcript/internal/errors"
	"github.com/lifetrace/transcript/segmentstore"
)

// fakeExtractor is a scriptable Extractor double.
type fakeExtractor struct {
	mu         sync.Mutex
	todoReqs   []ExtractionRequest
	schedReqs  []ExtractionRequest
	todos      []RawTodo
	schedules  []RawSchedule
	todoErr    error
	schedErr   error
	block      chan struct{} // when non-nil, ExtractTodos waits on it
}

func (f *fakeExtractor) ExtractTodos(ctx context.Context, req ExtractionRequest) ([]RawTodo, error) {
	f.mu.Lock()
	f.todoReqs = append(f.todoReqs, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.todos, f.todoErr
}

func (f *fakeExtractor) ExtractSchedules(ctx context.Context, req ExtractionRequest) ([]RawSchedule, error) {
	f.mu.Lock()
	f.schedReqs = append(f.schedReqs, req)
	f.mu.Unlock()
	return f.schedules, f.schedErr
}

func (f *fakeExtractor) todoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.todoReqs)
}

func newTestService(t *testing.T, ex Extractor, extra ...Option) *Service {
	t.Helper()
	opts := append([]Option{WithDebounce(2 * time.Millisecond)}, extra...)
	if ex != nil {
		opts = append(opts, WithExtractor(ex))
	}
	s := New("", opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func collectEntities(s *Service) (<-chan ExtractedEntity, func() []ExtractedEntity) {
	ch := make(chan ExtractedEntity, 16)
	s.OnEntityExtracted(func(e ExtractedEntity) { ch <- e })
	return ch, func() []ExtractedEntity {
		var out []ExtractedEntity
		for {
			select {
			case e := <-ch:
				out = append(out, e)
			case <-time.After(200 * time.Millisecond):
				return out
			}
		}
	}
}

func waitEntity(t *testing.T, ch <-chan ExtractedEntity) ExtractedEntity {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no entity emitted")
		return ExtractedEntity{}
	}
}

func TestService_EndToEndScheduleScenario(t *testing.T) {
	when := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	ex := &fakeExtractor{
		schedules: []RawSchedule{{
			ScheduleTime: &when,
			Description:  "开会讨论预算",
			SourceText:   "明天下午三点开会讨论预算",
		}},
	}
	s := newTestService(t, ex)
	ch, _ := collectEntities(s)

	seg := TranscriptSegment{
		ID:        "s1",
		RawText:   "明天下午三点开会讨论预算",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.True(t, s.Enqueue(seg))

	e := waitEntity(t, ch)
	require.Equal(t, EntitySchedule, e.Kind)
	require.Equal(t, "s1", e.SourceSegmentID)
	require.Equal(t, "开会讨论预算", e.Description)
	require.True(t, when.Equal(*e.ScheduleTime))
	require.Equal(t, SchedulePending, e.Status)
	require.NotEmpty(t, e.ID)

	// The extractor saw the segment's own text and reference time.
	require.Len(t, ex.schedReqs, 1)
	require.Equal(t, seg.RawText, ex.schedReqs[0].Text)
	require.Equal(t, "s1", ex.schedReqs[0].SourceSegmentID)
	require.True(t, seg.Timestamp.Equal(ex.schedReqs[0].ReferenceTime))

	// Resolving against the same display text highlights the whole string.
	spans := ResolveHighlights(seg.RawText, []ExtractedEntity{e})
	require.Equal(t, []HighlightSpan{{Start: 0, End: len([]rune(seg.RawText)), Kind: EntitySchedule}}, spans)
}

func TestService_FallbackOnRemoteFailure(t *testing.T) {
	ex := &fakeExtractor{
		todoErr:  xerrors.Transport("/api/audio/extract-todos", errors.New("conn refused")),
		schedErr: xerrors.Transport("/api/audio/extract-schedules", errors.New("conn refused")),
	}
	s := newTestService(t, ex)

	var reported []error
	var mu sync.Mutex
	s.OnError(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	})
	ch, drain := collectEntities(s)

	ref := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.True(t, s.Enqueue(TranscriptSegment{
		ID:        "s1",
		RawText:   "[TODO: 买牛奶 | deadline: 明天 | priority: high]",
		Timestamp: ref,
	}))

	e := waitEntity(t, ch)
	require.Equal(t, EntityTodo, e.Kind)
	require.Equal(t, "买牛奶", e.Title)
	require.Equal(t, PriorityHigh, e.Priority)
	require.NotNil(t, e.Deadline)
	require.Equal(t, time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC), *e.Deadline)

	// Exactly one entity; the schedule fallback finds nothing in this text.
	require.Empty(t, drain())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reported)
	for _, err := range reported {
		require.False(t, IsIrrecoverableExtraction(err))
	}
}

func TestService_LocalOnlyModeUsesFallback(t *testing.T) {
	// No extractor, no base URL: the marker parser is the whole pipeline.
	s := newTestService(t, nil)
	ch, _ := collectEntities(s)

	require.True(t, s.Enqueue(TranscriptSegment{
		ID:        "s1",
		RawText:   "[TODO: water the plants]",
		Timestamp: time.Now(),
	}))

	e := waitEntity(t, ch)
	require.Equal(t, "water the plants", e.Title)
	require.Equal(t, PriorityMedium, e.Priority)
}

func TestService_AtMostOneExtractionPerID(t *testing.T) {
	ex := &fakeExtractor{block: make(chan struct{})}
	s := newTestService(t, ex)

	seg := TranscriptSegment{ID: "dup", RawText: "some text", Timestamp: time.Now()}
	require.True(t, s.Enqueue(seg))
	require.False(t, s.Enqueue(seg), "second enqueue of an in-flight id must be a no-op")

	close(ex.block)
	require.NoError(t, s.Close())
	require.Equal(t, 1, ex.todoCalls())
}

func TestService_InterimNeverTriggersExtraction(t *testing.T) {
	ex := &fakeExtractor{}
	s := newTestService(t, ex)

	require.False(t, s.Enqueue(TranscriptSegment{
		ID:        "s1",
		RawText:   "partial thou",
		IsInterim: true,
		Timestamp: time.Now(),
	}))
	require.NoError(t, s.Close())
	require.Equal(t, 0, ex.todoCalls())
}

func TestService_EmptyResultEmitsNothing(t *testing.T) {
	ex := &fakeExtractor{} // zero todos, zero schedules, no errors
	s := newTestService(t, ex)

	var errs int
	s.OnError(func(error) { errs++ })
	_, drain := collectEntities(s)

	require.True(t, s.Enqueue(TranscriptSegment{ID: "s1", RawText: "nothing actionable", Timestamp: time.Now()}))
	require.Empty(t, drain())
	require.Zero(t, errs)
}

func TestService_EmissionOrderTodosThenSchedules(t *testing.T) {
	when := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	ex := &fakeExtractor{
		todos: []RawTodo{
			{Title: "first"},
			{Title: "second"},
		},
		schedules: []RawSchedule{{ScheduleTime: &when, Description: "sync"}},
	}
	s := newTestService(t, ex)
	_, drain := collectEntities(s)

	require.True(t, s.Enqueue(TranscriptSegment{ID: "s1", RawText: "text", Timestamp: time.Now()}))

	got := drain()
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].Title)
	require.Equal(t, "second", got[1].Title)
	require.Equal(t, EntitySchedule, got[2].Kind)
}

func TestService_BuffersEntitiesWithoutConsumer(t *testing.T) {
	ex := &fakeExtractor{todos: []RawTodo{{Title: "buffered"}}}
	s := newTestService(t, ex)

	require.True(t, s.Enqueue(TranscriptSegment{ID: "s1", RawText: "text", Timestamp: time.Now()}))

	// No consumer registered: the entity must be waiting, not lost.
	require.Eventually(t, func() bool {
		pending := s.PendingEntities()
		if len(pending) == 0 {
			return false
		}
		require.Equal(t, "buffered", pending[0].Title)
		return true
	}, 2*time.Second, 5*time.Millisecond)

	// Drained once, gone forever.
	require.Empty(t, s.PendingEntities())
}

func TestService_SourceTextDefaultsToTitle(t *testing.T) {
	ex := &fakeExtractor{todos: []RawTodo{{Title: "buy milk"}}}
	s := newTestService(t, ex)
	ch, _ := collectEntities(s)

	require.True(t, s.Enqueue(TranscriptSegment{ID: "s1", RawText: "remember to buy milk", Timestamp: time.Now()}))

	e := waitEntity(t, ch)
	require.Equal(t, "buy milk", e.SourceText)
}

func TestService_OptimizedTextPreferredForExtraction(t *testing.T) {
	ex := &fakeExtractor{}
	s := newTestService(t, ex)

	require.True(t, s.Enqueue(TranscriptSegment{
		ID:            "s1",
		RawText:       "um so buy ahh milk",
		OptimizedText: "buy milk",
		IsOptimized:   true,
		Timestamp:     time.Now(),
	}))
	require.NoError(t, s.Close())

	require.Equal(t, 1, ex.todoCalls())
	ex.mu.Lock()
	defer ex.mu.Unlock()
	require.Equal(t, "buy milk", ex.todoReqs[0].Text)
}

func TestService_SetsSegmentFlagsInStore(t *testing.T) {
	store, err := segmentstore.Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seg := TranscriptSegment{ID: "s1", RawText: "[TODO: x]", Timestamp: time.Now()}
	require.NoError(t, store.SaveSegment(context.Background(), "session-1", &seg))

	ex := &fakeExtractor{todos: []RawTodo{{Title: "x"}}}
	s := newTestService(t, ex, WithSegmentStore(store))
	ch, _ := collectEntities(s)

	require.True(t, s.Enqueue(seg))
	_ = waitEntity(t, ch)
	require.NoError(t, s.Close())

	got, err := store.GetSegment(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, got.ContainsTodo)
	require.False(t, got.ContainsSchedule)
}
